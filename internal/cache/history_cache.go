package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docuchat/internal/model"
)

// HistoryCache keeps a short-lived copy of a session's interaction history.
// A dirty marker set around writes prevents a stale read-back from being
// cached while an interaction insert is in flight.
type HistoryCache struct {
	client         *redisv9.Client
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

// cachedInteraction mirrors model.Interaction with every column exposed.
// The model's JSON tags hide the row id and the raw token_usage payload
// from API responses, so marshaling the model directly would lose them
// across a cache round-trip.
type cachedInteraction struct {
	ID         uint      `json:"id"`
	MessageID  string    `json:"message_id"`
	SessionID  string    `json:"chat_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	TokenUsage string    `json:"token_usage"`
	CreatedAt  time.Time `json:"created_at"`
}

func encodeHistory(interactions []model.Interaction) ([]byte, error) {
	cached := make([]cachedInteraction, 0, len(interactions))
	for _, it := range interactions {
		cached = append(cached, cachedInteraction{
			ID:         it.ID,
			MessageID:  it.MessageID,
			SessionID:  it.SessionID,
			Question:   it.Question,
			Answer:     it.Answer,
			TokenUsage: it.TokenUsage,
			CreatedAt:  it.CreatedAt,
		})
	}
	return json.Marshal(cached)
}

func decodeHistory(payload []byte) ([]model.Interaction, error) {
	var cached []cachedInteraction
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, err
	}
	interactions := make([]model.Interaction, 0, len(cached))
	for _, it := range cached {
		interactions = append(interactions, model.Interaction{
			ID:         it.ID,
			MessageID:  it.MessageID,
			SessionID:  it.SessionID,
			Question:   it.Question,
			Answer:     it.Answer,
			TokenUsage: it.TokenUsage,
			CreatedAt:  it.CreatedAt,
		})
	}
	return interactions, nil
}

func (c *HistoryCache) GetHistory(ctx context.Context, sessionID string) ([]model.Interaction, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(sessionID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	interactions, err := decodeHistory([]byte(raw))
	if err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return interactions, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, sessionID string, interactions []model.Interaction) error {
	payload, err := encodeHistory(interactions)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(sessionID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) MarkDirty(ctx context.Context, sessionID string) error {
	if err := c.client.Set(ctx, c.dirtyKey(sessionID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, sessionID string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *HistoryCache) historyKey(sessionID string) string {
	return "docuchat:history:" + sessionID
}

func (c *HistoryCache) dirtyKey(sessionID string) string {
	return "docuchat:history:dirty:" + sessionID
}
