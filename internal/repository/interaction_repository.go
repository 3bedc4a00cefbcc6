package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) Create(interaction *model.Interaction) error {
	if err := withBusyRetry(func() error {
		return r.db.Create(interaction).Error
	}); err != nil {
		return fmt.Errorf("create interaction failed: %w", err)
	}
	return nil
}

// ListBySessionID returns all interactions for a session, newest first.
func (r *InteractionRepository) ListBySessionID(sessionID string) ([]model.Interaction, error) {
	var interactions []model.Interaction
	if err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Find(&interactions).Error; err != nil {
		return nil, fmt.Errorf("list interactions failed: %w", err)
	}
	return interactions, nil
}

// ListRecentBySessionID returns at most limit interactions, newest first.
// Callers that need chronological order reverse the slice themselves.
func (r *InteractionRepository) ListRecentBySessionID(sessionID string, limit int) ([]model.Interaction, error) {
	if limit <= 0 {
		limit = 5
	}

	var interactions []model.Interaction
	if err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&interactions).Error; err != nil {
		return nil, fmt.Errorf("list recent interactions failed: %w", err)
	}
	return interactions, nil
}
