package model

import (
	"encoding/json"
	"time"
)

// TokenUsage is the provider-reported token count for one generation call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Interaction is one persisted question/answer exchange. Rows are immutable
// once created and removed only when the owning session is deleted.
type Interaction struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	MessageID  string    `gorm:"size:36;uniqueIndex;not null" json:"message_id"`
	SessionID  string    `gorm:"size:64;not null;index" json:"chat_id"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:text;not null" json:"answer"`
	TokenUsage string    `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Usage parses the stored token_usage JSON. Malformed or empty payloads
// yield zeroed counts.
func (i *Interaction) Usage() TokenUsage {
	var usage TokenUsage
	if i.TokenUsage == "" {
		return usage
	}
	_ = json.Unmarshal([]byte(i.TokenUsage), &usage)
	return usage
}

// SetUsage serializes the counts into the token_usage column.
func (i *Interaction) SetUsage(usage TokenUsage) error {
	payload, err := json.Marshal(usage)
	if err != nil {
		return err
	}
	i.TokenUsage = string(payload)
	return nil
}
