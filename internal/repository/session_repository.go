package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := withBusyRetry(func() error {
		return r.db.Create(session).Error
	}); err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

// GetByID returns (nil, nil) when no session matches.
func (r *SessionRepository) GetByID(sessionID string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) ListAll() ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.Order("last_accessed DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) TouchLastAccessed(sessionID string) error {
	if err := withBusyRetry(func() error {
		return r.db.Model(&model.Session{}).
			Where("id = ?", sessionID).
			Update("last_accessed", time.Now()).Error
	}); err != nil {
		return fmt.Errorf("touch session failed: %w", err)
	}
	return nil
}

// DeleteWithInteractions removes the session row and every interaction that
// belongs to it in one transaction: both disappear, or neither does.
func (r *SessionRepository) DeleteWithInteractions(sessionID string) error {
	if err := withBusyRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("session_id = ?", sessionID).Delete(&model.Interaction{}).Error; err != nil {
				return err
			}
			return tx.Where("id = ?", sessionID).Delete(&model.Session{}).Error
		})
	}); err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}
