package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"aitutor-server/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListByUserID(userID uint) ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) GetByIDAndUserID(sessionID, userID uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) DeleteByIDAndUserID(sessionID, userID uint) error {
	if err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) UpdateTitle(sessionID, userID uint, title string) error {
	err := r.db.Model(&model.Session{}).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Updates(map[string]interface{}{"title": title, "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("update session title failed: %w", err)
	}
	return nil
}

// AppendFileMessage creates a file message and refreshes the session's
// latest-file pointer as one unit. The pointer must always mirror the most
// recently created file message, so the two writes share a transaction.
// On success the in-memory session is updated to match.
func (r *SessionRepository) AppendFileMessage(session *model.Session, msg *model.Message) error {
	now := time.Now()
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("create file message failed: %w", err)
		}
		updates := map[string]interface{}{
			"latest_file_name": msg.File.OriginalName,
			"latest_file_text": msg.File.ExtractedText,
			"updated_at":       now,
		}
		if err := tx.Model(&model.Session{}).Where("id = ?", session.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update session latest file failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	session.LatestFileName = msg.File.OriginalName
	session.LatestFileText = msg.File.ExtractedText
	session.UpdatedAt = now
	return nil
}
