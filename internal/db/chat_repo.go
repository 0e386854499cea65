package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/huddlehq/huddle/internal/models"
)

// ChatRepository provides chat thread and message operations
type ChatRepository struct {
	*Repository
}

// NewChatRepository creates a new chat repository
func NewChatRepository(repo *Repository) *ChatRepository {
	return &ChatRepository{Repository: repo}
}

// CreateThread creates a thread with its participants in one transaction
func (r *ChatRepository) CreateThread(ctx context.Context, userIDs []int64) (*models.ChatThread, error) {
	thread := &models.ChatThread{CreatedAt: time.Now().UTC()}
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return err
		}
		for _, userID := range userIDs {
			p := &models.ChatParticipant{
				ThreadID:  thread.ID,
				UserID:    userID,
				CreatedAt: thread.CreatedAt,
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// GetThread retrieves a thread with participants, nil if absent
func (r *ChatRepository) GetThread(ctx context.Context, id int64) (*models.ChatThread, error) {
	var thread models.ChatThread
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&thread, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

// IsParticipant reports whether a user belongs to a thread
func (r *ChatRepository) IsParticipant(ctx context.Context, threadID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatParticipant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddMessage appends a message to a thread
func (r *ChatRepository) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListMessages retrieves a thread's messages, oldest first
func (r *ChatRepository) ListMessages(ctx context.Context, threadID int64, limit, offset int) ([]*models.ChatMessage, error) {
	var msgs []*models.ChatMessage
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
