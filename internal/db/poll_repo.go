package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle/internal/models"
)

// PollRepository provides poll-related database operations
type PollRepository struct {
	*Repository
}

// NewPollRepository creates a new poll repository
func NewPollRepository(repo *Repository) *PollRepository {
	return &PollRepository{Repository: repo}
}

// createPoll inserts a poll and its ordered options inside tx. Post
// creation owns the transaction so the poll never outlives a rolled-back
// post.
func createPoll(tx *gorm.DB, poll *models.Poll, labels []string) error {
	if err := tx.Create(poll).Error; err != nil {
		return err
	}
	for i, label := range labels {
		opt := &models.PollOption{
			PollID: poll.ID,
			Index:  i,
			Label:  label,
		}
		if err := tx.Create(opt).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByPostID retrieves a post's poll with options ordered by index
func (r *PollRepository) GetByPostID(ctx context.Context, postID int64) (*models.Poll, error) {
	var poll models.Poll
	if err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("idx ASC")
		}).
		Where("post_id = ?", postID).
		First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &poll, nil
}

// GetOption retrieves one option of a poll
func (r *PollRepository) GetOption(ctx context.Context, pollID, optionID int64) (*models.PollOption, error) {
	var opt models.PollOption
	if err := r.db.WithContext(ctx).
		Where("id = ? AND poll_id = ?", optionID, pollID).
		First(&opt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &opt, nil
}

// Vote records a vote. For single-choice polls the (poll, user) primary
// key plus an upsert keeps at most one vote row per user, moving the vote
// when the user picks a different option.
func (r *PollRepository) Vote(ctx context.Context, vote *models.PollVote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"option_id", "created_at"}),
		}).
		Create(vote).Error
}

// CountByOption returns vote counts per option for a poll
func (r *PollRepository) CountByOption(ctx context.Context, pollID int64) (map[int64]int64, error) {
	var rows []struct {
		OptionID int64 `gorm:"column:option_id"`
		N        int64 `gorm:"column:n"`
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PollVote{}).
		Select("option_id, count(*) AS n").
		Where("poll_id = ?", pollID).
		Group("option_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[int64]int64, len(rows))
	for _, row := range rows {
		counts[row.OptionID] = row.N
	}
	return counts, nil
}
