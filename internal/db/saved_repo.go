package db

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle/internal/models"
)

// SavedPostRepository provides bookmark operations
type SavedPostRepository struct {
	*Repository
}

// NewSavedPostRepository creates a new saved-post repository
func NewSavedPostRepository(repo *Repository) *SavedPostRepository {
	return &SavedPostRepository{Repository: repo}
}

// Save bookmarks a post. Saving an already-saved post is a no-op; the
// composite primary key plus ON CONFLICT DO NOTHING keeps the pair unique
// without an application-level read.
func (r *SavedPostRepository) Save(ctx context.Context, saved *models.SavedPost) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(saved).Error
}

// Unsave removes a bookmark. Unsaving a post that was never saved is a
// no-op.
func (r *SavedPostRepository) Unsave(ctx context.Context, userID, postID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.SavedPost{}).Error
}

// ListPage retrieves a page of a user's bookmarks, newest bookmark first,
// with the bookmarked posts and their associations preloaded. Bookmarks
// whose posts are soft-deleted are excluded before limit/offset so pages
// run short only at the true end of the set.
func (r *SavedPostRepository) ListPage(ctx context.Context, userID int64, limit, offset int) ([]*models.SavedPost, error) {
	var saved []*models.SavedPost
	if err := r.db.WithContext(ctx).
		Preload("Post").
		Preload("Post.Author").
		Preload("Post.Community").
		Preload("Post.Tags").
		Preload("Post.Attachments").
		Joins("INNER JOIN posts ON posts.id = saved_posts.post_id").
		Where("saved_posts.user_id = ? AND posts.is_deleted = ?", userID, false).
		Order("saved_posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&saved).Error; err != nil {
		return nil, err
	}
	return saved, nil
}

// CountLive counts a user's bookmarks whose posts are not soft-deleted.
// Pagination totals are computed over live rows so a page is short only
// at the true end of the set.
func (r *SavedPostRepository) CountLive(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SavedPost{}).
		Joins("INNER JOIN posts ON posts.id = saved_posts.post_id").
		Where("saved_posts.user_id = ? AND posts.is_deleted = ?", userID, false).
		Count(&count).Error
	return count, err
}
