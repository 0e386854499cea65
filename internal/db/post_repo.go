package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle/internal/models"
)

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID with its author, community, tags and
// attachments. Soft-deleted posts are returned so callers can decide;
// normal read paths filter them.
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Community").
		Preload("Tags").
		Preload("Attachments").
		First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create creates a post together with everything it carries: pending
// attachment links, the tag set and an optional poll with its options.
// All of it runs in one transaction, so a failure partway through rolls
// the post back and a client retry starts from nothing.
func (r *PostRepository) Create(ctx context.Context, post *models.Post, attachmentIDs []int64, tags []string, poll *models.Poll, pollOptions []string) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if len(attachmentIDs) > 0 {
			if err := tx.Model(&models.Attachment{}).
				Where("id IN ? AND owner_id = ?", attachmentIDs, post.AuthorID).
				Update("post_id", post.ID).Error; err != nil {
				return err
			}
		}
		if len(tags) > 0 {
			if err := replaceTags(tx, post, tags); err != nil {
				return err
			}
		}
		if poll != nil {
			poll.PostID = post.ID
			if err := createPoll(tx, poll, pollOptions); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update updates a post's mutable fields
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"title":   post.Title,
			"content": post.Content,
		}).Error
}

// SoftDelete marks a post deleted without removing the row
func (r *PostRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Update("is_deleted", true).Error
}

// replaceTags sets a post's tags inside tx, creating missing tag rows
func replaceTags(tx *gorm.DB, post *models.Post, names []string) error {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag := models.Tag{Name: name}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
			return err
		}
		if tag.ID == 0 {
			if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
				return err
			}
		}
		tags = append(tags, tag)
	}
	return tx.Model(post).Association("Tags").Replace(tags)
}

// FeedByCommunity retrieves a page of live posts in a community, newest
// first
func (r *PostRepository) FeedByCommunity(ctx context.Context, communityID int64, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Community").
		Preload("Tags").
		Preload("Attachments").
		Where("community_id = ? AND is_deleted = ?", communityID, false).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// FeedByOrg retrieves a page of live org-wide posts (no community),
// newest first
func (r *PostRepository) FeedByOrg(ctx context.Context, orgID int64, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Attachments").
		Where("org_id = ? AND community_id IS NULL AND is_deleted = ?", orgID, false).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// GetByID retrieves a comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// Create creates a comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// SoftDelete marks a comment deleted
func (r *CommentRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Update("is_deleted", true).Error
}

// ListByPost retrieves a post's live comments, oldest first
func (r *CommentRepository) ListByPost(ctx context.Context, postID int64, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ? AND is_deleted = ?", postID, false).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// CountLiveByPostIDs returns the non-deleted comment count per post
func (r *CommentRepository) CountLiveByPostIDs(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID int64 `gorm:"column:post_id"`
		N      int64 `gorm:"column:n"`
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("post_id, count(*) AS n").
		Where("post_id IN ? AND is_deleted = ?", postIDs, false).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.PostID] = row.N
	}
	return counts, nil
}
