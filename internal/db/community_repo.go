package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle/internal/models"
)

// CommunityRepository provides community-related database operations
type CommunityRepository struct {
	*Repository
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(repo *Repository) *CommunityRepository {
	return &CommunityRepository{Repository: repo}
}

// GetByID retrieves a community by ID
func (r *CommunityRepository) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

// GetBySlug retrieves a community by slug
func (r *CommunityRepository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&community).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

// CreateWithOwner creates a community and its creator's admin membership
// in one transaction.
func (r *CommunityRepository) CreateWithOwner(ctx context.Context, community *models.Community) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		member := &models.CommunityMember{
			CommunityID: community.ID,
			UserID:      community.CreatorID,
			Role:        models.CommunityRoleAdmin,
			Status:      models.MemberStatusActive,
			CreatedAt:   time.Now().UTC(),
		}
		return tx.Create(member).Error
	})
}

// Update updates a community
func (r *CommunityRepository) Update(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Save(community).Error
}

// Delete removes a community and its membership rows
func (r *CommunityRepository) Delete(ctx context.Context, id int64) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("community_id = ?", id).Delete(&models.CommunityMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Community{}, id).Error
	})
}

// List retrieves communities, optionally filtered by org, newest first
func (r *CommunityRepository) List(ctx context.Context, orgID *int64, search string, limit, offset int) ([]*models.Community, error) {
	query := r.db.WithContext(ctx).Model(&models.Community{})
	if orgID != nil {
		query = query.Where("org_id = ?", *orgID)
	}
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	var communities []*models.Community
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&communities).Error; err != nil {
		return nil, err
	}
	return communities, nil
}

// MemberRepository provides community membership operations
type MemberRepository struct {
	*Repository
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(repo *Repository) *MemberRepository {
	return &MemberRepository{Repository: repo}
}

// Get retrieves a membership row, nil if absent
func (r *MemberRepository) Get(ctx context.Context, communityID, userID int64) (*models.CommunityMember, error) {
	var member models.CommunityMember
	if err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// Add inserts a membership row; joining twice is a no-op.
func (r *MemberRepository) Add(ctx context.Context, member *models.CommunityMember) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(member).Error
}

// SetRole updates a member's role
func (r *MemberRepository) SetRole(ctx context.Context, communityID, userID int64, role models.CommunityRole) error {
	return r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Update("role", role).Error
}

// SetStatus updates a member's status
func (r *MemberRepository) SetStatus(ctx context.Context, communityID, userID int64, status models.MemberStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Update("status", status).Error
}

// Remove deletes a membership row
func (r *MemberRepository) Remove(ctx context.Context, communityID, userID int64) error {
	return r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.CommunityMember{}).Error
}

// ListByCommunity retrieves a community's members with their users
func (r *MemberRepository) ListByCommunity(ctx context.Context, communityID int64, limit, offset int) ([]*models.CommunityMember, error) {
	var members []*models.CommunityMember
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListUserIDs retrieves the IDs of a community's active members
func (r *MemberRepository) ListUserIDs(ctx context.Context, communityID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ? AND status = ?", communityID, models.MemberStatusActive).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListCommunityIDsForUser retrieves the community IDs a user actively
// belongs to
func (r *MemberRepository) ListCommunityIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("user_id = ? AND status = ?", userID, models.MemberStatusActive).
		Pluck("community_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
