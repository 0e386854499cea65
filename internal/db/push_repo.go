package db

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle/internal/models"
)

// PushRepository provides push subscription operations
type PushRepository struct {
	*Repository
}

// NewPushRepository creates a new push repository
func NewPushRepository(repo *Repository) *PushRepository {
	return &PushRepository{Repository: repo}
}

// Upsert registers a device; re-registering an endpoint refreshes its keys
func (r *PushRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).
		Create(sub).Error
}

// ListByUsers retrieves all subscriptions for a set of users
func (r *PushRepository) ListByUsers(ctx context.Context, userIDs []int64) ([]*models.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var subs []*models.PushSubscription
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// DeleteByEndpoint drops a subscription, used when a push delivery
// reports the endpoint gone
func (r *PushRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return r.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&models.PushSubscription{}).Error
}
