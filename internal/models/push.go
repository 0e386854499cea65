package models

import "time"

// PushSubscription is a browser push endpoint registered by a user's
// device. Endpoint is unique per user; a device re-registering refreshes
// the keys in place.
type PushSubscription struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64     `gorm:"not null;uniqueIndex:push_subscriptions_ux1;column:user_id"`
	Endpoint  string    `gorm:"type:varchar(1024);not null;uniqueIndex:push_subscriptions_ux1;column:endpoint"`
	P256dh    string    `gorm:"type:varchar(256);not null;column:p256dh"`
	Auth      string    `gorm:"type:varchar(256);not null;column:auth"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PushSubscription
func (PushSubscription) TableName() string {
	return "push_subscriptions"
}
