package models

import (
	"database/sql"
	"time"
)

// Attachment is uploaded file metadata. R2Key/R2URL point at the current
// object; OriginalKey/OriginalURL keep the pre-conversion object so a
// failed video conversion can revert without dangling references.
type Attachment struct {
	ID           int64          `gorm:"primaryKey;autoIncrement;column:id"`
	OwnerID      int64          `gorm:"not null;index:attachments_ix1;column:owner_id"`
	PostID       sql.NullInt64  `gorm:"index:attachments_ix2;column:post_id"`
	CommunityID  sql.NullInt64  `gorm:"column:community_id"`
	R2Key        string         `gorm:"type:varchar(1024);not null;column:r2_key"`
	R2URL        string         `gorm:"type:varchar(1024);not null;column:r2_url"`
	ThumbnailURL sql.NullString `gorm:"type:varchar(1024);column:thumbnail_url"`
	OriginalKey  sql.NullString `gorm:"type:varchar(1024);column:original_key"`
	OriginalURL  sql.NullString `gorm:"type:varchar(1024);column:original_url"`
	MimeType     string         `gorm:"type:varchar(128);not null;column:mime_type"`
	Size         int64          `gorm:"not null;default:0;column:size"`
	CreatedAt    time.Time      `gorm:"not null;column:created_at"`
	UpdatedAt    time.Time      `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}
