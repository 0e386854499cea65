package models

import (
	"database/sql"
	"time"
)

// Post represents a post. CommunityID null means the post is org-wide.
// Content is sanitized HTML; deletion is a soft-delete flag so that
// references from comments and bookmarks stay resolvable.
type Post struct {
	ID          int64         `gorm:"primaryKey;autoIncrement;column:id"`
	AuthorID    int64         `gorm:"not null;index:posts_ix1;column:author_id"`
	CommunityID sql.NullInt64 `gorm:"index:posts_ix2;column:community_id"`
	OrgID       sql.NullInt64 `gorm:"index:posts_ix3;column:org_id"`
	Title       string        `gorm:"type:varchar(300);not null;default:'';column:title"`
	Content     string        `gorm:"type:text;not null;column:content"`
	IsDeleted   bool          `gorm:"not null;default:false;column:is_deleted"`
	CreatedAt   time.Time     `gorm:"not null;column:created_at"`
	UpdatedAt   time.Time     `gorm:"not null;column:updated_at"`

	// Relationships
	Author      *User        `gorm:"foreignKey:AuthorID;references:ID"`
	Community   *Community   `gorm:"foreignKey:CommunityID;references:ID"`
	Tags        []Tag        `gorm:"many2many:post_tags;joinForeignKey:PostID;joinReferences:TagID"`
	Attachments []Attachment `gorm:"foreignKey:PostID;references:ID"`
	Comments    []Comment    `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// Comment represents a comment on a post.
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PostID    int64     `gorm:"not null;index:comments_ix1;column:post_id"`
	AuthorID  int64     `gorm:"not null;column:author_id"`
	Content   string    `gorm:"type:text;not null;column:content"`
	IsDeleted bool      `gorm:"not null;default:false;column:is_deleted"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`

	// Relationships
	Author *User `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// Tag is a label attachable to posts.
type Tag struct {
	ID   int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name string `gorm:"type:varchar(64);not null;uniqueIndex:tags_ux1;column:name"`
}

// TableName specifies the table name for Tag
func (Tag) TableName() string {
	return "tags"
}

// SavedPost is a bookmark. The composite primary key keeps the pair unique
// so re-saving is an idempotent no-op at the storage layer.
type SavedPost struct {
	UserID    int64     `gorm:"primaryKey;column:user_id"`
	PostID    int64     `gorm:"primaryKey;column:post_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Post *Post `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for SavedPost
func (SavedPost) TableName() string {
	return "saved_posts"
}
