package models

import "time"

// Poll belongs to exactly one post. Single-choice polls allow at most one
// vote per (poll, user); the constraint lives in the vote upsert, not in
// the schema.
type Poll struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PostID       int64     `gorm:"not null;uniqueIndex:polls_ux1;column:post_id"`
	Question     string    `gorm:"type:varchar(500);not null;column:question"`
	SingleChoice bool      `gorm:"not null;default:true;column:single_choice"`
	CreatedAt    time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Options []PollOption `gorm:"foreignKey:PollID;references:ID"`
}

// TableName specifies the table name for Poll
func (Poll) TableName() string {
	return "polls"
}

// PollOption is one choice in a poll, ordered by Index.
type PollOption struct {
	ID     int64  `gorm:"primaryKey;autoIncrement;column:id"`
	PollID int64  `gorm:"not null;index:poll_options_ix1;column:poll_id"`
	Index  int    `gorm:"not null;column:idx"`
	Label  string `gorm:"type:varchar(300);not null;column:label"`
}

// TableName specifies the table name for PollOption
func (PollOption) TableName() string {
	return "poll_options"
}

// PollVote links a user to one option of a poll.
type PollVote struct {
	PollID    int64     `gorm:"primaryKey;column:poll_id"`
	UserID    int64     `gorm:"primaryKey;column:user_id"`
	OptionID  int64     `gorm:"not null;column:option_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PollVote
func (PollVote) TableName() string {
	return "poll_votes"
}
