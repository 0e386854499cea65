package models

import "time"

// ChatThread is a conversation between participants.
type ChatThread struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Participants []ChatParticipant `gorm:"foreignKey:ThreadID;references:ID"`
}

// TableName specifies the table name for ChatThread
func (ChatThread) TableName() string {
	return "chat_threads"
}

// ChatParticipant links a user to a thread.
type ChatParticipant struct {
	ThreadID  int64     `gorm:"primaryKey;column:thread_id"`
	UserID    int64     `gorm:"primaryKey;column:user_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for ChatParticipant
func (ChatParticipant) TableName() string {
	return "chat_participants"
}

// ChatMessage is one message in a thread.
type ChatMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ThreadID  int64     `gorm:"not null;index:chat_messages_ix1;column:thread_id"`
	SenderID  int64     `gorm:"not null;column:sender_id"`
	Content   string    `gorm:"type:text;not null;column:content"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Sender *User `gorm:"foreignKey:SenderID;references:ID"`
}

// TableName specifies the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}
