package models

import (
	"database/sql"
	"time"
)

// CommunityType is a community's visibility.
type CommunityType string

// CommunityRole is a member's role inside a community.
type CommunityRole string

// MemberStatus is a membership row's state.
type MemberStatus string

// Community visibility values
const (
	CommunityTypePublic  CommunityType = "public"
	CommunityTypePrivate CommunityType = "private"
)

// Community role values, weakest first
const (
	CommunityRoleMember    CommunityRole = "member"
	CommunityRoleModerator CommunityRole = "moderator"
	CommunityRoleAdmin     CommunityRole = "admin"
)

// Membership status values
const (
	MemberStatusActive  MemberStatus = "active"
	MemberStatusPending MemberStatus = "pending"
	MemberStatusBanned  MemberStatus = "banned"
)

// ParseCommunityType validates a community type string.
func ParseCommunityType(s string) (CommunityType, bool) {
	switch CommunityType(s) {
	case CommunityTypePublic, CommunityTypePrivate:
		return CommunityType(s), true
	}
	return "", false
}

// ParseCommunityRole validates a community role string.
func ParseCommunityRole(s string) (CommunityRole, bool) {
	switch CommunityRole(s) {
	case CommunityRoleMember, CommunityRoleModerator, CommunityRoleAdmin:
		return CommunityRole(s), true
	}
	return "", false
}

// AtLeast reports whether r grants everything min grants.
func (r CommunityRole) AtLeast(min CommunityRole) bool {
	return r.rank() >= min.rank()
}

func (r CommunityRole) rank() int {
	switch r {
	case CommunityRoleAdmin:
		return 3
	case CommunityRoleModerator:
		return 2
	case CommunityRoleMember:
		return 1
	}
	return 0
}

// Community represents a community. OrgID null means the community is
// standalone rather than org-owned.
type Community struct {
	ID                  int64         `gorm:"primaryKey;autoIncrement;column:id"`
	Slug                string        `gorm:"type:varchar(64);not null;uniqueIndex:communities_ux1;column:slug"`
	Name                string        `gorm:"type:varchar(120);not null;column:name"`
	Description         string        `gorm:"type:varchar(5000);not null;default:'';column:description"`
	Type                CommunityType `gorm:"type:varchar(16);not null;default:'public';column:type"`
	PostCreationMinRole CommunityRole `gorm:"type:varchar(16);not null;default:'member';column:post_creation_min_role"`
	OrgID               sql.NullInt64 `gorm:"column:org_id"`
	CreatorID           int64         `gorm:"not null;column:creator_id"`
	AvatarURL           string        `gorm:"type:varchar(1024);not null;default:'';column:avatar_url"`
	CreatedAt           time.Time     `gorm:"not null;column:created_at"`
	UpdatedAt           time.Time     `gorm:"not null;column:updated_at"`

	// Relationships
	Org     *Organization `gorm:"foreignKey:OrgID;references:ID"`
	Creator *User         `gorm:"foreignKey:CreatorID;references:ID"`
}

// TableName specifies the table name for Community
func (Community) TableName() string {
	return "communities"
}

// CommunityMember links a user to a community. At most one row per
// (user, community) pair.
type CommunityMember struct {
	CommunityID int64         `gorm:"primaryKey;column:community_id"`
	UserID      int64         `gorm:"primaryKey;column:user_id"`
	Role        CommunityRole `gorm:"type:varchar(16);not null;default:'member';column:role"`
	Status      MemberStatus  `gorm:"type:varchar(16);not null;default:'active';column:status"`
	CreatedAt   time.Time     `gorm:"not null;column:created_at"`

	// Relationships
	Community *Community `gorm:"foreignKey:CommunityID;references:ID"`
	User      *User      `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for CommunityMember
func (CommunityMember) TableName() string {
	return "community_members"
}
