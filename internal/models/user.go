package models

import (
	"database/sql"
	"time"
)

// AppRole is a user's application-level role.
type AppRole string

// OrgRole is a user's role inside their organization.
type OrgRole string

// App and org role values
const (
	AppRoleAdmin AppRole = "admin"
	AppRoleUser  AppRole = "user"

	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// ParseAppRole validates an app role string.
func ParseAppRole(s string) (AppRole, bool) {
	switch AppRole(s) {
	case AppRoleAdmin, AppRoleUser:
		return AppRole(s), true
	}
	return "", false
}

// ParseOrgRole validates an org role string.
func ParseOrgRole(s string) (OrgRole, bool) {
	switch OrgRole(s) {
	case OrgRoleAdmin, OrgRoleMember:
		return OrgRole(s), true
	}
	return "", false
}

// User represents an account. A user belongs to at most one organization
// at a time; OrgID null means no org membership.
type User struct {
	ID        int64         `gorm:"primaryKey;autoIncrement;column:id"`
	Email     string        `gorm:"type:varchar(254);not null;uniqueIndex:users_ux1;column:email"`
	Name      string        `gorm:"type:varchar(120);not null;default:'';column:name"`
	AvatarURL string        `gorm:"type:varchar(1024);not null;default:'';column:avatar_url"`
	AppRole   AppRole       `gorm:"type:varchar(16);not null;default:'user';column:app_role"`
	OrgID     sql.NullInt64 `gorm:"column:org_id"`
	OrgRole   OrgRole       `gorm:"type:varchar(16);not null;default:'member';column:org_role"`
	CreatedAt time.Time     `gorm:"not null;column:created_at"`
	UpdatedAt time.Time     `gorm:"not null;column:updated_at"`

	// Relationships
	Org *Organization `gorm:"foreignKey:OrgID;references:ID"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// CredentialAccount holds a user's password credential. Kept separate from
// the user row so third-party identities can coexist with passwords.
type CredentialAccount struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID       int64     `gorm:"not null;uniqueIndex:credential_accounts_ux1;column:user_id"`
	PasswordHash string    `gorm:"type:varchar(120);not null;column:password_hash"`
	CreatedAt    time.Time `gorm:"not null;column:created_at"`

	User *User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for CredentialAccount
func (CredentialAccount) TableName() string {
	return "credential_accounts"
}
