package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/huddlehq/huddle/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn inside a database transaction
func (r *Repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateWithCredential creates a user and their password credential in one
// transaction so a failure leaves neither row behind.
func (r *UserRepository) CreateWithCredential(ctx context.Context, user *models.User, passwordHash string) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		cred := &models.CredentialAccount{
			UserID:       user.ID,
			PasswordHash: passwordHash,
		}
		return tx.Create(cred).Error
	})
}

// GetCredential retrieves a user's password credential
func (r *UserRepository) GetCredential(ctx context.Context, userID int64) (*models.CredentialAccount, error) {
	var cred models.CredentialAccount
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

// Update updates a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// ListByOrg retrieves all users belonging to an organization
func (r *UserRepository) ListByOrg(ctx context.Context, orgID int64) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetOrgMembership assigns a user to an org with a role
func (r *UserRepository) SetOrgMembership(ctx context.Context, userID, orgID int64, role models.OrgRole) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"org_id": orgID, "org_role": role}).Error
}

// RemoveOrgMembership clears a user's org membership
func (r *UserRepository) RemoveOrgMembership(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"org_id": nil, "org_role": models.OrgRoleMember}).Error
}

// OrganizationRepository provides organization-related database operations
type OrganizationRepository struct {
	*Repository
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(repo *Repository) *OrganizationRepository {
	return &OrganizationRepository{Repository: repo}
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

// CreateWithOwner creates an organization and makes the creator its org
// admin in one transaction, so a failure never leaves an org without an
// admin.
func (r *OrganizationRepository) CreateWithOwner(ctx context.Context, org *models.Organization, creatorID int64) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", creatorID).
			Updates(map[string]interface{}{"org_id": org.ID, "org_role": models.OrgRoleAdmin}).Error
	})
}

// Update updates an organization
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}
