// Package organizations implements the organizations.* JSON-RPC methods.
package organizations

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/api/actor"
	"github.com/huddlehq/huddle/internal/api/apierr"
	"github.com/huddlehq/huddle/internal/api/params"
	"github.com/huddlehq/huddle/internal/content"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/mailer"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/permissions"
	"github.com/huddlehq/huddle/pkg/logging"
)

// API implements the organizations method group.
type API struct {
	orgs    *db.OrganizationRepository
	users   *db.UserRepository
	content *content.Service
	mail    *mailer.Mailer
	logger  *zap.Logger
}

// NewAPI creates the organizations API
func NewAPI(repo *db.Repository, contentSvc *content.Service, mail *mailer.Mailer) *API {
	return &API{
		orgs:    db.NewOrganizationRepository(repo),
		users:   db.NewUserRepository(repo),
		content: contentSvc,
		mail:    mail,
		logger:  logging.WithComponent("organizations_api"),
	}
}

// OrgView is the organization shape returned to clients.
type OrgView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// MemberView is the org member shape returned to clients.
type MemberView struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	OrgRole   string `json:"orgRole"`
}

func orgView(org *models.Organization) *OrgView {
	return &OrgView{ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt.Unix()}
}

func memberView(user *models.User) *MemberView {
	return &MemberView{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		OrgRole:   string(user.OrgRole),
	}
}

type createParams struct {
	Name string `json:"name" validate:"required,max=120"`
}

// Create makes a new organization. The creator joins it as org admin;
// a user already in an org cannot create another one.
func (a *API) Create(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	if user.OrgID.Valid {
		return nil, apierr.NewValidationError("user already belongs to an organization")
	}

	var p createParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	org := &models.Organization{Name: p.Name}
	if err := a.orgs.CreateWithOwner(ctx, org, user.ID); err != nil {
		a.logger.Error("Failed to create organization", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return orgView(org), nil
}

type getParams struct {
	OrgID int64 `json:"orgId" validate:"required,gt=0"`
}

// Get returns an organization, members only.
func (a *API) Get(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p getParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	org, err := a.orgs.GetByID(ctx, p.OrgID)
	if err != nil {
		a.logger.Error("Failed to load organization", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	if org == nil {
		return nil, apierr.NewNotFoundError("organization %d not found", p.OrgID)
	}

	sub, err := actor.Subject(ctx, nil, user, nil)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if !permissions.Allowed(sub, permissions.ActionViewOrg, actor.OrgResource(user, org.ID, 0)) {
		return nil, apierr.NewForbiddenError("not a member of this organization")
	}
	return orgView(org), nil
}

// ListMembers returns the organization's members.
func (a *API) ListMembers(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p getParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	sub, err := actor.Subject(ctx, nil, user, nil)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if !permissions.Allowed(sub, permissions.ActionViewOrg, actor.OrgResource(user, p.OrgID, 0)) {
		return nil, apierr.NewForbiddenError("not a member of this organization")
	}

	users, err := a.users.ListByOrg(ctx, p.OrgID)
	if err != nil {
		a.logger.Error("Failed to list org members", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	views := make([]*MemberView, len(users))
	for i, u := range users {
		views[i] = memberView(u)
	}
	return views, nil
}

type addMemberParams struct {
	OrgID int64  `json:"orgId" validate:"required,gt=0"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// AddMember puts an existing user into the organization and sends them
// an invite email best-effort.
func (a *API) AddMember(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p addMemberParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	role, ok := models.ParseOrgRole(p.Role)
	if !ok {
		return nil, apierr.NewValidationError("invalid org role: %s", p.Role)
	}

	ctx := c.Request.Context()
	sub, err := actor.Subject(ctx, nil, user, nil)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if !permissions.Allowed(sub, permissions.ActionManageOrgMembers, actor.OrgResource(user, p.OrgID, 0)) {
		return nil, apierr.NewForbiddenError("org admin role required")
	}

	target, err := a.users.GetByEmail(ctx, p.Email)
	if err != nil {
		a.logger.Error("Failed to look up user", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	if target == nil {
		return nil, apierr.NewNotFoundError("no user with email %s", p.Email)
	}
	if target.OrgID.Valid {
		return nil, apierr.NewValidationError("user already belongs to an organization")
	}

	if err := a.users.SetOrgMembership(ctx, target.ID, p.OrgID, role); err != nil {
		a.logger.Error("Failed to add org member", zap.Error(err))
		return nil, apierr.NewInternalError()
	}

	if org, err := a.orgs.GetByID(ctx, p.OrgID); err == nil && org != nil {
		a.mail.SendOrgInvite(target.Email, org.Name)
	}

	target.OrgID.Int64, target.OrgID.Valid = p.OrgID, true
	target.OrgRole = role
	return memberView(target), nil
}

type memberParams struct {
	OrgID  int64 `json:"orgId" validate:"required,gt=0"`
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

// RemoveMember takes a user out of the organization.
func (a *API) RemoveMember(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p memberParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	sub, err := actor.Subject(ctx, nil, user, nil)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if !permissions.Allowed(sub, permissions.ActionManageOrgMembers, actor.OrgResource(user, p.OrgID, 0)) {
		return nil, apierr.NewForbiddenError("org admin role required")
	}

	target, err := a.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if target == nil || !target.OrgID.Valid || target.OrgID.Int64 != p.OrgID {
		return nil, apierr.NewNotFoundError("user %d is not a member of organization %d", p.UserID, p.OrgID)
	}

	if err := a.users.RemoveOrgMembership(ctx, p.UserID); err != nil {
		a.logger.Error("Failed to remove org member", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"removed": true}, nil
}

type setRoleParams struct {
	OrgID  int64  `json:"orgId" validate:"required,gt=0"`
	UserID int64  `json:"userId" validate:"required,gt=0"`
	Role   string `json:"role" validate:"required"`
}

// SetMemberRole changes a member's org role.
func (a *API) SetMemberRole(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p setRoleParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	role, ok := models.ParseOrgRole(p.Role)
	if !ok {
		return nil, apierr.NewValidationError("invalid org role: %s", p.Role)
	}

	ctx := c.Request.Context()
	sub, err := actor.Subject(ctx, nil, user, nil)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if !permissions.Allowed(sub, permissions.ActionManageOrgMembers, actor.OrgResource(user, p.OrgID, 0)) {
		return nil, apierr.NewForbiddenError("org admin role required")
	}

	target, err := a.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if target == nil || !target.OrgID.Valid || target.OrgID.Int64 != p.OrgID {
		return nil, apierr.NewNotFoundError("user %d is not a member of organization %d", p.UserID, p.OrgID)
	}

	if err := a.users.SetOrgMembership(ctx, p.UserID, p.OrgID, role); err != nil {
		a.logger.Error("Failed to set org member role", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	target.OrgRole = role
	return memberView(target), nil
}

type feedParams struct {
	OrgID  int64 `json:"orgId" validate:"required,gt=0"`
	Limit  int   `json:"limit" validate:"omitempty,gt=0"`
	Offset int   `json:"offset" validate:"omitempty,gte=0"`
}

// Feed returns the org-wide post feed, newest first.
func (a *API) Feed(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p feedParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	sub, err := actor.Subject(ctx, nil, user, nil)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if !permissions.Allowed(sub, permissions.ActionViewOrg, actor.OrgResource(user, p.OrgID, 0)) {
		return nil, apierr.NewForbiddenError("not a member of this organization")
	}

	views, err := a.content.OrgFeed(ctx, p.OrgID, p.Limit, p.Offset)
	if err != nil {
		a.logger.Error("Failed to build org feed", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return views, nil
}
