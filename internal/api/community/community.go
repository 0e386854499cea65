// Package community implements the community.* and communities.* JSON-RPC
// methods.
package community

import (
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/internal/api/actor"
	"github.com/huddlehq/huddle/internal/api/apierr"
	"github.com/huddlehq/huddle/internal/api/params"
	"github.com/huddlehq/huddle/internal/content"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/notify"
	"github.com/huddlehq/huddle/internal/permissions"
	"github.com/huddlehq/huddle/pkg/logging"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// API implements the community method groups.
type API struct {
	communities *db.CommunityRepository
	members     *db.MemberRepository
	users       *db.UserRepository
	content     *content.Service
	notifier    *notify.Notifier
	logger      *zap.Logger
}

// NewAPI creates the community API
func NewAPI(repo *db.Repository, contentSvc *content.Service, notifier *notify.Notifier) *API {
	return &API{
		communities: db.NewCommunityRepository(repo),
		members:     db.NewMemberRepository(repo),
		users:       db.NewUserRepository(repo),
		content:     contentSvc,
		notifier:    notifier,
		logger:      logging.WithComponent("community_api"),
	}
}

// View is the community shape returned to clients.
type View struct {
	ID                  int64  `json:"id"`
	Slug                string `json:"slug"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	Type                string `json:"type"`
	PostCreationMinRole string `json:"postCreationMinRole"`
	OrgID               *int64 `json:"orgId,omitempty"`
	AvatarURL           string `json:"avatarUrl,omitempty"`
	CreatedAt           int64  `json:"createdAt"`
}

// MemberView is the community member shape returned to clients.
type MemberView struct {
	UserID    int64  `json:"userId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	JoinedAt  int64  `json:"joinedAt"`
}

func view(community *models.Community) *View {
	v := &View{
		ID:                  community.ID,
		Slug:                community.Slug,
		Name:                community.Name,
		Description:         community.Description,
		Type:                string(community.Type),
		PostCreationMinRole: string(community.PostCreationMinRole),
		AvatarURL:           community.AvatarURL,
		CreatedAt:           community.CreatedAt.Unix(),
	}
	if community.OrgID.Valid {
		orgID := community.OrgID.Int64
		v.OrgID = &orgID
	}
	return v
}

func memberView(member *models.CommunityMember) *MemberView {
	v := &MemberView{
		UserID:   member.UserID,
		Role:     string(member.Role),
		Status:   string(member.Status),
		JoinedAt: member.CreatedAt.Unix(),
	}
	if member.User != nil {
		v.Name = member.User.Name
		v.AvatarURL = member.User.AvatarURL
	}
	return v
}

// load fetches a community by id, 404 when absent.
func (a *API) load(c *gin.Context, id int64) (*models.Community, error) {
	community, err := a.communities.GetByID(c.Request.Context(), id)
	if err != nil {
		a.logger.Error("Failed to load community", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	if community == nil {
		return nil, apierr.NewNotFoundError("community %d not found", id)
	}
	return community, nil
}

// check evaluates an action for the current user against a community.
func (a *API) check(c *gin.Context, user *models.User, community *models.Community, action permissions.Action, ownerID int64) error {
	sub, err := actor.Subject(c.Request.Context(), a.members, user, community)
	if err != nil {
		a.logger.Error("Failed to resolve membership", zap.Error(err))
		return apierr.NewInternalError()
	}
	if !permissions.Allowed(sub, action, actor.CommunityResource(user, community, ownerID)) {
		return apierr.NewForbiddenError("permission denied")
	}
	return nil
}

type getParams struct {
	CommunityID int64  `json:"communityId" validate:"omitempty,gt=0"`
	Slug        string `json:"slug" validate:"omitempty,max=64"`
}

// Get returns a community by id or slug. Private communities are visible
// to members, org admins and app admins only.
func (a *API) Get(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p getParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	if p.CommunityID == 0 && p.Slug == "" {
		return nil, apierr.NewValidationError("communityId or slug is required")
	}

	ctx := c.Request.Context()
	var community *models.Community
	var err error
	if p.CommunityID != 0 {
		community, err = a.communities.GetByID(ctx, p.CommunityID)
	} else {
		community, err = a.communities.GetBySlug(ctx, p.Slug)
	}
	if err != nil {
		a.logger.Error("Failed to load community", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	if community == nil {
		return nil, apierr.NewNotFoundError("community not found")
	}

	user := actor.Viewer(c)
	if err := a.check(c, user, community, permissions.ActionViewCommunity, 0); err != nil {
		// Hide the existence of private communities from outsiders.
		return nil, apierr.NewNotFoundError("community not found")
	}
	return view(community), nil
}

type createParams struct {
	Slug                string `json:"slug" validate:"required,max=64"`
	Name                string `json:"name" validate:"required,max=120"`
	Description         string `json:"description" validate:"max=5000"`
	Type                string `json:"type" validate:"required"`
	PostCreationMinRole string `json:"postCreationMinRole" validate:"omitempty"`
	OrgID               *int64 `json:"orgId" validate:"omitempty,gt=0"`
}

// Create makes a community. Org-owned creation requires org admin; a
// standalone community can be created by any user. The creator becomes
// the community's admin in the same transaction.
func (a *API) Create(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p createParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	if !slugPattern.MatchString(p.Slug) {
		return nil, apierr.NewValidationError("invalid slug: %s", p.Slug)
	}
	cType, ok := models.ParseCommunityType(p.Type)
	if !ok {
		return nil, apierr.NewValidationError("invalid community type: %s", p.Type)
	}
	minRole := models.CommunityRoleMember
	if p.PostCreationMinRole != "" {
		minRole, ok = models.ParseCommunityRole(p.PostCreationMinRole)
		if !ok {
			return nil, apierr.NewValidationError("invalid role: %s", p.PostCreationMinRole)
		}
	}

	ctx := c.Request.Context()
	community := &models.Community{
		Slug:                p.Slug,
		Name:                p.Name,
		Description:         p.Description,
		Type:                cType,
		PostCreationMinRole: minRole,
		CreatorID:           user.ID,
	}
	if p.OrgID != nil {
		community.OrgID = sql.NullInt64{Int64: *p.OrgID, Valid: true}
	}

	sub, err := actor.Subject(ctx, a.members, user, nil)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if !permissions.Allowed(sub, permissions.ActionCreateCommunity, actor.CommunityResource(user, community, 0)) {
		return nil, apierr.NewForbiddenError("org admin role required for org-owned communities")
	}

	existing, err := a.communities.GetBySlug(ctx, p.Slug)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if existing != nil {
		return nil, apierr.NewValidationError("slug already in use: %s", p.Slug)
	}

	if err := a.communities.CreateWithOwner(ctx, community); err != nil {
		// The slug pre-check races with concurrent creates; the unique
		// index has the final word.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.NewValidationError("slug already in use: %s", p.Slug)
		}
		a.logger.Error("Failed to create community", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return view(community), nil
}

type updateParams struct {
	CommunityID         int64   `json:"communityId" validate:"required,gt=0"`
	Name                *string `json:"name" validate:"omitempty,max=120"`
	Description         *string `json:"description" validate:"omitempty,max=5000"`
	Type                *string `json:"type"`
	PostCreationMinRole *string `json:"postCreationMinRole"`
	AvatarURL           *string `json:"avatarUrl" validate:"omitempty,max=1024"`
}

// Update edits community settings, community admin or org admin only.
func (a *API) Update(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p updateParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	community, err := a.load(c, p.CommunityID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, community, permissions.ActionEditCommunity, 0); err != nil {
		return nil, err
	}

	if p.Name != nil {
		community.Name = *p.Name
	}
	if p.Description != nil {
		community.Description = *p.Description
	}
	if p.AvatarURL != nil {
		community.AvatarURL = *p.AvatarURL
	}
	if p.Type != nil {
		cType, ok := models.ParseCommunityType(*p.Type)
		if !ok {
			return nil, apierr.NewValidationError("invalid community type: %s", *p.Type)
		}
		community.Type = cType
	}
	if p.PostCreationMinRole != nil {
		role, ok := models.ParseCommunityRole(*p.PostCreationMinRole)
		if !ok {
			return nil, apierr.NewValidationError("invalid role: %s", *p.PostCreationMinRole)
		}
		community.PostCreationMinRole = role
	}

	if err := a.communities.Update(c.Request.Context(), community); err != nil {
		a.logger.Error("Failed to update community", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return view(community), nil
}

type idParams struct {
	CommunityID int64 `json:"communityId" validate:"required,gt=0"`
}

// Delete removes a community and its memberships. Community admin only;
// a moderator cannot delete.
func (a *API) Delete(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p idParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	community, err := a.load(c, p.CommunityID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, community, permissions.ActionDeleteCommunity, 0); err != nil {
		return nil, err
	}

	if err := a.communities.Delete(c.Request.Context(), p.CommunityID); err != nil {
		a.logger.Error("Failed to delete community", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"deleted": true}, nil
}

// Join adds the caller to a community. Public communities grant an
// active membership immediately; private ones create a pending row that
// a moderator approves. Re-joining is a no-op.
func (a *API) Join(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p idParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	community, err := a.load(c, p.CommunityID)
	if err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	existing, err := a.members.Get(ctx, p.CommunityID, user.ID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if existing != nil && existing.Status == models.MemberStatusBanned {
		return nil, apierr.NewForbiddenError("banned from this community")
	}

	status := models.MemberStatusActive
	if community.Type == models.CommunityTypePrivate {
		status = models.MemberStatusPending
	}
	member := &models.CommunityMember{
		CommunityID: p.CommunityID,
		UserID:      user.ID,
		Role:        models.CommunityRoleMember,
		Status:      status,
	}
	if err := a.members.Add(ctx, member); err != nil {
		a.logger.Error("Failed to join community", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	if existing != nil {
		return memberView(existing), nil
	}
	return memberView(member), nil
}

// Leave removes the caller's own membership. Leaving a community one is
// not in is a no-op.
func (a *API) Leave(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p idParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	if err := a.members.Remove(c.Request.Context(), p.CommunityID, user.ID); err != nil {
		a.logger.Error("Failed to leave community", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"left": true}, nil
}

type membersListParams struct {
	CommunityID int64 `json:"communityId" validate:"required,gt=0"`
	Limit       int   `json:"limit" validate:"omitempty,gt=0,lte=100"`
	Offset      int   `json:"offset" validate:"omitempty,gte=0"`
}

// ListMembers returns a community's members, oldest first.
func (a *API) ListMembers(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p membersListParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	community, err := a.load(c, p.CommunityID)
	if err != nil {
		return nil, err
	}
	user := actor.Viewer(c)
	if err := a.check(c, user, community, permissions.ActionViewCommunity, 0); err != nil {
		return nil, err
	}

	limit := p.Limit
	if limit == 0 {
		limit = 50
	}
	members, err := a.members.ListByCommunity(c.Request.Context(), p.CommunityID, limit, p.Offset)
	if err != nil {
		a.logger.Error("Failed to list members", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	views := make([]*MemberView, len(members))
	for i, m := range members {
		views[i] = memberView(m)
	}
	return views, nil
}

type addMemberParams struct {
	CommunityID int64  `json:"communityId" validate:"required,gt=0"`
	UserID      int64  `json:"userId" validate:"required,gt=0"`
	Role        string `json:"role" validate:"omitempty"`
}

// AddMember puts a user into the community directly, moderation roles
// only. Adding an existing member is a no-op.
func (a *API) AddMember(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p addMemberParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	role := models.CommunityRoleMember
	if p.Role != "" {
		var ok bool
		role, ok = models.ParseCommunityRole(p.Role)
		if !ok {
			return nil, apierr.NewValidationError("invalid role: %s", p.Role)
		}
	}

	community, err := a.load(c, p.CommunityID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, community, permissions.ActionAddMember, 0); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	target, err := a.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if target == nil {
		return nil, apierr.NewNotFoundError("user %d not found", p.UserID)
	}

	member := &models.CommunityMember{
		CommunityID: p.CommunityID,
		UserID:      p.UserID,
		Role:        role,
		Status:      models.MemberStatusActive,
	}
	if err := a.members.Add(ctx, member); err != nil {
		a.logger.Error("Failed to add member", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return memberView(member), nil
}

type memberParams struct {
	CommunityID int64 `json:"communityId" validate:"required,gt=0"`
	UserID      int64 `json:"userId" validate:"required,gt=0"`
}

// RemoveMember kicks a user out of the community, moderation roles only.
func (a *API) RemoveMember(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p memberParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	community, err := a.load(c, p.CommunityID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, community, permissions.ActionRemoveMember, 0); err != nil {
		return nil, err
	}

	if err := a.members.Remove(c.Request.Context(), p.CommunityID, p.UserID); err != nil {
		a.logger.Error("Failed to remove member", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"removed": true}, nil
}

type setRoleParams struct {
	CommunityID int64  `json:"communityId" validate:"required,gt=0"`
	UserID      int64  `json:"userId" validate:"required,gt=0"`
	Role        string `json:"role" validate:"required"`
}

// SetMemberRole changes a member's community role and notifies them.
func (a *API) SetMemberRole(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p setRoleParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	role, ok := models.ParseCommunityRole(p.Role)
	if !ok {
		return nil, apierr.NewValidationError("invalid role: %s", p.Role)
	}

	community, err := a.load(c, p.CommunityID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, community, permissions.ActionManageCommunityMembers, 0); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	member, err := a.members.Get(ctx, p.CommunityID, p.UserID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if member == nil {
		return nil, apierr.NewNotFoundError("user %d is not a member of community %d", p.UserID, p.CommunityID)
	}

	if err := a.members.SetRole(ctx, p.CommunityID, p.UserID, role); err != nil {
		a.logger.Error("Failed to set member role", zap.Error(err))
		return nil, apierr.NewInternalError()
	}

	a.notifier.Notify([]int64{p.UserID}, notify.Message{
		Type:        notify.TypeMemberRole,
		Title:       community.Name,
		Body:        "Your role is now " + string(role),
		CommunityID: community.ID,
	})

	member.Role = role
	return memberView(member), nil
}

// ApproveMember activates a pending membership, moderation roles only.
func (a *API) ApproveMember(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p memberParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	community, err := a.load(c, p.CommunityID)
	if err != nil {
		return nil, err
	}
	if err := a.check(c, user, community, permissions.ActionManageCommunityMembers, 0); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	member, err := a.members.Get(ctx, p.CommunityID, p.UserID)
	if err != nil {
		return nil, apierr.NewInternalError()
	}
	if member == nil {
		return nil, apierr.NewNotFoundError("user %d has not requested to join community %d", p.UserID, p.CommunityID)
	}

	if err := a.members.SetStatus(ctx, p.CommunityID, p.UserID, models.MemberStatusActive); err != nil {
		a.logger.Error("Failed to approve member", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	member.Status = models.MemberStatusActive
	return memberView(member), nil
}

type feedParams struct {
	CommunityID int64 `json:"communityId" validate:"required,gt=0"`
	Limit       int   `json:"limit" validate:"omitempty,gt=0"`
	Offset      int   `json:"offset" validate:"omitempty,gte=0"`
}

// Feed returns a community's post feed, newest first.
func (a *API) Feed(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p feedParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	community, err := a.load(c, p.CommunityID)
	if err != nil {
		return nil, err
	}
	user := actor.Viewer(c)
	if err := a.check(c, user, community, permissions.ActionViewCommunity, 0); err != nil {
		return nil, err
	}

	views, err := a.content.CommunityFeed(c.Request.Context(), p.CommunityID, p.Limit, p.Offset)
	if err != nil {
		a.logger.Error("Failed to build community feed", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return views, nil
}

type listParams struct {
	OrgID  *int64 `json:"orgId" validate:"omitempty,gt=0"`
	Search string `json:"search" validate:"omitempty,max=120"`
	Limit  int    `json:"limit" validate:"omitempty,gt=0,lte=100"`
	Offset int    `json:"offset" validate:"omitempty,gte=0"`
}

// List returns communities, optionally filtered by org and a name
// search. Private communities the caller cannot see are filtered out.
func (a *API) List(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p listParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	limit := p.Limit
	if limit == 0 {
		limit = 20
	}

	ctx := c.Request.Context()
	communities, err := a.communities.List(ctx, p.OrgID, p.Search, limit, p.Offset)
	if err != nil {
		a.logger.Error("Failed to list communities", zap.Error(err))
		return nil, apierr.NewInternalError()
	}

	user := actor.Viewer(c)
	views := make([]*View, 0, len(communities))
	for _, community := range communities {
		sub, err := actor.Subject(ctx, a.members, user, community)
		if err != nil {
			return nil, apierr.NewInternalError()
		}
		if !permissions.Allowed(sub, permissions.ActionViewCommunity, actor.CommunityResource(user, community, 0)) {
			continue
		}
		views = append(views, view(community))
	}
	return views, nil
}
