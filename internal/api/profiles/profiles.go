// Package profiles implements the profiles.* JSON-RPC methods: profile
// reads and edits, saved posts and push subscriptions.
package profiles

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/api/actor"
	"github.com/huddlehq/huddle/internal/api/apierr"
	"github.com/huddlehq/huddle/internal/api/params"
	"github.com/huddlehq/huddle/internal/content"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/pkg/logging"
)

// API implements the profiles method group.
type API struct {
	users   *db.UserRepository
	push    *db.PushRepository
	content *content.Service
	logger  *zap.Logger
}

// NewAPI creates the profiles API
func NewAPI(repo *db.Repository, contentSvc *content.Service) *API {
	return &API{
		users:   db.NewUserRepository(repo),
		push:    db.NewPushRepository(repo),
		content: contentSvc,
		logger:  logging.WithComponent("profiles_api"),
	}
}

// View is the profile shape returned to clients. Email is included only
// for the caller's own profile.
type View struct {
	ID        int64  `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	AppRole   string `json:"appRole,omitempty"`
	OrgID     *int64 `json:"orgId,omitempty"`
	OrgRole   string `json:"orgRole,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

func view(user *models.User, self bool) *View {
	v := &View{
		ID:        user.ID,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt.Unix(),
	}
	if self {
		v.Email = user.Email
		v.AppRole = string(user.AppRole)
		if user.OrgID.Valid {
			orgID := user.OrgID.Int64
			v.OrgID = &orgID
			v.OrgRole = string(user.OrgRole)
		}
	}
	return v
}

type getParams struct {
	UserID int64 `json:"userId" validate:"omitempty,gt=0"`
}

// Get returns a profile. Without userId it returns the caller's own,
// with private fields included.
func (a *API) Get(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p getParams
	if len(raw) > 0 {
		if err := params.Bind(raw, &p); err != nil {
			return nil, err
		}
	}

	if p.UserID == 0 || p.UserID == user.ID {
		return view(user, true), nil
	}

	target, err := a.users.GetByID(c.Request.Context(), p.UserID)
	if err != nil {
		a.logger.Error("Failed to load profile", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	if target == nil {
		return nil, apierr.NewNotFoundError("user %d not found", p.UserID)
	}
	return view(target, false), nil
}

type updateParams struct {
	Name      *string `json:"name" validate:"omitempty,max=120"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,max=1024"`
}

// Update edits the caller's own profile.
func (a *API) Update(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p updateParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	if p.Name != nil {
		user.Name = *p.Name
	}
	if p.AvatarURL != nil {
		user.AvatarURL = *p.AvatarURL
	}
	if err := a.users.Update(c.Request.Context(), user); err != nil {
		a.logger.Error("Failed to update profile", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return view(user, true), nil
}

type savedPostsParams struct {
	Limit  int    `json:"limit" validate:"omitempty,gt=0"`
	Offset int    `json:"offset" validate:"omitempty,gte=0"`
	Sort   string `json:"sort" validate:"omitempty"`
}

// SavedPosts returns a page of the caller's bookmarked posts.
func (a *API) SavedPosts(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	p := savedPostsParams{Limit: 20, Sort: string(content.SortLatest)}
	if len(raw) > 0 {
		if err := params.Bind(raw, &p); err != nil {
			return nil, err
		}
		if p.Limit == 0 {
			p.Limit = 20
		}
		if p.Sort == "" {
			p.Sort = string(content.SortLatest)
		}
	}
	sort, ok := content.ParseSort(p.Sort)
	if !ok {
		return nil, apierr.NewValidationError("invalid sort: %s", p.Sort)
	}

	page, err := a.content.SavedPosts(c.Request.Context(), user.ID, content.SavedPostsQuery{
		Limit:  p.Limit,
		Offset: p.Offset,
		Sort:   sort,
	})
	if err != nil {
		a.logger.Error("Failed to build saved posts page", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return page, nil
}

type subscribeParams struct {
	Endpoint string `json:"endpoint" validate:"required,url,max=1024"`
	P256dh   string `json:"p256dh" validate:"required,max=256"`
	Auth     string `json:"auth" validate:"required,max=256"`
}

// SubscribePush registers a device push subscription. Re-registering an
// endpoint refreshes its keys in place.
func (a *API) SubscribePush(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	user, err := actor.Require(c)
	if err != nil {
		return nil, err
	}
	var p subscribeParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	sub := &models.PushSubscription{
		UserID:   user.ID,
		Endpoint: p.Endpoint,
		P256dh:   p.P256dh,
		Auth:     p.Auth,
	}
	if err := a.push.Upsert(c.Request.Context(), sub); err != nil {
		a.logger.Error("Failed to register push subscription", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"subscribed": true}, nil
}

type unsubscribeParams struct {
	Endpoint string `json:"endpoint" validate:"required,max=1024"`
}

// UnsubscribePush removes a device push subscription.
func (a *API) UnsubscribePush(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	if _, err := actor.Require(c); err != nil {
		return nil, err
	}
	var p unsubscribeParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	if err := a.push.DeleteByEndpoint(c.Request.Context(), p.Endpoint); err != nil {
		a.logger.Error("Failed to remove push subscription", zap.Error(err))
		return nil, apierr.NewInternalError()
	}
	return gin.H{"subscribed": false}, nil
}
