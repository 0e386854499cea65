// Package actor resolves the authenticated request user into the role
// triple the permission evaluator consumes.
package actor

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle/internal/api/apierr"
	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/permissions"
)

// Require returns the authenticated user or an auth error for anonymous
// requests.
func Require(c *gin.Context) (*models.User, error) {
	user := auth.CurrentUser(c)
	if user == nil {
		return nil, apierr.NewAuthError("authentication required")
	}
	return user, nil
}

// Viewer returns the authenticated user or nil for anonymous requests.
func Viewer(c *gin.Context) *models.User {
	return auth.CurrentUser(c)
}

// Subject builds the permission subject for a user acting on a community.
// Pass a nil community for org-scoped actions. Only an active membership
// row grants a community role; pending and banned rows grant nothing.
func Subject(ctx context.Context, members *db.MemberRepository, user *models.User, community *models.Community) (permissions.Subject, error) {
	sub := permissions.Subject{}
	if user == nil {
		return sub, nil
	}
	sub.UserID = user.ID
	sub.AppRole = user.AppRole
	if user.OrgID.Valid {
		sub.HasOrg = true
		sub.OrgRole = user.OrgRole
	}

	if community != nil {
		member, err := members.Get(ctx, community.ID, user.ID)
		if err != nil {
			return sub, err
		}
		if member != nil && member.Status == models.MemberStatusActive {
			sub.HasCommunity = true
			sub.CommunityRole = member.Role
		}
	}
	return sub, nil
}

// CommunityResource describes a community-scoped target for the
// evaluator. OwnerID is zero when ownership is irrelevant to the action.
func CommunityResource(user *models.User, community *models.Community, ownerID int64) permissions.Resource {
	res := permissions.Resource{
		OwnerID: ownerID,
		Community: &permissions.CommunityScope{
			Type:                community.Type,
			PostCreationMinRole: community.PostCreationMinRole,
		},
	}
	if community.OrgID.Valid {
		res.OrgOwned = true
		res.SameOrg = user != nil && user.OrgID.Valid && user.OrgID.Int64 == community.OrgID.Int64
	}
	return res
}

// OrgResource describes an org-wide target.
func OrgResource(user *models.User, orgID int64, ownerID int64) permissions.Resource {
	return permissions.Resource{
		OwnerID:  ownerID,
		OrgOwned: true,
		SameOrg:  user != nil && user.OrgID.Valid && user.OrgID.Int64 == orgID,
	}
}
