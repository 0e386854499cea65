package permissions

import "github.com/huddlehq/huddle/internal/models"

// Action is an operation subject to permission checks.
type Action string

// Actions
const (
	ActionCreatePost             Action = "create_post"
	ActionEditPost               Action = "edit_post"
	ActionDeletePost             Action = "delete_post"
	ActionAddMember              Action = "add_member"
	ActionRemoveMember           Action = "remove_member"
	ActionManageCommunityMembers Action = "manage_community_members"
	ActionManageOrgMembers       Action = "manage_org_members"
	ActionViewCommunity          Action = "view_community"
	ActionViewPost               Action = "view_post"
	ActionViewOrg                Action = "view_org"
	ActionEditCommunity          Action = "edit_community"
	ActionDeleteCommunity        Action = "delete_community"
	ActionCreateCommunity        Action = "create_community"
)

// Subject is the actor's resolved role triple. CommunityRole is meaningful
// only when HasCommunity is true (an active, non-banned membership row);
// OrgRole only when HasOrg is true.
type Subject struct {
	UserID        int64
	AppRole       models.AppRole
	HasOrg        bool
	OrgRole       models.OrgRole
	HasCommunity  bool
	CommunityRole models.CommunityRole
}

// CommunityScope describes the community owning the resource.
type CommunityScope struct {
	Type                models.CommunityType
	PostCreationMinRole models.CommunityRole
}

// Resource describes what the action targets. Community is nil for
// org-wide resources. SameOrg is true when the subject's org owns the
// resource (always false for subjects with no org).
type Resource struct {
	OwnerID   int64
	Community *CommunityScope
	OrgOwned  bool
	SameOrg   bool
}

// Allowed evaluates whether the subject may perform the action on the
// resource. It never errors: callers map false to a forbidden result
// before any write happens.
//
// App-level admin short-circuits to allow. Otherwise the community scope
// is consulted before the org scope for community-scoped resources, and
// edit/delete of a post additionally requires authorship unless the actor
// holds a moderation role in the owning scope.
func Allowed(sub Subject, action Action, res Resource) bool {
	if sub.AppRole == models.AppRoleAdmin {
		return true
	}

	switch action {
	case ActionViewCommunity, ActionViewPost, ActionViewOrg:
		return canView(sub, res)

	case ActionCreatePost:
		if res.Community != nil {
			if sub.HasCommunity && sub.CommunityRole.AtLeast(res.Community.PostCreationMinRole) {
				return true
			}
			return orgAdmin(sub, res)
		}
		// Org-wide posts: any member of the owning org.
		return res.SameOrg

	case ActionEditPost, ActionDeletePost:
		if isModerator(sub, res) {
			return true
		}
		if sub.UserID != res.OwnerID {
			return false
		}
		// Authors keep edit/delete only while they can still see the post.
		return canView(sub, res)

	case ActionAddMember, ActionRemoveMember, ActionManageCommunityMembers:
		if res.Community != nil && sub.HasCommunity && sub.CommunityRole.AtLeast(models.CommunityRoleModerator) {
			return true
		}
		return orgAdmin(sub, res)

	case ActionManageOrgMembers:
		return orgAdmin(sub, res)

	case ActionEditCommunity:
		if res.Community != nil && sub.HasCommunity && sub.CommunityRole.AtLeast(models.CommunityRoleAdmin) {
			return true
		}
		return orgAdmin(sub, res)

	case ActionDeleteCommunity:
		if res.Community != nil && sub.HasCommunity && sub.CommunityRole == models.CommunityRoleAdmin {
			return true
		}
		return orgAdmin(sub, res)

	case ActionCreateCommunity:
		if res.OrgOwned {
			return orgAdmin(sub, res)
		}
		// Standalone communities: any authenticated user; the creator
		// becomes its admin.
		return sub.UserID != 0
	}

	return false
}

// canView implements the visibility rules shared by view_community and
// view_post.
func canView(sub Subject, res Resource) bool {
	if res.Community != nil {
		if res.Community.Type == models.CommunityTypePublic {
			return true
		}
		return sub.HasCommunity || orgAdmin(sub, res)
	}
	// Org-wide content is visible to the owning org only.
	return res.SameOrg
}

// isModerator reports whether the subject holds a moderation role in the
// resource's owning scope.
func isModerator(sub Subject, res Resource) bool {
	if res.Community != nil && sub.HasCommunity && sub.CommunityRole.AtLeast(models.CommunityRoleModerator) {
		return true
	}
	return orgAdmin(sub, res)
}

func orgAdmin(sub Subject, res Resource) bool {
	return res.SameOrg && sub.HasOrg && sub.OrgRole == models.OrgRoleAdmin
}
