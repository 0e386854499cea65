package permissions

import (
	"testing"

	"github.com/huddlehq/huddle/internal/models"
)

func member(userID int64, role models.CommunityRole) Subject {
	return Subject{
		UserID:        userID,
		AppRole:       models.AppRoleUser,
		HasCommunity:  true,
		CommunityRole: role,
	}
}

func orgUser(userID int64, role models.OrgRole) Subject {
	return Subject{
		UserID:  userID,
		AppRole: models.AppRoleUser,
		HasOrg:  true,
		OrgRole: role,
	}
}

func publicCommunity(minRole models.CommunityRole) Resource {
	return Resource{
		Community: &CommunityScope{
			Type:                models.CommunityTypePublic,
			PostCreationMinRole: minRole,
		},
	}
}

func TestAppAdminShortCircuits(t *testing.T) {
	admin := Subject{UserID: 1, AppRole: models.AppRoleAdmin}

	actions := []Action{
		ActionCreatePost, ActionEditPost, ActionDeletePost,
		ActionAddMember, ActionRemoveMember, ActionManageCommunityMembers,
		ActionManageOrgMembers, ActionViewCommunity, ActionViewPost,
		ActionViewOrg, ActionEditCommunity, ActionDeleteCommunity,
		ActionCreateCommunity,
	}
	resources := []Resource{
		{},
		{OwnerID: 99},
		publicCommunity(models.CommunityRoleAdmin),
		{Community: &CommunityScope{Type: models.CommunityTypePrivate}},
		{OrgOwned: true},
	}

	for _, action := range actions {
		for _, res := range resources {
			if !Allowed(admin, action, res) {
				t.Errorf("app admin denied %s on %+v", action, res)
			}
		}
	}
}

func TestPostCreationMinRole(t *testing.T) {
	res := publicCommunity(models.CommunityRoleModerator)

	tests := []struct {
		name string
		sub  Subject
		want bool
	}{
		{"member denied", member(1, models.CommunityRoleMember), false},
		{"moderator allowed", member(1, models.CommunityRoleModerator), true},
		{"admin allowed", member(1, models.CommunityRoleAdmin), true},
		{"non-member denied", Subject{UserID: 1, AppRole: models.AppRoleUser}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.sub, ActionCreatePost, res); got != tt.want {
				t.Errorf("Allowed(create_post) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEditDeleteRequiresOwnershipOrModeration(t *testing.T) {
	res := publicCommunity(models.CommunityRoleMember)
	res.OwnerID = 7

	tests := []struct {
		name string
		sub  Subject
		want bool
	}{
		{"author member", member(7, models.CommunityRoleMember), true},
		{"other member", member(8, models.CommunityRoleMember), false},
		{"moderator non-author", member(8, models.CommunityRoleModerator), true},
		{"community admin non-author", member(8, models.CommunityRoleAdmin), true},
		{"outsider author of nothing", Subject{UserID: 9, AppRole: models.AppRoleUser}, false},
	}

	for _, action := range []Action{ActionEditPost, ActionDeletePost} {
		for _, tt := range tests {
			t.Run(string(action)+"/"+tt.name, func(t *testing.T) {
				if got := Allowed(tt.sub, action, res); got != tt.want {
					t.Errorf("Allowed(%s) = %v, want %v", action, got, tt.want)
				}
			})
		}
	}
}

func TestOrgScope(t *testing.T) {
	orgRes := Resource{OrgOwned: true, SameOrg: true, OwnerID: 7}
	otherOrgRes := Resource{OrgOwned: true, SameOrg: false, OwnerID: 7}

	admin := orgUser(1, models.OrgRoleAdmin)
	mem := orgUser(7, models.OrgRoleMember)

	if !Allowed(admin, ActionManageOrgMembers, orgRes) {
		t.Error("org admin denied manage_org_members in own org")
	}
	if Allowed(admin, ActionManageOrgMembers, otherOrgRes) {
		t.Error("org admin allowed manage_org_members in another org")
	}
	if Allowed(mem, ActionManageOrgMembers, orgRes) {
		t.Error("org member allowed manage_org_members")
	}

	// Org member creates and edits own org-wide posts.
	if !Allowed(mem, ActionCreatePost, orgRes) {
		t.Error("org member denied create_post on org feed")
	}
	if !Allowed(mem, ActionEditPost, orgRes) {
		t.Error("org member denied edit of own org post")
	}
	other := orgUser(8, models.OrgRoleMember)
	if Allowed(other, ActionEditPost, orgRes) {
		t.Error("org member allowed edit of someone else's post")
	}
	// Org admin moderates posts without authorship.
	if !Allowed(orgUser(8, models.OrgRoleAdmin), ActionDeletePost, orgRes) {
		t.Error("org admin denied delete of member post")
	}
}

func TestViewOrg(t *testing.T) {
	tests := []struct {
		name string
		sub  Subject
		res  Resource
		want bool
	}{
		{"org member sees own org", orgUser(1, models.OrgRoleMember), Resource{OrgOwned: true, SameOrg: true}, true},
		{"org admin sees own org", orgUser(2, models.OrgRoleAdmin), Resource{OrgOwned: true, SameOrg: true}, true},
		{"member of another org denied", orgUser(3, models.OrgRoleMember), Resource{OrgOwned: true, SameOrg: false}, false},
		{"user without org denied", Subject{UserID: 4, AppRole: models.AppRoleUser}, Resource{OrgOwned: true, SameOrg: false}, false},
		{"app admin sees any org", Subject{UserID: 5, AppRole: models.AppRoleAdmin}, Resource{OrgOwned: true, SameOrg: false}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.sub, ActionViewOrg, tt.res); got != tt.want {
				t.Errorf("Allowed(view_org) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrgAdminManagesOrgCommunities(t *testing.T) {
	res := Resource{
		OrgOwned: true,
		SameOrg:  true,
		Community: &CommunityScope{
			Type:                models.CommunityTypePublic,
			PostCreationMinRole: models.CommunityRoleMember,
		},
	}

	admin := orgUser(1, models.OrgRoleAdmin)
	for _, action := range []Action{
		ActionEditCommunity, ActionDeleteCommunity,
		ActionManageCommunityMembers, ActionAddMember, ActionRemoveMember,
	} {
		if !Allowed(admin, action, res) {
			t.Errorf("org admin denied %s on org community", action)
		}
	}

	mem := orgUser(2, models.OrgRoleMember)
	for _, action := range []Action{ActionEditCommunity, ActionDeleteCommunity, ActionManageCommunityMembers} {
		if Allowed(mem, action, res) {
			t.Errorf("org member allowed %s on org community", action)
		}
	}
}

func TestCommunityMemberManagement(t *testing.T) {
	res := publicCommunity(models.CommunityRoleMember)

	if Allowed(member(1, models.CommunityRoleMember), ActionManageCommunityMembers, res) {
		t.Error("member allowed manage_community_members")
	}
	if !Allowed(member(1, models.CommunityRoleModerator), ActionManageCommunityMembers, res) {
		t.Error("moderator denied manage_community_members")
	}
	// Moderators do not edit or delete the community itself.
	if Allowed(member(1, models.CommunityRoleModerator), ActionEditCommunity, res) {
		t.Error("moderator allowed edit_community")
	}
	if Allowed(member(1, models.CommunityRoleAdmin), ActionDeleteCommunity, res) == false {
		t.Error("community admin denied delete_community")
	}
}

func TestPrivateCommunityVisibility(t *testing.T) {
	res := Resource{
		OrgOwned: true,
		Community: &CommunityScope{
			Type:                models.CommunityTypePrivate,
			PostCreationMinRole: models.CommunityRoleMember,
		},
	}

	if Allowed(Subject{UserID: 1, AppRole: models.AppRoleUser}, ActionViewCommunity, res) {
		t.Error("outsider allowed view of private community")
	}
	if !Allowed(member(1, models.CommunityRoleMember), ActionViewPost, res) {
		t.Error("member denied view of private community post")
	}

	orgAdminSameOrg := orgUser(1, models.OrgRoleAdmin)
	sameOrgRes := res
	sameOrgRes.SameOrg = true
	if !Allowed(orgAdminSameOrg, ActionViewCommunity, sameOrgRes) {
		t.Error("org admin denied view of own-org private community")
	}
	if Allowed(orgAdminSameOrg, ActionViewCommunity, res) {
		t.Error("org admin allowed view of other-org private community")
	}
}

func TestCreateCommunity(t *testing.T) {
	if !Allowed(orgUser(1, models.OrgRoleAdmin), ActionCreateCommunity, Resource{OrgOwned: true, SameOrg: true}) {
		t.Error("org admin denied create_community in own org")
	}
	if Allowed(orgUser(1, models.OrgRoleMember), ActionCreateCommunity, Resource{OrgOwned: true, SameOrg: true}) {
		t.Error("org member allowed create_community in org")
	}
	if !Allowed(Subject{UserID: 5, AppRole: models.AppRoleUser}, ActionCreateCommunity, Resource{}) {
		t.Error("user denied standalone create_community")
	}
	if Allowed(Subject{AppRole: models.AppRoleUser}, ActionCreateCommunity, Resource{}) {
		t.Error("anonymous subject allowed create_community")
	}
}
