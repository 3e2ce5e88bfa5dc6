// Package authz holds the permission decisions for every mutation. All
// functions are pure: same inputs, same answer. A missing membership is
// passed as the empty string and always denies (fail closed), except where
// an admin profile role overrides the project-level check.
package authz

import "github.com/sitecrew-dev/sitecrew/internal/types"

// CanCreateProject reports whether a profile role may create projects.
func CanCreateProject(profileRole string) bool {
	return profileRole == types.RoleAdmin || profileRole == types.RoleProjectManager
}

// CanInviteUsers reports whether a profile role may invite new users to the org.
func CanInviteUsers(profileRole string) bool {
	return profileRole == types.RoleAdmin || profileRole == types.RoleProjectManager
}

// CanUpdateProject allows admins, the project creator, and members holding
// the owner or manager role on that project.
func CanUpdateProject(profileRole string, creatorID, callerID uint, memberRole string) bool {
	if profileRole == types.RoleAdmin {
		return true
	}
	if creatorID == callerID {
		return true
	}
	return memberRole == types.MemberOwner || memberRole == types.MemberManager
}

// CanDeleteProject is stricter than update: only the creator or an admin.
func CanDeleteProject(profileRole string, creatorID, callerID uint) bool {
	return profileRole == types.RoleAdmin || creatorID == callerID
}

// CanManageMembers gates adding and removing project members.
func CanManageMembers(profileRole, memberRole string) bool {
	if profileRole == types.RoleAdmin {
		return true
	}
	return memberRole == types.MemberOwner || memberRole == types.MemberManager
}

// CanRemoveMember additionally refuses to remove an owner, independent of
// who is asking.
func CanRemoveMember(profileRole, callerMemberRole, targetMemberRole string) bool {
	if targetMemberRole == types.MemberOwner {
		return false
	}
	return CanManageMembers(profileRole, callerMemberRole)
}

// CanCreateTask requires project membership as owner, manager, or contractor.
func CanCreateTask(profileRole, memberRole string) bool {
	if profileRole == types.RoleAdmin {
		return true
	}
	switch memberRole {
	case types.MemberOwner, types.MemberManager, types.MemberContractor:
		return true
	}
	return false
}

// CanUpdateTask allows the current assignee and the project's owners and
// managers.
func CanUpdateTask(profileRole string, assignedTo *uint, callerID uint, memberRole string) bool {
	if profileRole == types.RoleAdmin {
		return true
	}
	if assignedTo != nil && *assignedTo == callerID {
		return true
	}
	return memberRole == types.MemberOwner || memberRole == types.MemberManager
}
