package access

// CanAssign reports whether an actor may create or modify a user into the
// target role. currentRole is the target user's existing role, or empty when
// creating a new user. This is the only place role-escalation rules live;
// callers must not duplicate or shortcut it.
func CanAssign(actorRole, currentRole, newRole Role) bool {
	actor := actorRole.Canonical()
	current := currentRole.Canonical()
	next := newRole.Canonical()

	// Only a super admin mints or edits super admins.
	if next == RoleSuperAdmin && actor != RoleSuperAdmin {
		return false
	}
	if current == RoleSuperAdmin && actor != RoleSuperAdmin {
		return false
	}

	// Company admins manage staff below themselves.
	if actor == RoleCompanyAdmin && (next == RoleSuperAdmin || next == RoleCompanyAdmin) {
		return false
	}

	return true
}

// CanManageGrants reports whether the role may create or revoke company
// grants at all.
func CanManageGrants(role Role) bool {
	switch role.Canonical() {
	case RoleSuperAdmin, RoleCompanyAdmin:
		return true
	default:
		return false
	}
}
