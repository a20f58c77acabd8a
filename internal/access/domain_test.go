package access

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParsePermissionsRequiresAllResourceKeys(t *testing.T) {
	full := DefaultPermissions(RoleCompanyAdmin)
	raw, err := json.Marshal(full)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := ParsePermissions(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != full {
		t.Fatal("parsed permissions differ from the stored value")
	}
}

func TestParsePermissionsRejectsPartialMap(t *testing.T) {
	// A map missing a resource key is data corruption, not "deny that key".
	raw := []byte(`{"vehicles":{"read":true,"write":false,"delete":false}}`)
	_, err := ParsePermissions(raw)
	if !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant, got %v", err)
	}
}

func TestParsePermissionsRejectsMalformedJSON(t *testing.T) {
	if _, err := ParsePermissions([]byte(`{not json`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestResourcePermissionAllows(t *testing.T) {
	perm := ResourcePermission{Read: true, Write: true}
	if !perm.Allows(ActionRead) || !perm.Allows(ActionWrite) {
		t.Fatal("granted actions must be allowed")
	}
	if perm.Allows(ActionDelete) || perm.Allows(ActionApprove) {
		t.Fatal("ungranted actions must be denied")
	}
	if perm.Allows(Action("export")) {
		t.Fatal("unknown actions must be denied")
	}
}

func TestRoleCanonical(t *testing.T) {
	if RoleAdmin.Canonical() != RoleSuperAdmin {
		t.Fatal("legacy admin must canonicalise to super_admin")
	}
	if RoleEmployee.Canonical() != RoleEmployee {
		t.Fatal("other roles are unchanged")
	}
}
