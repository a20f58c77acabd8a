package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type stubGrants struct {
	grants map[uuid.UUID][]Grant
	err    error
	calls  int
}

func (s *stubGrants) Grants(ctx context.Context, userID uuid.UUID) ([]Grant, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.grants[userID], nil
}

func readOnlyEverything() CompanyPermissions {
	return DefaultPermissions(RoleInvestor)
}

func TestResolveElevatedAllowsEverything(t *testing.T) {
	resolver := NewResolver(&stubGrants{}, nil, nil)
	companyID := uuid.New()

	for _, role := range []Role{RoleSuperAdmin, RoleAdmin} {
		id := Identity{UserID: uuid.New(), Role: role}
		for _, resource := range Resources() {
			for _, action := range []Action{ActionRead, ActionWrite, ActionDelete, ActionApprove} {
				decision := resolver.Resolve(context.Background(), id, resource, action, companyID, 0)
				if !decision.Allowed {
					t.Fatalf("%s should allow %s on %s, denied with %q", role, action, resource, decision.Reason)
				}
				if decision.RequiresApproval {
					t.Fatalf("%s should not require approval for %s on %s", role, action, resource)
				}
			}
		}
	}
}

func TestResolveUnknownResourceDeniedForAllRoles(t *testing.T) {
	resolver := NewResolver(&stubGrants{}, nil, nil)
	companyID := uuid.New()

	roles := []Role{RoleSuperAdmin, RoleAdmin, RoleCompanyAdmin, RoleInvestor, RoleEmployee, RoleMechanic, RoleSalesRep, RoleTempWorker}
	for _, role := range roles {
		id := Identity{UserID: uuid.New(), Role: role, CompanyID: companyID}
		decision := resolver.Resolve(context.Background(), id, Resource("payroll"), ActionRead, companyID, 0)
		if decision.Allowed {
			t.Fatalf("unknown resource should deny for %s", role)
		}
		if decision.Reason != ReasonUnknownResource {
			t.Fatalf("expected reason %q, got %q", ReasonUnknownResource, decision.Reason)
		}
	}
}

func TestResolveAnonymousDenied(t *testing.T) {
	resolver := NewResolver(&stubGrants{}, nil, nil)
	decision := resolver.Resolve(context.Background(), Identity{}, ResourceVehicles, ActionRead, uuid.New(), 0)
	if decision.Allowed {
		t.Fatal("anonymous identity should be denied")
	}
	if decision.Reason != ReasonAnonymous {
		t.Fatalf("expected reason %q, got %q", ReasonAnonymous, decision.Reason)
	}
}

func TestResolveCompanyAdminOwnCompany(t *testing.T) {
	companyID := uuid.New()
	resolver := NewResolver(&stubGrants{}, nil, nil)
	id := Identity{UserID: uuid.New(), Role: RoleCompanyAdmin, CompanyID: companyID}

	decision := resolver.Resolve(context.Background(), id, ResourceVehicles, ActionDelete, companyID, 0)
	if !decision.Allowed {
		t.Fatalf("company admin should have full rights in own company, denied with %q", decision.Reason)
	}
}

func TestResolveCompanyAdminOtherCompanyNeedsGrant(t *testing.T) {
	own := uuid.New()
	other := uuid.New()
	userID := uuid.New()
	id := Identity{UserID: userID, Role: RoleCompanyAdmin, CompanyID: own}

	grants := &stubGrants{grants: map[uuid.UUID][]Grant{}}
	resolver := NewResolver(grants, nil, nil)

	decision := resolver.Resolve(context.Background(), id, ResourceVehicles, ActionRead, other, 0)
	if decision.Allowed {
		t.Fatal("company admin should not see another company without a grant")
	}
	if decision.Reason != ReasonNoCompanyAccess {
		t.Fatalf("expected reason %q, got %q", ReasonNoCompanyAccess, decision.Reason)
	}

	grants.grants[userID] = []Grant{{
		UserID:      userID,
		CompanyID:   other,
		Permissions: readOnlyEverything(),
	}}
	decision = resolver.Resolve(context.Background(), id, ResourceVehicles, ActionRead, other, 0)
	if !decision.Allowed {
		t.Fatalf("explicit grant should allow read, denied with %q", decision.Reason)
	}
}

func TestResolveInvestorWriteDeniedInOwnCompany(t *testing.T) {
	companyID := uuid.New()
	resolver := NewResolver(&stubGrants{}, nil, nil)
	id := Identity{UserID: uuid.New(), Role: RoleInvestor, CompanyID: companyID}

	decision := resolver.Resolve(context.Background(), id, ResourceVehicles, ActionWrite, companyID, 0)
	if decision.Allowed {
		t.Fatal("investor defaults are read-only, write must deny even for the own company")
	}
	if decision.Reason != ReasonActionNotGranted {
		t.Fatalf("expected reason %q, got %q", ReasonActionNotGranted, decision.Reason)
	}
}

func TestResolveMissingTargetCompanyDenied(t *testing.T) {
	resolver := NewResolver(&stubGrants{}, nil, nil)
	id := Identity{UserID: uuid.New(), Role: RoleEmployee}

	decision := resolver.Resolve(context.Background(), id, ResourceRentals, ActionRead, uuid.Nil, 0)
	if decision.Allowed {
		t.Fatal("absent target company must deny, not mean all companies")
	}
	if decision.Reason != ReasonNoTargetCompany {
		t.Fatalf("expected reason %q, got %q", ReasonNoTargetCompany, decision.Reason)
	}
}

func TestResolveStoreFailureFailsClosed(t *testing.T) {
	grants := &stubGrants{err: errors.New("connection refused")}
	resolver := NewResolver(grants, nil, nil)
	id := Identity{UserID: uuid.New(), Role: RoleEmployee}

	decision := resolver.Resolve(context.Background(), id, ResourceVehicles, ActionRead, uuid.New(), 0)
	if decision.Allowed {
		t.Fatal("store failure must deny")
	}
	if decision.Reason != ReasonCheckFailed {
		t.Fatalf("store failure must be distinguishable from missing access, got %q", decision.Reason)
	}
}

func TestResolveActionNotGrantedOnExplicitGrant(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	grants := &stubGrants{grants: map[uuid.UUID][]Grant{
		userID: {{UserID: userID, CompanyID: companyID, Permissions: readOnlyEverything()}},
	}}
	resolver := NewResolver(grants, nil, nil)
	id := Identity{UserID: userID, Role: RoleEmployee}

	decision := resolver.Resolve(context.Background(), id, ResourceVehicles, ActionDelete, companyID, 0)
	if decision.Allowed {
		t.Fatal("delete is not in the grant, must deny")
	}
	if decision.Reason != ReasonActionNotGranted {
		t.Fatalf("expected reason %q, got %q", ReasonActionNotGranted, decision.Reason)
	}
}

func TestResolveSalesRepAmountOverLimitRequiresApproval(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	perms := CompanyPermissions{Rentals: ResourcePermission{Read: true, Write: true}}
	for _, resource := range Resources() {
		if _, ok := perms.ForResource(resource); !ok {
			t.Fatalf("resource %s missing from fixture", resource)
		}
	}
	grants := &stubGrants{grants: map[uuid.UUID][]Grant{
		userID: {{UserID: userID, CompanyID: companyID, Permissions: perms}},
	}}
	resolver := NewResolver(grants, nil, nil)
	id := Identity{UserID: userID, Role: RoleSalesRep}

	under := resolver.Resolve(context.Background(), id, ResourceRentals, ActionWrite, companyID, 1200)
	if !under.Allowed || under.RequiresApproval {
		t.Fatalf("amount under limit should pass without approval, got %+v", under)
	}

	over := resolver.Resolve(context.Background(), id, ResourceRentals, ActionWrite, companyID, 7500)
	if !over.Allowed {
		t.Fatalf("amount over limit stays allowed, denied with %q", over.Reason)
	}
	if !over.RequiresApproval {
		t.Fatal("amount over the sales rep limit must require approval")
	}
}

func TestResolveDeniedDecisionsReachAuditSink(t *testing.T) {
	sink := &recordingSink{}
	resolver := NewResolver(&stubGrants{}, sink, nil)
	id := Identity{UserID: uuid.New(), Role: RoleEmployee}

	resolver.Resolve(context.Background(), id, ResourceVehicles, ActionRead, uuid.New(), 0)
	if len(sink.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(sink.events))
	}
	if sink.events[0].Action != "access.denied" {
		t.Fatalf("unexpected audit action %q", sink.events[0].Action)
	}
}

type recordingSink struct {
	events []AuditEvent
}

func (s *recordingSink) Record(ctx context.Context, event AuditEvent) {
	s.events = append(s.events, event)
}
