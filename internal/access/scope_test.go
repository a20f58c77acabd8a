package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type ownedRecord struct {
	name    string
	owner   uuid.UUID
	company uuid.UUID
}

func (r ownedRecord) CompanyRefs() []uuid.UUID {
	return []uuid.UUID{r.owner, r.company}
}

func TestFilterOwnedKeepsOnlyGrantedCompanies(t *testing.T) {
	userID := uuid.New()
	companyA := uuid.New()
	companyB := uuid.New()

	grants := &stubGrants{grants: map[uuid.UUID][]Grant{
		userID: {{UserID: userID, CompanyID: companyA}},
	}}
	filter := NewScopeFilter(grants, nil)
	id := Identity{UserID: userID, Role: RoleEmployee}

	records := []ownedRecord{
		{name: "a1", owner: companyA},
		{name: "b1", owner: companyB},
		{name: "a2", owner: companyA},
		{name: "b2", company: companyB},
		{name: "a3", company: companyA},
	}
	got := FilterOwned(context.Background(), filter, id, records)
	if len(got) != 3 {
		t.Fatalf("expected 3 visible records, got %d", len(got))
	}
	// Original relative order is preserved.
	for i, want := range []string{"a1", "a2", "a3"} {
		if got[i].name != want {
			t.Fatalf("expected %s at position %d, got %s", want, i, got[i].name)
		}
	}
}

func TestFilterOwnedElevatedSeesEverything(t *testing.T) {
	filter := NewScopeFilter(&stubGrants{}, nil)
	id := Identity{UserID: uuid.New(), Role: RoleSuperAdmin}

	records := []ownedRecord{
		{name: "x", owner: uuid.New()},
		{name: "orphan"},
	}
	got := FilterOwned(context.Background(), filter, id, records)
	if len(got) != 2 {
		t.Fatalf("elevated identity must see all records, got %d", len(got))
	}
}

func TestFilterOwnedExcludesOrphansForNonElevated(t *testing.T) {
	companyID := uuid.New()
	filter := NewScopeFilter(&stubGrants{}, nil)
	id := Identity{UserID: uuid.New(), Role: RoleCompanyAdmin, CompanyID: companyID}

	records := []ownedRecord{
		{name: "mine", owner: companyID},
		{name: "orphan"},
	}
	got := FilterOwned(context.Background(), filter, id, records)
	if len(got) != 1 || got[0].name != "mine" {
		t.Fatalf("records with no company reference must be excluded, got %v", got)
	}
}

func TestFilterOwnedCompanyBoundWithoutGrants(t *testing.T) {
	companyID := uuid.New()
	grants := &stubGrants{grants: map[uuid.UUID][]Grant{}}
	filter := NewScopeFilter(grants, nil)
	id := Identity{UserID: uuid.New(), Role: RoleInvestor, CompanyID: companyID}

	records := []ownedRecord{
		{name: "own", owner: companyID},
		{name: "other", owner: uuid.New()},
	}
	got := FilterOwned(context.Background(), filter, id, records)
	if len(got) != 1 || got[0].name != "own" {
		t.Fatalf("company-bound visibility derives from the identity, got %v", got)
	}
}

func TestFilterOwnedFailsClosedOnStoreError(t *testing.T) {
	grants := &stubGrants{err: errors.New("timeout")}
	filter := NewScopeFilter(grants, nil)
	id := Identity{UserID: uuid.New(), Role: RoleEmployee}

	records := []ownedRecord{{name: "x", owner: uuid.New()}}
	got := FilterOwned(context.Background(), filter, id, records)
	if len(got) != 0 {
		t.Fatal("a failed grant lookup must hide records, never expose them")
	}
}

func TestAllowedCompaniesMergesBindingAndGrants(t *testing.T) {
	userID := uuid.New()
	bound := uuid.New()
	granted := uuid.New()
	grants := &stubGrants{grants: map[uuid.UUID][]Grant{
		userID: {{UserID: userID, CompanyID: granted}},
	}}
	filter := NewScopeFilter(grants, nil)
	id := Identity{UserID: userID, Role: RoleCompanyAdmin, CompanyID: bound}

	set := filter.AllowedCompanies(context.Background(), id)
	if set.All() {
		t.Fatal("company admin is not elevated")
	}
	if !set.Contains(bound) || !set.Contains(granted) {
		t.Fatal("both the bound company and granted companies must be visible")
	}
	if set.Contains(uuid.New()) {
		t.Fatal("unrelated companies must not be visible")
	}
	if len(set.IDs()) != 2 {
		t.Fatalf("expected 2 explicit companies, got %d", len(set.IDs()))
	}
}
