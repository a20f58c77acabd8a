package access

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// CompanyOwned is implemented by domain records that carry tenant ownership.
// CompanyRefs returns the owning company IDs (owner_company_id and/or
// company_id); uuid.Nil entries are ignored.
type CompanyOwned interface {
	CompanyRefs() []uuid.UUID
}

// CompanySet is the visibility result for one identity: either everything,
// or an explicit set of company IDs.
type CompanySet struct {
	all bool
	ids map[uuid.UUID]struct{}
}

// All reports whether the set covers every company.
func (s CompanySet) All() bool {
	return s.all
}

// Contains reports whether the company is visible.
func (s CompanySet) Contains(id uuid.UUID) bool {
	if s.all {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// IDs returns the explicit company IDs, nil when the set covers everything.
func (s CompanySet) IDs() []uuid.UUID {
	if s.all {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	return ids
}

// ScopeFilter applies company visibility to collections before they leave
// the data layer. It is the last line of defense behind row-level query
// scoping and must be correct standalone.
type ScopeFilter struct {
	grants GrantProvider
	logger *slog.Logger
}

// NewScopeFilter constructs a ScopeFilter.
func NewScopeFilter(grants GrantProvider, logger *slog.Logger) *ScopeFilter {
	return &ScopeFilter{grants: grants, logger: logger}
}

// AllowedCompanies computes the identity's visible companies. Elevated roles
// see everything; everyone else sees the companies they hold grants for.
// Company-bound roles get the union of their bound company and their grants:
// the resolver honors an explicit grant for another company, so the scope
// filter must show the same set or list endpoints would hide rows the point
// check allows. Failures collapse into an empty set: a broken lookup hides
// data, it never exposes it.
func (f *ScopeFilter) AllowedCompanies(ctx context.Context, id Identity) CompanySet {
	if IsElevated(id.Role) {
		return CompanySet{all: true}
	}

	ids := make(map[uuid.UUID]struct{})
	if IsCompanyBound(id.Role) && id.CompanyID != uuid.Nil {
		ids[id.CompanyID] = struct{}{}
	}
	if id.Anonymous() {
		return CompanySet{ids: ids}
	}

	grants, err := f.grants.Grants(ctx, id.UserID)
	if err != nil {
		if f.logger != nil {
			f.logger.Error("scope filter grants", slog.String("user_id", id.UserID.String()), slog.Any("error", err))
		}
		return CompanySet{ids: ids}
	}
	for _, grant := range grants {
		ids[grant.CompanyID] = struct{}{}
	}
	return CompanySet{ids: ids}
}

// FilterOwned returns the records visible to the identity, preserving the
// input order. Records with no company reference are excluded for
// non-elevated identities.
func FilterOwned[T CompanyOwned](ctx context.Context, f *ScopeFilter, id Identity, records []T) []T {
	visible := f.AllowedCompanies(ctx, id)
	if visible.All() {
		return records
	}

	out := make([]T, 0, len(records))
	for _, record := range records {
		if ownedByAny(record, visible) {
			out = append(out, record)
		}
	}
	return out
}

func ownedByAny(record CompanyOwned, visible CompanySet) bool {
	for _, ref := range record.CompanyRefs() {
		if ref == uuid.Nil {
			continue
		}
		if visible.Contains(ref) {
			return true
		}
	}
	return false
}
