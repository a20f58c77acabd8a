package access

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GrantProvider supplies a user's grants, typically through the TTL cache.
type GrantProvider interface {
	Grants(ctx context.Context, userID uuid.UUID) ([]Grant, error)
}

// Resolver computes effective permissions for (identity, resource, action,
// company) requests. It is pure apart from grant lookups and never returns
// an error to callers: every failure collapses into a deny decision.
type Resolver struct {
	grants GrantProvider
	audit  AuditSink
	logger *slog.Logger
}

// NewResolver constructs a Resolver. The audit sink may be nil.
func NewResolver(grants GrantProvider, audit AuditSink, logger *slog.Logger) *Resolver {
	return &Resolver{grants: grants, audit: audit, logger: logger}
}

// Resolve decides whether the identity may perform the action on the
// resource within the target company. An amount of zero means no amount
// applies to the request.
//
// The checks short-circuit in order: unknown resources always deny,
// elevated roles always allow, company-bound roles answer from the role
// catalog for their own company, and everything else consults the grant
// table through the cache.
func (r *Resolver) Resolve(ctx context.Context, id Identity, resource Resource, action Action, companyID uuid.UUID, amount float64) Decision {
	decision := r.resolve(ctx, id, resource, action, companyID, amount)
	if !decision.Allowed {
		r.reportDenied(ctx, id, resource, action, companyID, decision.Reason)
	}
	return decision
}

func (r *Resolver) resolve(ctx context.Context, id Identity, resource Resource, action Action, companyID uuid.UUID, amount float64) Decision {
	if !KnownResource(resource) {
		return deny(ReasonUnknownResource)
	}
	if id.Anonymous() {
		return deny(ReasonAnonymous)
	}
	if IsElevated(id.Role) {
		return allow()
	}

	if IsCompanyBound(id.Role) && companyID != uuid.Nil && id.CompanyID == companyID {
		perm, _ := DefaultPermissions(id.Role).ForResource(resource)
		if !perm.Allows(action) {
			return deny(ReasonActionNotGranted)
		}
		return r.withApproval(id.Role, action, amount)
	}

	if companyID == uuid.Nil {
		return deny(ReasonNoTargetCompany)
	}

	grants, err := r.grants.Grants(ctx, id.UserID)
	if err != nil {
		// A store failure is a security boundary: deny, and make the
		// reason distinguishable from a plain missing grant.
		if r.logger != nil {
			r.logger.Error("resolve grants", slog.String("user_id", id.UserID.String()), slog.Any("error", err))
		}
		return deny(ReasonCheckFailed)
	}

	for _, grant := range grants {
		if grant.CompanyID != companyID {
			continue
		}
		perm, _ := grant.Permissions.ForResource(resource)
		if !perm.Allows(action) {
			return deny(ReasonActionNotGranted)
		}
		return r.withApproval(id.Role, action, amount)
	}
	return deny(ReasonNoCompanyAccess)
}

// withApproval layers amount conditions on top of an already-permitted
// action. Writes above the role's limit stay allowed but flag approval.
func (r *Resolver) withApproval(role Role, action Action, amount float64) Decision {
	if action != ActionWrite || amount <= 0 {
		return allow()
	}
	limit, ok := ApprovalLimit(role)
	if !ok || amount <= limit {
		return allow()
	}
	return allowWithApproval(ReasonAmountOverLimit)
}

func (r *Resolver) reportDenied(ctx context.Context, id Identity, resource Resource, action Action, companyID uuid.UUID, reason Reason) {
	if r.audit == nil {
		return
	}
	r.audit.Record(ctx, AuditEvent{
		Action:   auditAccessDenied,
		Entity:   string(resource),
		EntityID: companyID.String(),
		Meta: map[string]any{
			"user_id": id.UserID.String(),
			"role":    string(id.Role),
			"action":  string(action),
			"reason":  string(reason),
		},
	})
}
