package access

import "context"

// AuditEvent describes a reportable access-control occurrence: a grant
// mutation or a denied decision.
type AuditEvent struct {
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
}

// AuditSink receives access events. Implementations must be fire-and-forget:
// a sink failure never blocks or fails the operation that produced the event.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}

const (
	auditGrantUpserted = "access.grant.upserted"
	auditGrantDeleted  = "access.grant.deleted"
	auditAccessDenied  = "access.denied"
)
