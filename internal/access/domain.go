package access

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies a user's class of authority.
type Role string

const (
	// RoleSuperAdmin sees every company unconditionally.
	RoleSuperAdmin Role = "super_admin"
	// RoleAdmin is the legacy alias for RoleSuperAdmin kept for old accounts.
	RoleAdmin Role = "admin"
	// RoleCompanyAdmin administers exactly one company.
	RoleCompanyAdmin Role = "company_admin"
	// RoleInvestor is a read-only company owner.
	RoleInvestor Role = "investor"
	// RoleEmployee performs day-to-day fleet operations.
	RoleEmployee Role = "employee"
	// RoleMechanic works on maintenance and protocols.
	RoleMechanic Role = "mechanic"
	// RoleSalesRep handles rentals and customers with amount limits.
	RoleSalesRep Role = "sales_rep"
	// RoleTempWorker has minimal read/create rights.
	RoleTempWorker Role = "temp_worker"
)

// Canonical collapses the legacy admin alias onto super_admin.
func (r Role) Canonical() Role {
	if r == RoleAdmin {
		return RoleSuperAdmin
	}
	return r
}

// Resource names a permission-scoped business collection.
type Resource string

const (
	ResourceVehicles    Resource = "vehicles"
	ResourceRentals     Resource = "rentals"
	ResourceExpenses    Resource = "expenses"
	ResourceSettlements Resource = "settlements"
	ResourceCustomers   Resource = "customers"
	ResourceInsurances  Resource = "insurances"
	ResourceMaintenance Resource = "maintenance"
	ResourceProtocols   Resource = "protocols"
	ResourceStatistics  Resource = "statistics"
)

// Resources returns the closed set of permission-scoped resources.
func Resources() []Resource {
	return []Resource{
		ResourceVehicles,
		ResourceRentals,
		ResourceExpenses,
		ResourceSettlements,
		ResourceCustomers,
		ResourceInsurances,
		ResourceMaintenance,
		ResourceProtocols,
		ResourceStatistics,
	}
}

// Action is an operation performed against a resource.
type Action string

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
)

// ResourcePermission is the capability set for one resource. It is a value:
// grants replace it wholesale, never patch individual fields in storage.
type ResourcePermission struct {
	Read    bool `json:"read"`
	Write   bool `json:"write"`
	Delete  bool `json:"delete"`
	Approve bool `json:"approve,omitempty"`
}

// Allows reports whether the permission covers the action.
func (p ResourcePermission) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return p.Read
	case ActionWrite:
		return p.Write
	case ActionDelete:
		return p.Delete
	case ActionApprove:
		return p.Approve
	default:
		return false
	}
}

// CompanyPermissions maps every resource to its capability set. The shape is
// fixed so a missing or misspelled resource key cannot slip through as a
// silent deny or allow.
type CompanyPermissions struct {
	Vehicles    ResourcePermission `json:"vehicles"`
	Rentals     ResourcePermission `json:"rentals"`
	Expenses    ResourcePermission `json:"expenses"`
	Settlements ResourcePermission `json:"settlements"`
	Customers   ResourcePermission `json:"customers"`
	Insurances  ResourcePermission `json:"insurances"`
	Maintenance ResourcePermission `json:"maintenance"`
	Protocols   ResourcePermission `json:"protocols"`
	Statistics  ResourcePermission `json:"statistics"`
}

// ForResource returns the capability set for the resource. Unknown resources
// report ok=false and an empty (deny-everything) permission.
func (p CompanyPermissions) ForResource(resource Resource) (ResourcePermission, bool) {
	switch resource {
	case ResourceVehicles:
		return p.Vehicles, true
	case ResourceRentals:
		return p.Rentals, true
	case ResourceExpenses:
		return p.Expenses, true
	case ResourceSettlements:
		return p.Settlements, true
	case ResourceCustomers:
		return p.Customers, true
	case ResourceInsurances:
		return p.Insurances, true
	case ResourceMaintenance:
		return p.Maintenance, true
	case ResourceProtocols:
		return p.Protocols, true
	case ResourceStatistics:
		return p.Statistics, true
	default:
		return ResourcePermission{}, false
	}
}

// KnownResource reports whether the resource belongs to the closed set.
func KnownResource(resource Resource) bool {
	_, ok := CompanyPermissions{}.ForResource(resource)
	return ok
}

// ErrInvalidGrant marks a stored permission map that is missing one of the
// required resource keys. Such rows are a corruption signal, not valid state.
var ErrInvalidGrant = errors.New("access: invalid grant permissions")

// ParsePermissions decodes a stored permissions document, requiring all nine
// resource keys to be present.
func ParsePermissions(raw []byte) (CompanyPermissions, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return CompanyPermissions{}, fmt.Errorf("access: decode permissions: %w", err)
	}
	for _, resource := range Resources() {
		if _, ok := keys[string(resource)]; !ok {
			return CompanyPermissions{}, fmt.Errorf("%w: missing %q", ErrInvalidGrant, resource)
		}
	}
	var perms CompanyPermissions
	if err := json.Unmarshal(raw, &perms); err != nil {
		return CompanyPermissions{}, fmt.Errorf("access: decode permissions: %w", err)
	}
	return perms, nil
}

// Grant binds a user to a company with a specific permission set. One grant
// exists per (user, company) pair; re-granting replaces it.
type Grant struct {
	UserID      uuid.UUID
	CompanyID   uuid.UUID
	CompanyName string
	Permissions CompanyPermissions
	GrantedAt   time.Time
}

// Identity is the verified principal attached to a request. CompanyID is set
// only for company-bound roles; uuid.Nil means membership comes from grants.
type Identity struct {
	UserID    uuid.UUID
	Role      Role
	CompanyID uuid.UUID
}

// Anonymous reports whether the identity carries no user.
func (id Identity) Anonymous() bool {
	return id.UserID == uuid.Nil
}

// Reason explains a denial or an approval requirement.
type Reason string

const (
	ReasonAnonymous        Reason = "not authenticated"
	ReasonUnknownResource  Reason = "unknown resource"
	ReasonNoTargetCompany  Reason = "target company required"
	ReasonNoCompanyAccess  Reason = "no company access"
	ReasonActionNotGranted Reason = "action not granted"
	ReasonCheckFailed      Reason = "access check failed"
	ReasonAmountOverLimit  Reason = "amount exceeds role limit"
)

// Decision is the outcome of an access resolution. Denials are expected
// results, not errors; callers translate them into 401/403 responses.
type Decision struct {
	Allowed          bool
	RequiresApproval bool
	Reason           Reason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func allowWithApproval(reason Reason) Decision {
	return Decision{Allowed: true, RequiresApproval: true, Reason: reason}
}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}
