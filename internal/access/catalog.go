package access

// Static role catalog. Default permission sets are fixed business data; a
// role not listed here gets the zero CompanyPermissions, which denies
// everything.

// IsElevated reports whether the role bypasses the grant table entirely.
func IsElevated(role Role) bool {
	return role.Canonical() == RoleSuperAdmin
}

// IsCompanyBound reports whether the role's company scope is fixed by the
// user profile rather than by explicit grants.
func IsCompanyBound(role Role) bool {
	switch role {
	case RoleCompanyAdmin, RoleInvestor:
		return true
	default:
		return false
	}
}

// ApprovalLimit returns the amount above which writes by the role need
// approval. Roles without a limit report ok=false.
func ApprovalLimit(role Role) (float64, bool) {
	if role == RoleSalesRep {
		return salesRepApprovalLimit, true
	}
	return 0, false
}

const salesRepApprovalLimit = 5000

// DefaultPermissions returns the role's built-in per-resource capability set.
func DefaultPermissions(role Role) CompanyPermissions {
	fullCRUD := ResourcePermission{Read: true, Write: true, Delete: true, Approve: true}
	readOnly := ResourcePermission{Read: true}
	readWrite := ResourcePermission{Read: true, Write: true}

	switch role.Canonical() {
	case RoleSuperAdmin:
		return CompanyPermissions{
			Vehicles:    fullCRUD,
			Rentals:     fullCRUD,
			Expenses:    fullCRUD,
			Settlements: fullCRUD,
			Customers:   fullCRUD,
			Insurances:  fullCRUD,
			Maintenance: fullCRUD,
			Protocols:   fullCRUD,
			Statistics:  fullCRUD,
		}
	case RoleCompanyAdmin:
		return CompanyPermissions{
			Vehicles:    fullCRUD,
			Rentals:     fullCRUD,
			Expenses:    fullCRUD,
			Settlements: fullCRUD,
			Customers:   fullCRUD,
			Insurances:  fullCRUD,
			Maintenance: fullCRUD,
			Protocols:   fullCRUD,
			Statistics:  fullCRUD,
		}
	case RoleInvestor:
		return CompanyPermissions{
			Vehicles:    readOnly,
			Rentals:     readOnly,
			Expenses:    readOnly,
			Settlements: readOnly,
			Customers:   readOnly,
			Insurances:  readOnly,
			Maintenance: readOnly,
			Protocols:   readOnly,
			Statistics:  readOnly,
		}
	case RoleEmployee:
		return CompanyPermissions{
			Vehicles:    readWrite,
			Rentals:     readWrite,
			Customers:   readWrite,
			Maintenance: readWrite,
			Protocols:   readWrite,
		}
	case RoleMechanic:
		return CompanyPermissions{
			Vehicles:    readWrite,
			Maintenance: ResourcePermission{Read: true, Write: true, Delete: true},
			Protocols:   readWrite,
		}
	case RoleSalesRep:
		return CompanyPermissions{
			Vehicles:  readOnly,
			Rentals:   readWrite,
			Customers: readWrite,
		}
	case RoleTempWorker:
		return CompanyPermissions{
			Vehicles:  readOnly,
			Rentals:   readWrite,
			Customers: readWrite,
			Protocols: readWrite,
		}
	default:
		return CompanyPermissions{}
	}
}
