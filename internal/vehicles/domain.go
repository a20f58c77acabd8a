package vehicles

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Vehicle is the fleet record slice the access layer scopes on. The full
// business schema (pricing tiers, documents, ownership history) lives in
// the surrounding tables and is out of scope here.
type Vehicle struct {
	ID             uuid.UUID `json:"id"`
	LicensePlate   string    `json:"licensePlate"`
	Brand          string    `json:"brand"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	Status         string    `json:"status"`
	OwnerCompanyID uuid.UUID `json:"ownerCompanyId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Vehicle statuses.
const (
	StatusAvailable   = "available"
	StatusRented      = "rented"
	StatusMaintenance = "maintenance"
	StatusRemoved     = "removed"
)

// CompanyRefs implements access.CompanyOwned.
func (v Vehicle) CompanyRefs() []uuid.UUID {
	return []uuid.UUID{v.OwnerCompanyID}
}

var (
	// ErrNotFound indicates the vehicle does not exist.
	ErrNotFound = errors.New("vehicles: not found")
	// ErrDenied indicates the identity may not perform the operation.
	ErrDenied = errors.New("vehicles: access denied")
)
