package rentals

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Rental statuses.
const (
	StatusPendingApproval = "pending_approval"
	StatusActive          = "active"
	StatusCompleted       = "completed"
	StatusCancelled       = "cancelled"
)

// Rental is a vehicle rental contract owned by a single company.
type Rental struct {
	ID         uuid.UUID `json:"id"`
	VehicleID  uuid.UUID `json:"vehicleId"`
	CustomerID uuid.UUID `json:"customerId"`
	CompanyID  uuid.UUID `json:"companyId"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	TotalPrice float64   `json:"totalPrice"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CompanyRefs reports the owning company.
func (r Rental) CompanyRefs() []uuid.UUID {
	if r.CompanyID == uuid.Nil {
		return nil
	}
	return []uuid.UUID{r.CompanyID}
}

var (
	// ErrNotFound indicates the rental does not exist.
	ErrNotFound = errors.New("rentals: not found")
	// ErrDenied indicates the identity may not perform the operation.
	ErrDenied = errors.New("rentals: access denied")
	// ErrInvalidPeriod indicates the rental dates are inconsistent.
	ErrInvalidPeriod = errors.New("rentals: end date before start date")
)
