package users

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rentiva/rentiva/internal/access"
)

// User is an operator account. CompanyID is set only for company-bound
// roles; grant-scoped roles leave it nil and get access through grants.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Email        string      `json:"email"`
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	Role         access.Role `json:"role"`
	CompanyID    *uuid.UUID  `json:"companyId,omitempty"`
	PasswordHash string      `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("users: email already registered")
	// ErrDenied indicates the actor may not perform the operation.
	ErrDenied = errors.New("users: access denied")
)
