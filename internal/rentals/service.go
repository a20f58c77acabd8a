package rentals

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rentiva/rentiva/internal/access"
)

// RepositoryPort is the persistence dependency of the service.
type RepositoryPort interface {
	ListRentals(ctx context.Context) ([]Rental, error)
	ListRentalsForCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]Rental, error)
	GetRental(ctx context.Context, id uuid.UUID) (Rental, error)
	CreateRental(ctx context.Context, rental Rental) (Rental, error)
	UpdateRentalStatus(ctx context.Context, id uuid.UUID, status string) (Rental, error)
}

// Service applies access control to rental reads and writes.
type Service struct {
	repo     RepositoryPort
	resolver *access.Resolver
	scope    *access.ScopeFilter
	logger   *slog.Logger
}

// NewService constructs the rental service.
func NewService(repo RepositoryPort, resolver *access.Resolver, scope *access.ScopeFilter, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, scope: scope, logger: logger}
}

// List returns the rentals visible to the identity.
func (s *Service) List(ctx context.Context, id access.Identity) ([]Rental, error) {
	if id.Anonymous() {
		return nil, ErrDenied
	}

	visible := s.scope.AllowedCompanies(ctx, id)

	var (
		rows []Rental
		err  error
	)
	if visible.All() {
		rows, err = s.repo.ListRentals(ctx)
	} else {
		rows, err = s.repo.ListRentalsForCompanies(ctx, visible.IDs())
	}
	if err != nil {
		return nil, err
	}
	return access.FilterOwned(ctx, s.scope, id, rows), nil
}

// Get fetches a single rental after a point access check.
func (s *Service) Get(ctx context.Context, id access.Identity, rentalID uuid.UUID) (Rental, error) {
	rental, err := s.repo.GetRental(ctx, rentalID)
	if err != nil {
		return Rental{}, err
	}
	decision := s.resolver.Resolve(ctx, id, access.ResourceRentals, access.ActionRead, rental.CompanyID, 0)
	if !decision.Allowed {
		return Rental{}, fmt.Errorf("%w: %s", ErrDenied, decision.Reason)
	}
	return rental, nil
}

// Create opens a new rental. The contract price is part of the access
// decision: writers above their approval limit get the rental created in
// pending_approval instead of active.
func (s *Service) Create(ctx context.Context, id access.Identity, rental Rental) (Rental, error) {
	if rental.EndDate.Before(rental.StartDate) {
		return Rental{}, ErrInvalidPeriod
	}

	decision := s.resolver.Resolve(ctx, id, access.ResourceRentals, access.ActionWrite, rental.CompanyID, rental.TotalPrice)
	if !decision.Allowed {
		return Rental{}, fmt.Errorf("%w: %s", ErrDenied, decision.Reason)
	}

	if decision.RequiresApproval {
		rental.Status = StatusPendingApproval
	} else {
		rental.Status = StatusActive
	}

	created, err := s.repo.CreateRental(ctx, rental)
	if err != nil {
		return Rental{}, err
	}
	if created.Status == StatusPendingApproval {
		s.logger.Info("rental awaiting approval",
			slog.String("rental_id", created.ID.String()),
			slog.Float64("total_price", created.TotalPrice))
	}
	return created, nil
}

// Approve activates a rental that is waiting for approval.
func (s *Service) Approve(ctx context.Context, id access.Identity, rentalID uuid.UUID) (Rental, error) {
	rental, err := s.repo.GetRental(ctx, rentalID)
	if err != nil {
		return Rental{}, err
	}
	if rental.Status != StatusPendingApproval {
		return Rental{}, fmt.Errorf("rentals: %s is not pending approval", rentalID)
	}

	decision := s.resolver.Resolve(ctx, id, access.ResourceRentals, access.ActionApprove, rental.CompanyID, 0)
	if !decision.Allowed {
		return Rental{}, fmt.Errorf("%w: %s", ErrDenied, decision.Reason)
	}
	return s.repo.UpdateRentalStatus(ctx, rentalID, StatusActive)
}

// Cancel cancels an active or pending rental.
func (s *Service) Cancel(ctx context.Context, id access.Identity, rentalID uuid.UUID) (Rental, error) {
	rental, err := s.repo.GetRental(ctx, rentalID)
	if err != nil {
		return Rental{}, err
	}
	if rental.Status == StatusCompleted || rental.Status == StatusCancelled {
		return Rental{}, fmt.Errorf("rentals: %s already closed", rentalID)
	}

	decision := s.resolver.Resolve(ctx, id, access.ResourceRentals, access.ActionWrite, rental.CompanyID, 0)
	if !decision.Allowed {
		return Rental{}, fmt.Errorf("%w: %s", ErrDenied, decision.Reason)
	}
	return s.repo.UpdateRentalStatus(ctx, rentalID, StatusCancelled)
}
