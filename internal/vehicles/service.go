package vehicles

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/rentiva/rentiva/internal/access"
	"github.com/rentiva/rentiva/internal/shared"
)

// RepositoryPort is the persistence dependency of the service.
type RepositoryPort interface {
	ListVehicles(ctx context.Context, includeRemoved bool) ([]Vehicle, error)
	ListVehiclesForCompanies(ctx context.Context, companyIDs []uuid.UUID, includeRemoved bool) ([]Vehicle, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (Vehicle, error)
	CreateVehicle(ctx context.Context, vehicle Vehicle) (Vehicle, error)
}

// Service applies access control to vehicle reads and writes.
type Service struct {
	repo     RepositoryPort
	resolver *access.Resolver
	scope    *access.ScopeFilter
	cache    *shared.ReadCache
	logger   *slog.Logger
}

// NewService constructs the vehicle service. The cache may be nil.
func NewService(repo RepositoryPort, resolver *access.Resolver, scope *access.ScopeFilter, cache *shared.ReadCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, scope: scope, cache: cache, logger: logger}
}

// List returns vehicles visible to the identity. Results are cached per
// user; the cache key carries the user so one tenant's listing can never be
// served to another.
func (s *Service) List(ctx context.Context, id access.Identity, includeRemoved bool) ([]Vehicle, error) {
	if id.Anonymous() {
		return nil, ErrDenied
	}

	load := func(ctx context.Context) (interface{}, error) {
		return s.loadVisible(ctx, id, includeRemoved)
	}
	if s.cache == nil {
		return s.loadVisible(ctx, id, includeRemoved)
	}

	key, err := s.cache.BuildKey(ctx, "list", id.UserID.String(), strconv.FormatBool(includeRemoved))
	if err != nil {
		return s.loadVisible(ctx, id, includeRemoved)
	}
	var out []Vehicle
	if err := s.cache.FetchJSON(ctx, key, &out, load); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) loadVisible(ctx context.Context, id access.Identity, includeRemoved bool) ([]Vehicle, error) {
	visible := s.scope.AllowedCompanies(ctx, id)

	var (
		rows []Vehicle
		err  error
	)
	if visible.All() {
		rows, err = s.repo.ListVehicles(ctx, includeRemoved)
	} else {
		rows, err = s.repo.ListVehiclesForCompanies(ctx, visible.IDs(), includeRemoved)
	}
	if err != nil {
		return nil, err
	}
	// Row-level scoping already narrowed the query; the in-process filter
	// runs anyway as the last line of defense.
	return access.FilterOwned(ctx, s.scope, id, rows), nil
}

// Get returns one vehicle after a point permission check against its
// owning company.
func (s *Service) Get(ctx context.Context, id access.Identity, vehicleID uuid.UUID) (Vehicle, error) {
	vehicle, err := s.repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return Vehicle{}, err
	}
	decision := s.resolver.Resolve(ctx, id, access.ResourceVehicles, access.ActionRead, vehicle.OwnerCompanyID, 0)
	if !decision.Allowed {
		return Vehicle{}, fmt.Errorf("%w: %s", ErrDenied, decision.Reason)
	}
	return vehicle, nil
}

// Create inserts a vehicle for the target company and busts the list cache.
func (s *Service) Create(ctx context.Context, id access.Identity, vehicle Vehicle) (Vehicle, error) {
	decision := s.resolver.Resolve(ctx, id, access.ResourceVehicles, access.ActionWrite, vehicle.OwnerCompanyID, 0)
	if !decision.Allowed {
		return Vehicle{}, fmt.Errorf("%w: %s", ErrDenied, decision.Reason)
	}
	if vehicle.Status == "" {
		vehicle.Status = StatusAvailable
	}

	created, err := s.repo.CreateVehicle(ctx, vehicle)
	if err != nil {
		return Vehicle{}, err
	}
	s.bustListCache(ctx)
	return created, nil
}

func (s *Service) bustListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bust(ctx); err != nil && s.logger != nil {
		s.logger.Warn("bust vehicle list cache", slog.Any("error", err))
	}
}
