package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rentiva/rentiva/internal/access"
	"github.com/rentiva/rentiva/internal/platform/httpx"
	"github.com/rentiva/rentiva/internal/rentals"
	"github.com/rentiva/rentiva/internal/shared"
	"github.com/rentiva/rentiva/internal/users"
	"github.com/rentiva/rentiva/internal/vehicles"
	"github.com/rentiva/rentiva/jobs"
)

// Services bundles the wired domain services so the HTTP layer and the
// background workers share one construction site.
type Services struct {
	Store    *access.Store
	Resolver *access.Resolver
	Scope    *access.ScopeFilter
	Vehicles *vehicles.Service
	Rentals  *rentals.Service
	Users    *users.Service
}

// BuildServices wires repositories, the permission store and the domain
// services. The Redis client may be nil; list caching is skipped then.
func BuildServices(pool *pgxpool.Pool, rdb *redis.Client, cfg *Config, logger *slog.Logger) *Services {
	sink := shared.NewAuditSink(shared.NewAuditLogger(pool), logger)

	store := access.NewStore(pool, logger, sink, access.StoreConfig{
		GrantTTL:     cfg.PermissionCacheTTL,
		QueryTimeout: cfg.StoreQueryTimeout,
	})
	resolver := access.NewResolver(store, sink, logger)
	scope := access.NewScopeFilter(store, logger)

	var vehicleCache *shared.ReadCache
	if rdb != nil {
		vehicleCache = shared.NewReadCache(rdb, "vehicles", cfg.ListCacheTTL)
	}

	return &Services{
		Store:    store,
		Resolver: resolver,
		Scope:    scope,
		Vehicles: vehicles.NewService(vehicles.NewRepository(pool), resolver, scope, vehicleCache, logger),
		Rentals:  rentals.NewService(rentals.NewRepository(pool), resolver, scope, logger),
		Users:    users.NewService(users.NewRepository(pool), logger),
	}
}

// NewRouter assembles the HTTP API. The jobs handler may be nil when no
// queue inspector is configured.
func NewRouter(svcs *Services, jobsHandler *jobs.Handler, cfg *Config, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: logger, Config: cfg}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		access.NewHandler(logger, svcs.Store).MountRoutes(api)
		vehicles.NewHandler(logger, svcs.Vehicles).MountRoutes(api)
		rentals.NewHandler(logger, svcs.Rentals).MountRoutes(api)
		users.NewHandler(logger, svcs.Users).MountRoutes(api)
		if jobsHandler != nil {
			api.Route("/jobs", jobsHandler.MountRoutes)
		}
	})

	return r
}
