package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentiva/rentiva/internal/access"
)

// GrantWarmer pre-populates the permission store's cache so the first
// request after a deploy does not pay the database round trip.
type GrantWarmer struct {
	pool   *pgxpool.Pool
	store  *access.Store
	logger *slog.Logger
}

// NewGrantWarmer constructs the warmer.
func NewGrantWarmer(pool *pgxpool.Pool, store *access.Store, logger *slog.Logger) *GrantWarmer {
	return &GrantWarmer{pool: pool, store: store, logger: logger}
}

// Warm loads grants for the given users through the store, filling its
// cache. An empty list warms every user present in the grant table.
func (w *GrantWarmer) Warm(ctx context.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		var err error
		userIDs, err = w.grantedUsers(ctx)
		if err != nil {
			return err
		}
	}

	warmed := 0
	for _, userID := range userIDs {
		if _, err := w.store.Grants(ctx, userID); err != nil {
			w.logger.Warn("grant warmup skipped user",
				slog.String("user_id", userID.String()),
				slog.Any("error", err))
			continue
		}
		warmed++
	}
	w.logger.Info("grant warmup finished", slog.Int("warmed", warmed))
	return nil
}

func (w *GrantWarmer) grantedUsers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := w.pool.Query(ctx, `SELECT DISTINCT user_id FROM user_permissions`)
	if err != nil {
		return nil, fmt.Errorf("grant warmup: query: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("grant warmup: scan: %w", err)
		}
		out = append(out, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grant warmup: rows: %w", err)
	}
	return out, nil
}
