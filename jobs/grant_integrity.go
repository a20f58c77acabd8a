package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentiva/rentiva/internal/access"
)

// GrantIntegrityChecker walks the grant table and reports rows whose
// permission payload no longer parses. Malformed rows deny access at
// resolution time; this job surfaces them so an operator can repair them.
type GrantIntegrityChecker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewGrantIntegrityChecker constructs the checker.
func NewGrantIntegrityChecker(pool *pgxpool.Pool, logger *slog.Logger) *GrantIntegrityChecker {
	return &GrantIntegrityChecker{pool: pool, logger: logger}
}

// Run scans all grants and returns the number of malformed rows.
func (c *GrantIntegrityChecker) Run(ctx context.Context) (int, error) {
	rows, err := c.pool.Query(ctx, `SELECT user_id, company_id, permissions FROM user_permissions`)
	if err != nil {
		return 0, fmt.Errorf("grant integrity: query: %w", err)
	}
	defer rows.Close()

	scanned := 0
	malformed := 0
	for rows.Next() {
		var (
			userID    uuid.UUID
			companyID uuid.UUID
			raw       []byte
		)
		if err := rows.Scan(&userID, &companyID, &raw); err != nil {
			return malformed, fmt.Errorf("grant integrity: scan: %w", err)
		}
		scanned++
		if _, err := access.ParsePermissions(raw); err != nil {
			malformed++
			c.logger.Warn("malformed grant",
				slog.String("user_id", userID.String()),
				slog.String("company_id", companyID.String()),
				slog.Any("error", err))
		}
	}
	if err := rows.Err(); err != nil {
		return malformed, fmt.Errorf("grant integrity: rows: %w", err)
	}

	c.logger.Info("grant integrity scan finished",
		slog.Int("scanned", scanned),
		slog.Int("malformed", malformed))
	return malformed, nil
}
