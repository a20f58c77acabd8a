package access

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultGrantTTL bounds how long a cached per-user grant set may be served.
const DefaultGrantTTL = 5 * time.Minute

// DefaultQueryTimeout caps individual permission-store queries. A lookup
// that times out denies; it never allows.
const DefaultQueryTimeout = 3 * time.Second

// Store is the single facade over the user_permissions table. Every grant
// mutation goes through it, and each mutation invalidates the owning user's
// cache entry before returning, so no write path can forget to do so.
type Store struct {
	pool    *pgxpool.Pool
	cache   *GrantCache
	audit   AuditSink
	logger  *slog.Logger
	timeout time.Duration
}

// StoreConfig carries optional Store settings.
type StoreConfig struct {
	GrantTTL     time.Duration
	QueryTimeout time.Duration
}

// NewStore constructs the permission store with its internal grant cache.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger, audit AuditSink, cfg StoreConfig) *Store {
	if cfg.GrantTTL <= 0 {
		cfg.GrantTTL = DefaultGrantTTL
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	s := &Store{
		pool:    pool,
		audit:   audit,
		logger:  logger,
		timeout: cfg.QueryTimeout,
	}
	s.cache = NewGrantCache(s.loadGrants, cfg.GrantTTL)
	return s
}

// Grants returns the user's grants through the TTL cache.
func (s *Store) Grants(ctx context.Context, userID uuid.UUID) ([]Grant, error) {
	return s.cache.Get(ctx, userID)
}

// InvalidateUser drops the user's cached grants.
func (s *Store) InvalidateUser(userID uuid.UUID) {
	s.cache.Invalidate(userID)
}

// ResetCache drops every cached grant set. Administrative use only.
func (s *Store) ResetCache() {
	s.cache.Reset()
}

func (s *Store) loadGrants(ctx context.Context, userID uuid.UUID) ([]Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT up.company_id, c.name, up.permissions, up.created_at
		FROM user_permissions up
		JOIN companies c ON c.id = up.company_id
		WHERE up.user_id = $1
		ORDER BY c.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("access: load grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		grant := Grant{UserID: userID}
		var raw []byte
		if err := rows.Scan(&grant.CompanyID, &grant.CompanyName, &raw, &grant.GrantedAt); err != nil {
			return nil, fmt.Errorf("access: scan grant: %w", err)
		}
		perms, err := ParsePermissions(raw)
		if err != nil {
			return nil, err
		}
		grant.Permissions = perms
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("access: load grants: %w", err)
	}
	return grants, nil
}

// UpsertGrant writes (or replaces) the user's permission set for a company
// and invalidates the user's cached grants once the write has committed.
func (s *Store) UpsertGrant(ctx context.Context, userID, companyID uuid.UUID, perms CompanyPermissions) error {
	payload, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("access: encode permissions: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.pool.Exec(writeCtx, `
		INSERT INTO user_permissions (user_id, company_id, permissions)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, company_id)
		DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = NOW()`,
		userID, companyID, payload)
	if err != nil {
		return fmt.Errorf("access: upsert grant: %w", err)
	}

	s.cache.Invalidate(userID)
	s.recordAudit(ctx, AuditEvent{
		Action:   auditGrantUpserted,
		Entity:   "user_permission",
		EntityID: userID.String(),
		Meta:     map[string]any{"company_id": companyID.String()},
	})
	return nil
}

// DeleteGrant removes the user's permission set for a company and
// invalidates the user's cached grants.
func (s *Store) DeleteGrant(ctx context.Context, userID, companyID uuid.UUID) error {
	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.pool.Exec(writeCtx, `
		DELETE FROM user_permissions
		WHERE user_id = $1 AND company_id = $2`, userID, companyID)
	if err != nil {
		return fmt.Errorf("access: delete grant: %w", err)
	}

	s.cache.Invalidate(userID)
	s.recordAudit(ctx, AuditEvent{
		Action:   auditGrantDeleted,
		Entity:   "user_permission",
		EntityID: userID.String(),
		Meta:     map[string]any{"company_id": companyID.String()},
	})
	return nil
}

// GrantsForCompany lists users holding a grant for the company. Used by
// company administration screens; not cached.
func (s *Store) GrantsForCompany(ctx context.Context, companyID uuid.UUID) ([]Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT up.user_id, up.permissions, up.created_at
		FROM user_permissions up
		JOIN users u ON u.id = up.user_id
		WHERE up.company_id = $1
		ORDER BY u.last_name, u.first_name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("access: grants for company: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		grant := Grant{CompanyID: companyID}
		var raw []byte
		if err := rows.Scan(&grant.UserID, &raw, &grant.GrantedAt); err != nil {
			return nil, fmt.Errorf("access: scan grant: %w", err)
		}
		perms, err := ParsePermissions(raw)
		if err != nil {
			return nil, err
		}
		grant.Permissions = perms
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("access: grants for company: %w", err)
	}
	return grants, nil
}

// CompanyIDs returns every company in the system. Elevated roles use it to
// expand "sees everything" into a concrete company list.
func (s *Store) CompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT id FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("access: company ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("access: scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("access: company ids: %w", err)
	}
	return ids, nil
}

func (s *Store) recordAudit(ctx context.Context, event AuditEvent) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, event)
}
