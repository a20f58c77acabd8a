package vehicles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const vehicleColumns = `id, license_plate, brand, model, year, status, owner_company_id, created_at, updated_at`

// ListVehicles returns all vehicles, optionally including removed ones.
func (r *Repository) ListVehicles(ctx context.Context, includeRemoved bool) ([]Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles`
	if !includeRemoved {
		query += ` WHERE status <> 'removed'`
	}
	query += ` ORDER BY license_plate`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vehicles: list: %w", err)
	}
	defer rows.Close()
	return scanVehicles(rows)
}

// ListVehiclesForCompanies returns vehicles owned by any of the given
// companies. This is the row-level scoping layer; the in-process scope
// filter still runs on the result.
func (r *Repository) ListVehiclesForCompanies(ctx context.Context, companyIDs []uuid.UUID, includeRemoved bool) ([]Vehicle, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE owner_company_id = ANY($1)`
	if !includeRemoved {
		query += ` AND status <> 'removed'`
	}
	query += ` ORDER BY license_plate`

	rows, err := r.pool.Query(ctx, query, companyIDs)
	if err != nil {
		return nil, fmt.Errorf("vehicles: list for companies: %w", err)
	}
	defer rows.Close()
	return scanVehicles(rows)
}

// GetVehicle fetches a vehicle by ID.
func (r *Repository) GetVehicle(ctx context.Context, id uuid.UUID) (Vehicle, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	vehicle, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vehicle{}, ErrNotFound
		}
		return Vehicle{}, fmt.Errorf("vehicles: get: %w", err)
	}
	return vehicle, nil
}

// CreateVehicle inserts a new vehicle.
func (r *Repository) CreateVehicle(ctx context.Context, vehicle Vehicle) (Vehicle, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO vehicles (license_plate, brand, model, year, status, owner_company_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+vehicleColumns,
		vehicle.LicensePlate, vehicle.Brand, vehicle.Model, vehicle.Year, vehicle.Status, vehicle.OwnerCompanyID)
	created, err := scanVehicle(row)
	if err != nil {
		return Vehicle{}, fmt.Errorf("vehicles: create: %w", err)
	}
	return created, nil
}

func scanVehicles(rows pgx.Rows) ([]Vehicle, error) {
	var out []Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("vehicles: scan: %w", err)
		}
		out = append(out, vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vehicles: rows: %w", err)
	}
	return out, nil
}

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.LicensePlate, &v.Brand, &v.Model, &v.Year, &v.Status, &v.OwnerCompanyID, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}
