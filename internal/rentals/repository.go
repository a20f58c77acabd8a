package rentals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentiva/rentiva/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const rentalColumns = `id, vehicle_id, customer_id, company_id, start_date, end_date, total_price, status, created_at, updated_at`

// ListRentals returns all rentals ordered by start date, newest first.
func (r *Repository) ListRentals(ctx context.Context) ([]Rental, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+rentalColumns+` FROM rentals ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("rentals: list: %w", err)
	}
	defer rows.Close()
	return scanRentals(rows)
}

// ListRentalsForCompanies returns rentals owned by any of the given companies.
func (r *Repository) ListRentalsForCompanies(ctx context.Context, companyIDs []uuid.UUID) ([]Rental, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE company_id = ANY($1) ORDER BY start_date DESC`, companyIDs)
	if err != nil {
		return nil, fmt.Errorf("rentals: list for companies: %w", err)
	}
	defer rows.Close()
	return scanRentals(rows)
}

// GetRental fetches a rental by ID.
func (r *Repository) GetRental(ctx context.Context, id uuid.UUID) (Rental, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE id = $1`, id)
	rental, err := scanRental(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rental{}, ErrNotFound
		}
		return Rental{}, fmt.Errorf("rentals: get: %w", err)
	}
	return rental, nil
}

// CreateRental inserts a new rental. An active rental also flips the
// vehicle to rented; both writes happen in one transaction.
func (r *Repository) CreateRental(ctx context.Context, rental Rental) (Rental, error) {
	var created Rental
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO rentals (vehicle_id, customer_id, company_id, start_date, end_date, total_price, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+rentalColumns,
			rental.VehicleID, rental.CustomerID, rental.CompanyID, rental.StartDate, rental.EndDate, rental.TotalPrice, rental.Status)
		var err error
		created, err = scanRental(row)
		if err != nil {
			return fmt.Errorf("rentals: create: %w", err)
		}
		if created.Status == StatusActive {
			if _, err := tx.Exec(ctx, `UPDATE vehicles SET status = 'rented', updated_at = now() WHERE id = $1`, created.VehicleID); err != nil {
				return fmt.Errorf("rentals: mark vehicle rented: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Rental{}, err
	}
	return created, nil
}

// UpdateRentalStatus transitions a rental to a new status and keeps the
// vehicle status in step.
func (r *Repository) UpdateRentalStatus(ctx context.Context, id uuid.UUID, status string) (Rental, error) {
	var updated Rental
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE rentals SET status = $2, updated_at = now()
			WHERE id = $1
			RETURNING `+rentalColumns, id, status)
		var err error
		updated, err = scanRental(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("rentals: update status: %w", err)
		}

		vehicleStatus := ""
		switch status {
		case StatusActive:
			vehicleStatus = "rented"
		case StatusCompleted, StatusCancelled:
			vehicleStatus = "available"
		}
		if vehicleStatus != "" {
			if _, err := tx.Exec(ctx, `UPDATE vehicles SET status = $2, updated_at = now() WHERE id = $1 AND status <> 'removed'`, updated.VehicleID, vehicleStatus); err != nil {
				return fmt.Errorf("rentals: sync vehicle status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Rental{}, err
	}
	return updated, nil
}

func scanRentals(rows pgx.Rows) ([]Rental, error) {
	var out []Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, fmt.Errorf("rentals: scan: %w", err)
		}
		out = append(out, rental)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rentals: rows: %w", err)
	}
	return out, nil
}

func scanRental(row pgx.Row) (Rental, error) {
	var r Rental
	err := row.Scan(&r.ID, &r.VehicleID, &r.CustomerID, &r.CompanyID, &r.StartDate, &r.EndDate, &r.TotalPrice, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
