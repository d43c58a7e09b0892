package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aparca/internal/db"
)

type VehicleRepository struct {
	DB *sql.DB
}

func NewVehicleRepository(d *sql.DB) *VehicleRepository {
	return &VehicleRepository{DB: d}
}

func (r *VehicleRepository) Create(ctx context.Context, v *db.Vehicle) error {
	query := `
		INSERT INTO vehicles (user_id, plate, make, model, class, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	return r.DB.QueryRowContext(ctx, query,
		v.UserID, v.Plate, v.Make, v.Model, v.Class,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

func (r *VehicleRepository) GetByID(ctx context.Context, id int) (*db.Vehicle, error) {
	var v db.Vehicle
	query := `SELECT id, user_id, plate, make, model, class, active, created_at, updated_at FROM vehicles WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.UserID, &v.Plate, &v.Make, &v.Model, &v.Class, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("error querying vehicle %d: %w", id, err)
	}
	return &v, nil
}

func (r *VehicleRepository) ListByUser(ctx context.Context, userID int) ([]db.Vehicle, error) {
	query := `
		SELECT id, user_id, plate, make, model, class, active, created_at, updated_at
		FROM vehicles WHERE user_id = $1 AND active ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying vehicles for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []db.Vehicle
	for rows.Next() {
		var v db.Vehicle
		if err := rows.Scan(&v.ID, &v.UserID, &v.Plate, &v.Make, &v.Model, &v.Class, &v.Active, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Deactivate soft-deletes a vehicle; reservations keep their reference.
func (r *VehicleRepository) Deactivate(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE vehicles SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active`, id)
	if err != nil {
		return fmt.Errorf("error deactivating vehicle %d: %w", id, err)
	}
	return requireRow(result)
}
