package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aparca/internal/db"
	"aparca/internal/money"

	"github.com/lib/pq"
)

type LotRepository struct {
	DB *sql.DB
}

func NewLotRepository(d *sql.DB) *LotRepository {
	return &LotRepository{DB: d}
}

const lotColumns = `id, owner_id, name, address, hourly_rate, day_rate, month_rate, total_spaces, available_spaces, approved, active, created_at, updated_at`

func nullRate(v sql.NullInt64) *money.Amount {
	if !v.Valid {
		return nil
	}
	a := money.FromCents(v.Int64)
	return &a
}

func rateArg(a *money.Amount) interface{} {
	if a == nil {
		return nil
	}
	return a.Cents()
}

func (r *LotRepository) Create(ctx context.Context, lot *db.ParkingLot) error {
	query := `
		INSERT INTO parking_lots
		(owner_id, name, address, hourly_rate, day_rate, month_rate, total_spaces, available_spaces, approved, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	return r.DB.QueryRowContext(ctx, query,
		lot.OwnerID, lot.Name, lot.Address, lot.HourlyRate.Cents(),
		rateArg(lot.DayRate), rateArg(lot.MonthRate),
		lot.TotalSpaces, lot.AvailableSpaces, lot.Approved, lot.Active,
	).Scan(&lot.ID, &lot.CreatedAt, &lot.UpdatedAt)
}

func (r *LotRepository) GetByID(ctx context.Context, id int) (*db.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

func (r *LotRepository) ListPublic(ctx context.Context) ([]db.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE approved AND active ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying lots: %w", err)
	}
	defer rows.Close()

	var out []db.ParkingLot
	for rows.Next() {
		var lot db.ParkingLot
		var dayRate, monthRate sql.NullInt64
		if err := rows.Scan(
			&lot.ID, &lot.OwnerID, &lot.Name, &lot.Address, &lot.HourlyRate, &dayRate, &monthRate,
			&lot.TotalSpaces, &lot.AvailableSpaces, &lot.Approved, &lot.Active, &lot.CreatedAt, &lot.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning lot: %w", err)
		}
		lot.DayRate = nullRate(dayRate)
		lot.MonthRate = nullRate(monthRate)
		out = append(out, lot)
	}
	return out, rows.Err()
}

// Approve marks the lot approved and active in one statement.
func (r *LotRepository) Approve(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE parking_lots SET approved = TRUE, active = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error approving lot %d: %w", id, err)
	}
	return requireRow(result)
}

// Delete removes a rejected lot entirely.
func (r *LotRepository) Delete(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting lot %d: %w", id, err)
	}
	return requireRow(result)
}

func (r *LotRepository) scanOne(row *sql.Row) (*db.ParkingLot, error) {
	var lot db.ParkingLot
	var dayRate, monthRate sql.NullInt64
	err := row.Scan(
		&lot.ID, &lot.OwnerID, &lot.Name, &lot.Address, &lot.HourlyRate, &dayRate, &monthRate,
		&lot.TotalSpaces, &lot.AvailableSpaces, &lot.Approved, &lot.Active, &lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("error scanning lot: %w", err)
	}
	lot.DayRate = nullRate(dayRate)
	lot.MonthRate = nullRate(monthRate)
	return &lot, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation, e.g. a duplicate vehicle plate or a second payment for a
// reservation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
