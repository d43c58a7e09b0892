package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aparca/internal/db"
)

type ReservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(d *sql.DB) *ReservationRepository {
	return &ReservationRepository{DB: d}
}

// InTx runs fn inside a transaction. Any error from fn rolls the whole
// transaction back, so a failed availability mutation never persists
// alongside a reservation write.
func (r *ReservationRepository) InTx(ctx context.Context, fn func(tx ReservationTx) error) error {
	sqlTx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reservation tx: %w", err)
	}
	if err := fn(&reservationTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit reservation tx: %w", err)
	}
	return nil
}

const reservationColumns = `id, code, user_id, user_email, user_phone, vehicle_id, lot_id, kind, start_time, end_time, duration_minutes, cost, status, created_at, updated_at`

func scanReservation(row *sql.Row) (*db.Reservation, error) {
	var res db.Reservation
	err := row.Scan(
		&res.ID, &res.Code, &res.UserID, &res.UserEmail, &res.UserPhone, &res.VehicleID, &res.LotID, &res.Kind,
		&res.StartTime, &res.EndTime, &res.DurationMinutes, &res.Cost, &res.Status,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepository) GetByCode(ctx context.Context, code string) (*db.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE code = $1`
	res, err := scanReservation(r.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("error querying reservation %s: %w", code, err)
	}
	return res, nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID int) ([]db.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *ReservationRepository) ListAll(ctx context.Context) ([]db.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...interface{}) ([]db.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying reservations: %w", err)
	}
	defer rows.Close()

	var out []db.Reservation
	for rows.Next() {
		var res db.Reservation
		if err := rows.Scan(
			&res.ID, &res.Code, &res.UserID, &res.UserEmail, &res.UserPhone, &res.VehicleID, &res.LotID, &res.Kind,
			&res.StartTime, &res.EndTime, &res.DurationMinutes, &res.Cost, &res.Status,
			&res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ReservationRepository) GetVehicle(ctx context.Context, id int) (*db.Vehicle, error) {
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

// reservationTx wraps a sql.Tx with the operations the reservation state
// machine needs while holding the lot lock.
type reservationTx struct {
	tx *sql.Tx
}

func (t *reservationTx) LockLot(lotID int) (*db.ParkingLot, error) {
	var lot db.ParkingLot
	query := `
		SELECT id, owner_id, name, address, hourly_rate, day_rate, month_rate,
		       total_spaces, available_spaces, approved, active, created_at, updated_at
		FROM parking_lots WHERE id = $1 FOR UPDATE`
	var dayRate, monthRate sql.NullInt64
	err := t.tx.QueryRow(query, lotID).Scan(
		&lot.ID, &lot.OwnerID, &lot.Name, &lot.Address, &lot.HourlyRate, &dayRate, &monthRate,
		&lot.TotalSpaces, &lot.AvailableSpaces, &lot.Approved, &lot.Active, &lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("error locking lot %d: %w", lotID, err)
	}
	lot.DayRate = nullRate(dayRate)
	lot.MonthRate = nullRate(monthRate)
	return &lot, nil
}

// AdjustLotSpaces applies delta to the locked lot's counter and returns the
// resulting values so the caller can verify the 0..total bounds before
// committing.
func (t *reservationTx) AdjustLotSpaces(lotID, delta int) (int, int, error) {
	var available, total int
	query := `
		UPDATE parking_lots
		SET available_spaces = available_spaces + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING available_spaces, total_spaces`
	if err := t.tx.QueryRow(query, lotID, delta).Scan(&available, &total); err != nil {
		return 0, 0, fmt.Errorf("error adjusting spaces for lot %d: %w", lotID, err)
	}
	return available, total, nil
}

func (t *reservationTx) VehicleHasOverlap(vehicleID int, start, end time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE vehicle_id = $1
			  AND start_time < $3
			  AND end_time > $2
			  AND status IN ('active', 'confirmed')
		)`
	if err := t.tx.QueryRow(query, vehicleID, start, end).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking vehicle %d overlap: %w", vehicleID, err)
	}
	return exists, nil
}

func (t *reservationTx) InsertReservation(res *db.Reservation) error {
	query := `
		INSERT INTO reservations
		(id, code, user_id, user_email, user_phone, vehicle_id, lot_id, kind, start_time, end_time, duration_minutes, cost, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`
	return t.tx.QueryRow(query,
		res.ID, res.Code, res.UserID, res.UserEmail, res.UserPhone, res.VehicleID, res.LotID, res.Kind,
		res.StartTime, res.EndTime, res.DurationMinutes, res.Cost, res.Status,
		res.CreatedAt, res.UpdatedAt,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
}

func (t *reservationTx) GetReservationForUpdate(code string) (*db.Reservation, error) {
	var res db.Reservation
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE code = $1 FOR UPDATE`
	err := t.tx.QueryRow(query, code).Scan(
		&res.ID, &res.Code, &res.UserID, &res.UserEmail, &res.UserPhone, &res.VehicleID, &res.LotID, &res.Kind,
		&res.StartTime, &res.EndTime, &res.DurationMinutes, &res.Cost, &res.Status,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("error locking reservation %s: %w", code, err)
	}
	return &res, nil
}

func (t *reservationTx) UpdateReservation(res *db.Reservation) error {
	query := `
		UPDATE reservations
		SET start_time = $2, end_time = $3, duration_minutes = $4, cost = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return t.tx.QueryRow(query,
		res.ID, res.StartTime, res.EndTime, res.DurationMinutes, res.Cost, res.Status,
	).Scan(&res.UpdatedAt)
}
