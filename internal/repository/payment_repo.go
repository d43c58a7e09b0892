package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aparca/internal/db"
	"aparca/internal/entities"
)

type PaymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(d *sql.DB) *PaymentRepository {
	return &PaymentRepository{DB: d}
}

func (r *PaymentRepository) InTx(ctx context.Context, fn func(tx PaymentTx) error) error {
	sqlTx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment tx: %w", err)
	}
	if err := fn(&paymentTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit payment tx: %w", err)
	}
	return nil
}

const paymentColumns = `id, reference, reservation_id, user_id, amount, currency, method, status, commission, owner_payout, refunded_amount, attempts, last_error, created_at, paid_at, refunded_at`

func scanPayment(scan func(dest ...interface{}) error) (*db.Payment, error) {
	var p db.Payment
	err := scan(
		&p.ID, &p.Reference, &p.ReservationID, &p.UserID, &p.Amount, &p.Currency,
		&p.Method, &p.Status, &p.Commission, &p.OwnerPayout, &p.RefundedAmount,
		&p.Attempts, &p.LastError, &p.CreatedAt, &p.PaidAt, &p.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetPayment(ctx context.Context, id string) (*db.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.DB.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("error querying payment %s: %w", id, err)
	}
	return p, nil
}

func (r *PaymentRepository) ListPendingByUser(ctx context.Context, userID int) ([]db.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 AND status = 'pending' ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying pending payments: %w", err)
	}
	defer rows.Close()

	var out []db.Payment
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListPendingWalletIDs returns ids of wallet payments that have sat pending
// longer than the threshold; the polling job retries them.
func (r *PaymentRepository) ListPendingWalletIDs(ctx context.Context, olderThan time.Duration) ([]string, error) {
	query := `
		SELECT id FROM payments
		WHERE status = 'pending' AND method IN ('yape', 'plin') AND created_at < $1
		ORDER BY created_at`
	rows, err := r.DB.QueryContext(ctx, query, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("error querying pending wallet payments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning payment id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PaymentRepository) Stats(ctx context.Context) (*entities.PaymentStats, error) {
	var s entities.PaymentStats
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount), 0), COALESCE(SUM(commission), 0), COALESCE(SUM(owner_payout), 0)
		FROM payments WHERE status = 'paid'`
	err := r.DB.QueryRowContext(ctx, query).Scan(&s.TotalPaid, &s.AmountTotal, &s.CommissionTotal, &s.PayoutTotal)
	if err != nil {
		return nil, fmt.Errorf("error querying payment stats: %w", err)
	}
	return &s, nil
}

type paymentTx struct {
	tx *sql.Tx
}

func (t *paymentTx) GetReservationForUpdateByID(id string) (*db.Reservation, error) {
	var res db.Reservation
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	err := t.tx.QueryRow(query, id).Scan(
		&res.ID, &res.Code, &res.UserID, &res.UserEmail, &res.UserPhone, &res.VehicleID, &res.LotID, &res.Kind,
		&res.StartTime, &res.EndTime, &res.DurationMinutes, &res.Cost, &res.Status,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("error locking reservation %s: %w", id, err)
	}
	return &res, nil
}

func (t *paymentTx) UpdateReservationStatus(id, status string) error {
	_, err := t.tx.Exec(`UPDATE reservations SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("error updating reservation %s status: %w", id, err)
	}
	return nil
}

func (t *paymentTx) GetLot(id int) (*db.ParkingLot, error) {
	var lot db.ParkingLot
	var dayRate, monthRate sql.NullInt64
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE id = $1`
	err := t.tx.QueryRow(query, id).Scan(
		&lot.ID, &lot.OwnerID, &lot.Name, &lot.Address, &lot.HourlyRate, &dayRate, &monthRate,
		&lot.TotalSpaces, &lot.AvailableSpaces, &lot.Approved, &lot.Active, &lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("error querying lot %d: %w", id, err)
	}
	lot.DayRate = nullRate(dayRate)
	lot.MonthRate = nullRate(monthRate)
	return &lot, nil
}

func (t *paymentTx) InsertPayment(p *db.Payment) error {
	query := `
		INSERT INTO payments
		(id, reference, reservation_id, user_id, amount, currency, method, status, commission, owner_payout, refunded_amount, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`
	return t.tx.QueryRow(query,
		p.ID, p.Reference, p.ReservationID, p.UserID, p.Amount.Cents(), p.Currency,
		p.Method, p.Status, p.Commission.Cents(), p.OwnerPayout.Cents(), p.RefundedAmount.Cents(),
		p.Attempts, p.CreatedAt,
	).Scan(&p.CreatedAt)
}

func (t *paymentTx) GetPaymentForUpdate(id string) (*db.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	p, err := scanPayment(t.tx.QueryRow(query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("error locking payment %s: %w", id, err)
	}
	return p, nil
}

func (t *paymentTx) UpdatePayment(p *db.Payment) error {
	query := `
		UPDATE payments
		SET status = $2, commission = $3, owner_payout = $4, refunded_amount = $5,
		    attempts = $6, last_error = $7, paid_at = $8, refunded_at = $9
		WHERE id = $1`
	_, err := t.tx.Exec(query,
		p.ID, p.Status, p.Commission.Cents(), p.OwnerPayout.Cents(), p.RefundedAmount.Cents(),
		p.Attempts, p.LastError, p.PaidAt, p.RefundedAt,
	)
	if err != nil {
		return fmt.Errorf("error updating payment %s: %w", p.ID, err)
	}
	return nil
}

func (t *paymentTx) AppendHistory(h *db.PaymentHistory) error {
	query := `
		INSERT INTO payment_history (payment_id, from_status, to_status, message, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`
	return t.tx.QueryRow(query, h.PaymentID, h.FromStatus, h.ToStatus, h.Message).Scan(&h.ID, &h.CreatedAt)
}
