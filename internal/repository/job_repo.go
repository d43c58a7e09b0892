package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(d *sql.DB) *JobRepository {
	return &JobRepository{DB: d}
}

// GetActiveCodesPastEndTime returns codes of active reservations whose end
// time has passed; the expiry job settles them one by one.
func (r *JobRepository) GetActiveCodesPastEndTime(ctx context.Context) ([]string, error) {
	query := `SELECT code FROM reservations WHERE status = 'active' AND end_time < NOW()`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying elapsed reservations: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("error scanning reservation code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// DeleteStaleCancelled prunes cancelled reservations older than the cutoff.
// Finalized reservations are kept as the audit trail.
func (r *JobRepository) DeleteStaleCancelled(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM reservations WHERE status = 'cancelled' AND updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("error deleting stale cancelled reservations: %w", err)
	}
	return result.RowsAffected()
}

// FailPayments writes off the given pending payments. The poller uses it for
// wallet transfers that never arrived. Each write-off appends its
// payment_history row in the same transaction, so the audit trail stays
// complete even for payments that failed without a gateway round-trip.
func (r *JobRepository) FailPayments(ctx context.Context, ids []string, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		UPDATE payments
		SET status = 'failed', last_error = $1, attempts = attempts + 1
		WHERE id = ANY($2) AND status = 'pending'
		RETURNING id`, reason, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error failing payments: %w", err)
	}
	var failed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("error scanning failed payment id: %w", err)
		}
		failed = append(failed, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error reading failed payment ids: %w", err)
	}

	for _, id := range failed {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payment_history (payment_id, from_status, to_status, message, created_at)
			VALUES ($1, 'pending', 'failed', $2, NOW())`, id, reason)
		if err != nil {
			return fmt.Errorf("error recording write-off for payment %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing payment write-off: %w", err)
	}
	if len(failed) > 0 {
		log.Printf("Marked %d payments failed: %s", len(failed), reason)
	}
	return nil
}
