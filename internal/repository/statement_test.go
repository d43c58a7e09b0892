package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"aparca/internal/db"
	"aparca/internal/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// argcheck is a stub driver that reports each statement's real placeholder
// count, so database/sql enforces bind arity the same way postgres would.
// It also records every prepared statement for assertions.

type argcheckDriver struct{}

func (argcheckDriver) Open(string) (driver.Conn, error) { return &argcheckConn{}, nil }

type argcheckConn struct{}

func (*argcheckConn) Prepare(query string) (driver.Stmt, error) {
	stmtLog.record(query)
	return &argcheckStmt{query: query}, nil
}
func (*argcheckConn) Close() error              { return nil }
func (*argcheckConn) Begin() (driver.Tx, error) { return argcheckTx{}, nil }

type argcheckTx struct{}

func (argcheckTx) Commit() error   { return nil }
func (argcheckTx) Rollback() error { return nil }

var placeholderPattern = regexp.MustCompile(`\$([0-9]+)`)

type argcheckStmt struct{ query string }

func (s *argcheckStmt) Close() error { return nil }

func (s *argcheckStmt) NumInput() int {
	max := 0
	for _, m := range placeholderPattern.FindAllStringSubmatch(s.query, -1) {
		if n, _ := strconv.Atoi(m[1]); n > max {
			max = n
		}
	}
	return max
}

func (s *argcheckStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(1), nil
}

func (s *argcheckStmt) Query([]driver.Value) (driver.Rows, error) {
	return &argcheckRows{columns: returningColumns(s.query)}, nil
}

// returningColumns lists the RETURNING clause columns so scans line up.
func returningColumns(query string) []string {
	i := strings.Index(strings.ToUpper(query), "RETURNING")
	if i < 0 {
		return nil
	}
	fields := strings.Split(query[i+len("RETURNING"):], ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.TrimSpace(f))
	}
	return out
}

type argcheckRows struct {
	columns []string
	done    bool
}

func (r *argcheckRows) Columns() []string { return r.columns }
func (r *argcheckRows) Close() error      { return nil }

func (r *argcheckRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	for i, col := range r.columns {
		if col == "id" {
			dest[i] = int64(1)
			continue
		}
		dest[i] = time.Now()
	}
	return nil
}

var stmtLog = &statementLog{}

type statementLog struct {
	mu      sync.Mutex
	queries []string
}

func (l *statementLog) record(q string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, q)
}

func (l *statementLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = nil
}

func (l *statementLog) matching(substr string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, q := range l.queries {
		if strings.Contains(q, substr) {
			out = append(out, q)
		}
	}
	return out
}

func init() {
	sql.Register("argcheck", argcheckDriver{})
}

func openArgcheckDB(t *testing.T) *sql.DB {
	t.Helper()
	stmtLog.reset()
	d, err := sql.Open("argcheck", "")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestReservationWriteStatementsBindAllColumns(t *testing.T) {
	repo := NewReservationRepository(openArgcheckDB(t))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	res := &db.Reservation{
		ID:              "6a1f3c2e-0000-4000-8000-000000000001",
		Code:            "ABCD1234",
		UserID:          7,
		UserEmail:       "driver@example.com",
		UserPhone:       "+51999888777",
		VehicleID:       1,
		LotID:           1,
		Kind:            db.KindHourly,
		StartTime:       now,
		EndTime:         now.Add(2 * time.Hour),
		DurationMinutes: 120,
		Cost:            money.FromCents(12000),
		Status:          db.ReservationActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := repo.InTx(context.Background(), func(tx ReservationTx) error {
		if err := tx.InsertReservation(res); err != nil {
			return err
		}
		res.Status = db.ReservationCancelled
		return tx.UpdateReservation(res)
	})
	require.NoError(t, err)
}

func TestPaymentWriteStatementsBindAllColumns(t *testing.T) {
	repo := NewPaymentRepository(openArgcheckDB(t))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	payment := &db.Payment{
		ID:            "6a1f3c2e-0000-4000-8000-000000000002",
		Reference:     "PAY-0001",
		ReservationID: "6a1f3c2e-0000-4000-8000-000000000001",
		UserID:        7,
		Amount:        money.FromCents(5000),
		Currency:      "PEN",
		Method:        db.MethodCard,
		Status:        db.PaymentPending,
		CreatedAt:     now,
	}

	err := repo.InTx(context.Background(), func(tx PaymentTx) error {
		if err := tx.InsertPayment(payment); err != nil {
			return err
		}
		payment.Status = db.PaymentPaid
		payment.PaidAt = sql.NullTime{Time: now, Valid: true}
		if err := tx.UpdatePayment(payment); err != nil {
			return err
		}
		return tx.AppendHistory(&db.PaymentHistory{
			PaymentID:  payment.ID,
			FromStatus: db.PaymentProcessing,
			ToStatus:   db.PaymentPaid,
			Message:    "gateway confirmed",
		})
	})
	require.NoError(t, err)
}

func TestFailPaymentsRecordsHistory(t *testing.T) {
	repo := NewJobRepository(openArgcheckDB(t))

	err := repo.FailPayments(context.Background(),
		[]string{"6a1f3c2e-0000-4000-8000-000000000002"}, "wallet transfer not received within 24h")
	require.NoError(t, err)

	history := stmtLog.matching("payment_history")
	require.Len(t, history, 1, "write-off must append a payment_history row")
	updates := stmtLog.matching("SET status = 'failed'")
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0], "attempts = attempts + 1")
}
