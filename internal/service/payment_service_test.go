package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"aparca/internal/apperr"
	"aparca/internal/auth"
	"aparca/internal/db"
	"aparca/internal/entities"
	"aparca/internal/money"
	"aparca/internal/repository"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPaymentStore struct {
	mu           sync.Mutex
	lots         map[int]*db.ParkingLot
	reservations map[string]*db.Reservation // by id
	payments     map[string]*db.Payment
	history      []db.PaymentHistory
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{
		lots:         map[int]*db.ParkingLot{},
		reservations: map[string]*db.Reservation{},
		payments:     map[string]*db.Payment{},
	}
}

func (m *memPaymentStore) InTx(_ context.Context, fn func(tx repository.PaymentTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memPaymentTx{s: m})
}

func (m *memPaymentStore) GetPayment(_ context.Context, id string) (*db.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentStore) ListPendingByUser(_ context.Context, userID int) ([]db.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Payment
	for _, p := range m.payments {
		if p.UserID == userID && p.Status == db.PaymentPending {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPaymentStore) ListPendingWalletIDs(_ context.Context, olderThan time.Duration) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var out []string
	for _, p := range m.payments {
		if p.Status != db.PaymentPending {
			continue
		}
		if p.Method != db.MethodYape && p.Method != db.MethodPlin {
			continue
		}
		if p.CreatedAt.Before(cutoff) {
			out = append(out, p.ID)
		}
	}
	return out, nil
}

func (m *memPaymentStore) Stats(_ context.Context) (*entities.PaymentStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &entities.PaymentStats{}
	for _, p := range m.payments {
		if p.Status != db.PaymentPaid {
			continue
		}
		stats.TotalPaid++
		stats.AmountTotal += p.Amount
		stats.CommissionTotal += p.Commission
		stats.PayoutTotal += p.OwnerPayout
	}
	return stats, nil
}

type memPaymentTx struct {
	s *memPaymentStore
}

func (t *memPaymentTx) GetReservationForUpdateByID(id string) (*db.Reservation, error) {
	res, ok := t.s.reservations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *res
	return &cp, nil
}

func (t *memPaymentTx) UpdateReservationStatus(id, status string) error {
	res, ok := t.s.reservations[id]
	if !ok {
		return sql.ErrNoRows
	}
	res.Status = status
	return nil
}

func (t *memPaymentTx) GetLot(id int) (*db.ParkingLot, error) {
	lot, ok := t.s.lots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *lot
	return &cp, nil
}

func (t *memPaymentTx) InsertPayment(p *db.Payment) error {
	for _, existing := range t.s.payments {
		if existing.ReservationID == p.ReservationID {
			return errUniqueViolation
		}
	}
	cp := *p
	t.s.payments[p.ID] = &cp
	return nil
}

func (t *memPaymentTx) GetPaymentForUpdate(id string) (*db.Payment, error) {
	p, ok := t.s.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (t *memPaymentTx) UpdatePayment(p *db.Payment) error {
	cp := *p
	t.s.payments[p.ID] = &cp
	return nil
}

func (t *memPaymentTx) AppendHistory(h *db.PaymentHistory) error {
	t.s.history = append(t.s.history, *h)
	return nil
}

// errUniqueViolation mimics postgres rejecting a duplicate reservation_id.
var errUniqueViolation = &pq.Error{Code: "23505"}

// fakeGateway either succeeds or returns failWith.
type fakeGateway struct {
	failWith error
	calls    int
}

func (g *fakeGateway) Charge(_ context.Context, p *db.Payment, _ string) (*GatewayResult, error) {
	g.calls++
	if g.failWith != nil {
		return nil, g.failWith
	}
	return &GatewayResult{ProviderRef: "ref-" + p.ID}, nil
}

func newTestPaymentService(t *testing.T) (*PaymentService, *memPaymentStore, *fakeGateway) {
	t.Helper()
	store := newMemPaymentStore()
	cost, _ := money.Parse("50.00")
	store.lots[1] = &db.ParkingLot{ID: 1, OwnerID: 9, TotalSpaces: 5, AvailableSpaces: 4, Approved: true, Active: true}
	store.reservations["res-1"] = &db.Reservation{
		ID: "res-1", Code: "ABCD1234", UserID: 7, LotID: 1,
		Kind: db.KindHourly, Cost: cost, Status: db.ReservationActive,
	}

	gw := &fakeGateway{}
	svc := NewPaymentService(store, map[string]Gateway{
		db.MethodCard: gw,
		db.MethodYape: gw,
		db.MethodPlin: gw,
	})
	svc.now = testClock(baseTime)
	return svc, store, gw
}

func TestCreatePaymentTokenRules(t *testing.T) {
	svc, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: db.MethodCard})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "card without token")

	_, err = svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: db.MethodYape, Token: "tok"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "wallet with token")

	_, err = svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: "crypto"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "unknown method")
}

func TestCreateCardPaymentChargesImmediately(t *testing.T) {
	svc, store, gw := newTestPaymentService(t)

	resp, err := svc.Create(context.Background(), entities.CreatePaymentInput{
		UserID: 7, ReservationID: "res-1", Method: db.MethodCard, Token: "tok_visa",
	})
	require.NoError(t, err)

	assert.Equal(t, db.PaymentPaid, resp.Status)
	assert.Equal(t, "50.00", resp.Amount.String())
	assert.Equal(t, "15.00", resp.Commission.String())
	assert.Equal(t, "35.00", resp.OwnerPayout.String())
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, db.ReservationConfirmed, store.reservations["res-1"].Status)
	assert.NotNil(t, resp.PaidAt)
}

func TestCreateWalletPaymentStaysPending(t *testing.T) {
	svc, store, gw := newTestPaymentService(t)

	resp, err := svc.Create(context.Background(), entities.CreatePaymentInput{
		UserID: 7, ReservationID: "res-1", Method: db.MethodYape,
	})
	require.NoError(t, err)

	assert.Equal(t, db.PaymentPending, resp.Status)
	assert.Contains(t, resp.WalletQR, "yape://payment?")
	assert.Contains(t, resp.WalletQR, "amount=50.00")
	assert.Contains(t, resp.WalletQR, "note=ReservaABCD1234")
	assert.Equal(t, 0, gw.calls)
	assert.Equal(t, db.ReservationConfirmed, store.reservations["res-1"].Status)
}

func TestCreatePaymentRequiresActiveReservation(t *testing.T) {
	svc, store, _ := newTestPaymentService(t)
	ctx := context.Background()

	store.reservations["res-1"].Status = db.ReservationCancelled
	_, err := svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: db.MethodCash})
	assert.True(t, apperr.IsKind(err, apperr.KindState))

	store.reservations["res-1"].Status = db.ReservationActive
	store.reservations["res-1"].Cost = 0
	_, err = svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: db.MethodCash})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Create(ctx, entities.CreatePaymentInput{UserID: 8, ReservationID: "res-1", Method: db.MethodCash})
	assert.True(t, apperr.IsKind(err, apperr.KindPermission))

	_, err = svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "missing", Method: db.MethodCash})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCreatePaymentOnePerReservation(t *testing.T) {
	svc, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: db.MethodCash})
	require.NoError(t, err)

	_, err = svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: db.MethodCash})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestProcessGatewayFailurePersists(t *testing.T) {
	svc, store, gw := newTestPaymentService(t)
	ctx := context.Background()
	actor := auth.Actor{UserID: 7}

	gw.failWith = errors.New("card declined")
	_, err := svc.Create(ctx, entities.CreatePaymentInput{
		UserID: 7, ReservationID: "res-1", Method: db.MethodCard, Token: "tok_bad",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindGateway))

	var paymentID string
	for id, p := range store.payments {
		paymentID = id
		assert.Equal(t, db.PaymentFailed, p.Status)
		assert.Equal(t, 1, p.Attempts)
		assert.Equal(t, "card declined", p.LastError.String)
	}
	require.NotEmpty(t, paymentID)

	// A failed payment is retryable; a successful retry pays it.
	gw.failWith = nil
	resp, err := svc.Process(ctx, actor, paymentID, "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, db.PaymentPaid, resp.Status)
	assert.Equal(t, 1, resp.Attempts)

	// Paid payments cannot be processed again.
	_, err = svc.Process(ctx, actor, paymentID, "tok_visa")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestProcessCashRejected(t *testing.T) {
	svc, store, _ := newTestPaymentService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: db.MethodCash})
	require.NoError(t, err)

	_, err = svc.Process(ctx, auth.Actor{UserID: 7}, resp.ID, "")
	assert.True(t, apperr.IsKind(err, apperr.KindState))
	assert.Equal(t, db.PaymentPending, store.payments[resp.ID].Status)
}

func TestConfirmCash(t *testing.T) {
	svc, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: db.MethodCash})
	require.NoError(t, err)

	// The client cannot confirm their own cash payment.
	_, err = svc.ConfirmCash(ctx, auth.Actor{UserID: 7}, resp.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindPermission))

	// The lot owner can.
	confirmed, err := svc.ConfirmCash(ctx, auth.Actor{UserID: 9, Role: auth.RoleOwner}, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentPaid, confirmed.Status)
	assert.Equal(t, "15.00", confirmed.Commission.String())

	_, err = svc.ConfirmCash(ctx, auth.Actor{UserID: 9, Role: auth.RoleOwner}, resp.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestRefund(t *testing.T) {
	svc, _, _ := newTestPaymentService(t)
	ctx := context.Background()
	actor := auth.Actor{UserID: 7}

	resp, err := svc.Create(ctx, entities.CreatePaymentInput{
		UserID: 7, ReservationID: "res-1", Method: db.MethodCard, Token: "tok_visa",
	})
	require.NoError(t, err)

	partial, _ := money.Parse("20.00")
	refunded, err := svc.Refund(ctx, actor, entities.RefundInput{
		UserID: 7, PaymentID: resp.ID, Amount: &partial, Reason: "left early",
	})
	require.NoError(t, err)
	assert.Equal(t, db.PaymentRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundedAmount)
	assert.Equal(t, "20.00", refunded.RefundedAmount.String())
	assert.NotNil(t, refunded.RefundedAt)

	// Refunded is terminal.
	_, err = svc.Refund(ctx, actor, entities.RefundInput{UserID: 7, PaymentID: resp.ID})
	assert.True(t, apperr.IsKind(err, apperr.KindState))
	_, err = svc.Process(ctx, actor, resp.ID, "tok_visa")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestRefundValidation(t *testing.T) {
	svc, _, _ := newTestPaymentService(t)
	ctx := context.Background()
	actor := auth.Actor{UserID: 7}

	resp, err := svc.Create(ctx, entities.CreatePaymentInput{
		UserID: 7, ReservationID: "res-1", Method: db.MethodCard, Token: "tok_visa",
	})
	require.NoError(t, err)

	tooMuch, _ := money.Parse("60.00")
	_, err = svc.Refund(ctx, actor, entities.RefundInput{UserID: 7, PaymentID: resp.ID, Amount: &tooMuch})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// An explicit zero is a client mistake, not a full refund.
	zero := money.Amount(0)
	_, err = svc.Refund(ctx, actor, entities.RefundInput{UserID: 7, PaymentID: resp.ID, Amount: &zero})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// Omitting the amount refunds the whole payment.
	refunded, err := svc.Refund(ctx, actor, entities.RefundInput{UserID: 7, PaymentID: resp.ID})
	require.NoError(t, err)
	assert.Equal(t, "50.00", refunded.RefundedAmount.String())
}

func TestRefundRequiresPaid(t *testing.T) {
	svc, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, entities.CreatePaymentInput{UserID: 7, ReservationID: "res-1", Method: db.MethodCash})
	require.NoError(t, err)

	_, err = svc.Refund(ctx, auth.Actor{UserID: 7}, entities.RefundInput{UserID: 7, PaymentID: resp.ID})
	assert.True(t, apperr.IsKind(err, apperr.KindState))
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, entities.CreatePaymentInput{
		UserID: 7, ReservationID: "res-1", Method: db.MethodCard, Token: "tok_visa",
	})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPaid)
	assert.Equal(t, "50.00", stats.AmountTotal.String())
	assert.Equal(t, "15.00", stats.CommissionTotal.String())
	assert.Equal(t, "35.00", stats.PayoutTotal.String())
}

func TestPaymentHistoryTrail(t *testing.T) {
	svc, store, _ := newTestPaymentService(t)

	_, err := svc.Create(context.Background(), entities.CreatePaymentInput{
		UserID: 7, ReservationID: "res-1", Method: db.MethodCard, Token: "tok_visa",
	})
	require.NoError(t, err)

	// pending open, dispatch to processing, then paid.
	require.Len(t, store.history, 3)
	assert.Equal(t, db.PaymentPending, store.history[0].ToStatus)
	assert.Equal(t, db.PaymentProcessing, store.history[1].ToStatus)
	assert.Equal(t, db.PaymentPaid, store.history[2].ToStatus)
}
