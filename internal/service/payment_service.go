package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aparca/internal/apperr"
	"aparca/internal/auth"
	"aparca/internal/db"
	"aparca/internal/entities"
	"aparca/internal/repository"

	"github.com/google/uuid"
)

// CommissionRate is the platform's percentage cut of every paid amount; the
// remainder is the owner payout.
const CommissionRate = 30

const paymentCurrency = "PEN"

type PaymentService struct {
	Store    repository.PaymentStore
	Gateways map[string]Gateway

	now func() time.Time
}

func NewPaymentService(store repository.PaymentStore, gateways map[string]Gateway) *PaymentService {
	return &PaymentService{Store: store, Gateways: gateways, now: func() time.Time { return time.Now().UTC() }}
}

// Create opens a payment for a reservation. The reservation must be active
// with a positive cost and have no payment yet; creating the payment marks
// it confirmed. Card payments require a gateway token, wallet payments
// must not carry one, cash needs neither.
func (s *PaymentService) Create(ctx context.Context, in entities.CreatePaymentInput) (*entities.PaymentResponse, error) {
	switch in.Method {
	case db.MethodCard:
		if in.Token == "" {
			return nil, apperr.Validation("card payments require a payment token")
		}
	case db.MethodYape, db.MethodPlin:
		if in.Token != "" {
			return nil, apperr.Validation("wallet payments do not take a token")
		}
	case db.MethodCash:
	default:
		return nil, apperr.Validation("unsupported payment method %q", in.Method)
	}

	payment := &db.Payment{
		ID:        uuid.NewString(),
		Reference: uuid.NewString(),
		UserID:    in.UserID,
		Currency:  paymentCurrency,
		Method:    in.Method,
		Status:    db.PaymentPending,
		CreatedAt: s.now(),
	}
	var resCode string

	err := s.Store.InTx(ctx, func(tx repository.PaymentTx) error {
		res, err := tx.GetReservationForUpdateByID(in.ReservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("reservation %s not found", in.ReservationID)
			}
			return err
		}
		if res.UserID != in.UserID {
			return apperr.Permission("reservation does not belong to you")
		}
		if res.Status != db.ReservationActive {
			return apperr.State("only active reservations can be paid")
		}
		if res.Cost <= 0 {
			return apperr.Validation("reservation has no payable cost")
		}

		payment.ReservationID = res.ID
		payment.Amount = res.Cost
		resCode = res.Code
		if err := tx.InsertPayment(payment); err != nil {
			if repository.IsUniqueViolation(err) {
				return apperr.Conflict("reservation already has a payment")
			}
			return err
		}
		if err := tx.UpdateReservationStatus(res.ID, db.ReservationConfirmed); err != nil {
			return err
		}
		return tx.AppendHistory(&db.PaymentHistory{
			PaymentID: payment.ID,
			ToStatus:  db.PaymentPending,
			Message:   fmt.Sprintf("payment opened for reservation %s via %s", res.Code, in.Method),
		})
	})
	if err != nil {
		return nil, err
	}

	// Card payments are charged immediately; wallets wait for the client to
	// transfer and are confirmed by Process, cash by the lot owner.
	if in.Method == db.MethodCard {
		return s.Process(ctx, auth.Actor{UserID: in.UserID}, payment.ID, in.Token)
	}
	return s.paymentResponse(payment, resCode), nil
}

// Process drives a pending or failed payment through its gateway. A gateway
// failure persists the failed state and attempt count, then surfaces as a
// retryable error. Cash payments stay pending until ConfirmCash.
func (s *PaymentService) Process(ctx context.Context, actor auth.Actor, paymentID, token string) (*entities.PaymentResponse, error) {
	var payment *db.Payment
	var gatewayErr error

	err := s.Store.InTx(ctx, func(tx repository.PaymentTx) error {
		var err error
		payment, err = s.lockPayment(tx, actor, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != db.PaymentPending && payment.Status != db.PaymentFailed {
			return apperr.Conflict("payment was already processed")
		}
		if payment.Method == db.MethodCash {
			return apperr.State("cash payments are confirmed by the lot owner")
		}

		prev := payment.Status
		payment.Status = db.PaymentProcessing
		if err := tx.UpdatePayment(payment); err != nil {
			return err
		}
		if err := tx.AppendHistory(&db.PaymentHistory{
			PaymentID:  payment.ID,
			FromStatus: prev,
			ToStatus:   db.PaymentProcessing,
			Message:    "dispatched to gateway",
		}); err != nil {
			return err
		}

		gw, ok := s.Gateways[payment.Method]
		if !ok {
			return apperr.State("no gateway configured for method %q", payment.Method)
		}
		result, chargeErr := gw.Charge(ctx, payment, token)
		if chargeErr != nil {
			// The failed state must persist, so the transaction commits and
			// the gateway error is surfaced afterwards.
			payment.Status = db.PaymentFailed
			payment.Attempts++
			payment.LastError = sql.NullString{String: chargeErr.Error(), Valid: true}
			gatewayErr = chargeErr
			if err := tx.UpdatePayment(payment); err != nil {
				return err
			}
			return tx.AppendHistory(&db.PaymentHistory{
				PaymentID:  payment.ID,
				FromStatus: db.PaymentProcessing,
				ToStatus:   db.PaymentFailed,
				Message:    chargeErr.Error(),
			})
		}

		s.markPaid(payment)
		if err := tx.UpdatePayment(payment); err != nil {
			return err
		}
		return tx.AppendHistory(&db.PaymentHistory{
			PaymentID:  payment.ID,
			FromStatus: db.PaymentProcessing,
			ToStatus:   db.PaymentPaid,
			Message:    fmt.Sprintf("charged via %s (%s)", payment.Method, result.ProviderRef),
		})
	})
	if err != nil {
		return nil, err
	}
	if gatewayErr != nil {
		return nil, apperr.Gateway(gatewayErr, "payment processing failed")
	}
	return s.paymentResponse(payment, ""), nil
}

// ConfirmCash settles a cash payment. Only the lot owner or an admin may
// confirm; the commission split is the same as for gateway methods.
func (s *PaymentService) ConfirmCash(ctx context.Context, actor auth.Actor, paymentID string) (*entities.PaymentResponse, error) {
	var payment *db.Payment
	err := s.Store.InTx(ctx, func(tx repository.PaymentTx) error {
		var err error
		payment, err = tx.GetPaymentForUpdate(paymentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("payment %s not found", paymentID)
			}
			return err
		}
		res, err := tx.GetReservationForUpdateByID(payment.ReservationID)
		if err != nil {
			return err
		}
		lot, err := tx.GetLot(res.LotID)
		if err != nil {
			return err
		}
		if !actor.CanSettleForLot(lot) {
			return apperr.Permission("only the lot owner can confirm cash payments")
		}
		if payment.Method != db.MethodCash {
			return apperr.State("payment method is not cash")
		}
		if payment.Status != db.PaymentPending {
			return apperr.Conflict("payment was already processed")
		}

		s.markPaid(payment)
		if err := tx.UpdatePayment(payment); err != nil {
			return err
		}
		return tx.AppendHistory(&db.PaymentHistory{
			PaymentID:  payment.ID,
			FromStatus: db.PaymentPending,
			ToStatus:   db.PaymentPaid,
			Message:    "cash confirmed by lot owner",
		})
	})
	if err != nil {
		return nil, err
	}
	return s.paymentResponse(payment, ""), nil
}

// Refund moves a paid payment to refunded. A partial amount may be given;
// zero means a full refund.
func (s *PaymentService) Refund(ctx context.Context, actor auth.Actor, in entities.RefundInput) (*entities.PaymentResponse, error) {
	var payment *db.Payment
	err := s.Store.InTx(ctx, func(tx repository.PaymentTx) error {
		var err error
		payment, err = s.lockPayment(tx, actor, in.PaymentID)
		if err != nil {
			return err
		}
		if payment.Status != db.PaymentPaid {
			return apperr.State("payment cannot be refunded")
		}

		amount := payment.Amount
		if in.Amount != nil {
			amount = *in.Amount
			if amount <= 0 || amount > payment.Amount {
				return apperr.Validation("refund amount must be between 0.01 and %s", payment.Amount)
			}
		}

		payment.Status = db.PaymentRefunded
		payment.RefundedAmount = amount
		payment.RefundedAt = sql.NullTime{Time: s.now(), Valid: true}
		if err := tx.UpdatePayment(payment); err != nil {
			return err
		}
		msg := fmt.Sprintf("refunded %s of %s", amount, payment.Amount)
		if in.Reason != "" {
			msg += ": " + in.Reason
		}
		return tx.AppendHistory(&db.PaymentHistory{
			PaymentID:  payment.ID,
			FromStatus: db.PaymentPaid,
			ToStatus:   db.PaymentRefunded,
			Message:    msg,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.paymentResponse(payment, ""), nil
}

func (s *PaymentService) Get(ctx context.Context, actor auth.Actor, id string) (*entities.PaymentResponse, error) {
	payment, err := s.Store.GetPayment(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("payment %s not found", id)
		}
		return nil, err
	}
	if !actor.CanManagePayment(payment) {
		return nil, apperr.Permission("payment does not belong to you")
	}
	return s.paymentResponse(payment, ""), nil
}

func (s *PaymentService) ListPending(ctx context.Context, userID int) ([]entities.PaymentResponse, error) {
	rows, err := s.Store.ListPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]entities.PaymentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *s.paymentResponse(&rows[i], ""))
	}
	return out, nil
}

func (s *PaymentService) Stats(ctx context.Context) (*entities.PaymentStats, error) {
	return s.Store.Stats(ctx)
}

func (s *PaymentService) markPaid(p *db.Payment) {
	p.Status = db.PaymentPaid
	p.PaidAt = sql.NullTime{Time: s.now(), Valid: true}
	p.Commission = p.Amount.Percent(CommissionRate)
	p.OwnerPayout = p.Amount - p.Commission
}

func (s *PaymentService) lockPayment(tx repository.PaymentTx, actor auth.Actor, id string) (*db.Payment, error) {
	payment, err := tx.GetPaymentForUpdate(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("payment %s not found", id)
		}
		return nil, err
	}
	if !actor.CanManagePayment(payment) {
		return nil, apperr.Permission("payment does not belong to you")
	}
	return payment, nil
}

func (s *PaymentService) paymentResponse(p *db.Payment, reservationCode string) *entities.PaymentResponse {
	resp := &entities.PaymentResponse{
		ID:            p.ID,
		Reference:     p.Reference,
		ReservationID: p.ReservationID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Method:        p.Method,
		Status:        p.Status,
		Commission:    p.Commission,
		OwnerPayout:   p.OwnerPayout,
		Attempts:      p.Attempts,
		CreatedAt:     p.CreatedAt,
	}
	if p.LastError.Valid {
		resp.LastError = p.LastError.String
	}
	if p.PaidAt.Valid {
		t := p.PaidAt.Time
		resp.PaidAt = &t
	}
	if p.RefundedAt.Valid {
		t := p.RefundedAt.Time
		resp.RefundedAt = &t
		amount := p.RefundedAmount
		resp.RefundedAmount = &amount
	}
	if p.Status == db.PaymentPending {
		resp.WalletQR = walletQR(p, reservationCode)
	}
	return resp
}

// walletQR builds the deep link a client scans to transfer the amount.
func walletQR(p *db.Payment, reservationCode string) string {
	note := "Reserva"
	if reservationCode != "" {
		note += reservationCode
	}
	switch p.Method {
	case db.MethodYape:
		return fmt.Sprintf("yape://payment?phone=999888777&amount=%s&note=%s", p.Amount, note)
	case db.MethodPlin:
		return fmt.Sprintf("plin://payment?phone=999777666&amount=%s&note=%s", p.Amount, note)
	default:
		return ""
	}
}
