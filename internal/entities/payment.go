package entities

import (
	"time"

	"aparca/internal/money"
)

type CreatePaymentInput struct {
	UserID        int
	ReservationID string
	Method        string
	Token         string
}

type PaymentResponse struct {
	ID             string        `json:"id"`
	Reference      string        `json:"reference"`
	ReservationID  string        `json:"reservation_id"`
	Amount         money.Amount  `json:"amount"`
	Currency       string        `json:"currency"`
	Method         string        `json:"method"`
	Status         string        `json:"status"`
	Commission     money.Amount  `json:"commission"`
	OwnerPayout    money.Amount  `json:"owner_payout"`
	RefundedAmount *money.Amount `json:"refunded_amount,omitempty"`
	Attempts       int           `json:"attempts"`
	LastError      string        `json:"last_error,omitempty"`
	WalletQR       string        `json:"wallet_qr,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	RefundedAt     *time.Time    `json:"refunded_at,omitempty"`
}

type RefundInput struct {
	UserID    int
	PaymentID string
	// Amount is optional; nil means a full refund. An explicit zero is
	// rejected so a client typo cannot turn into a full refund.
	Amount *money.Amount
	Reason string
}

type PaymentStats struct {
	TotalPaid       int          `json:"total_paid"`
	AmountTotal     money.Amount `json:"amount_total"`
	CommissionTotal money.Amount `json:"commission_total"`
	PayoutTotal     money.Amount `json:"payout_total"`
}
