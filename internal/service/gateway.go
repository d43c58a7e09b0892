package service

import (
	"context"
	"fmt"
	"log"

	"aparca/internal/db"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/paymentintent"
)

// GatewayResult carries the provider-side identifier of a successful charge.
type GatewayResult struct {
	ProviderRef string
}

// Gateway charges a payment against an external provider.
type Gateway interface {
	Charge(ctx context.Context, p *db.Payment, token string) (*GatewayResult, error)
}

// CardGateway charges cards through Stripe payment intents.
type CardGateway struct{}

func (CardGateway) Charge(ctx context.Context, p *db.Payment, token string) (*GatewayResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(p.Amount.Cents()),
		Currency:      stripe.String(p.Currency),
		PaymentMethod: stripe.String(token),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(fmt.Sprintf("Parking reservation payment %s", p.Reference)),
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe charge: %w", err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("stripe charge: intent %s in status %s", intent.ID, intent.Status)
	}
	return &GatewayResult{ProviderRef: intent.ID}, nil
}

// WalletGateway confirms yape/plin transfers. There is no provider API for
// either wallet yet, so confirmation is assumed once the polling job retries
// the payment.
// TODO: replace with the Yape business API once our merchant account is approved.
type WalletGateway struct {
	Provider string
}

func (g WalletGateway) Charge(_ context.Context, p *db.Payment, _ string) (*GatewayResult, error) {
	log.Printf("wallet gateway %s: confirming transfer of %s for payment %s", g.Provider, p.Amount, p.ID)
	return &GatewayResult{ProviderRef: fmt.Sprintf("%s-%s", g.Provider, p.Reference)}, nil
}
