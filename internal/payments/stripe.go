package payments

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/refund"
)

type Refund struct {
	ID          string
	AmountCents int64
	Status      string
}

type StripeClient struct{}

func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// Refund issues a full refund for the payment intent. Stripe keys refunds
// by intent, so a retried call for an already-refunded intent is safe.
func (c *StripeClient) Refund(ctx context.Context, paymentIntentRef string) (*Refund, error) {
	r, err := refund.New(&stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(paymentIntentRef),
	})
	if err != nil {
		return nil, err
	}
	return &Refund{ID: r.ID, AmountCents: r.Amount, Status: string(r.Status)}, nil
}
