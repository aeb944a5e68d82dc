// README: Card pre-authorization through Stripe PaymentIntents (manual capture).
package payments

import (
	"context"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

// Hold is a pending authorization that can later be captured or released.
type Hold struct {
	PaymentIntentID string
	Status          string
}

type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Capture(id string, params *stripe.PaymentIntentCaptureParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type StripeClient struct {
	intents intentAPI
}

func NewStripeClient(apiKey string) *StripeClient {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeClient{intents: sc.PaymentIntents}
}

// Authorize holds amount on the passenger's card for the ride.
func (s *StripeClient) Authorize(ctx context.Context, rideID types.ID, amount types.Money) (Hold, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount.Amount),
		Currency: stripe.String(strings.ToLower(amount.Currency)),
	}
	params.Context = ctx
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.AddMetadata("ride_id", string(rideID))
	params.SetIdempotencyKey("ride-hold-" + string(rideID))

	pi, err := s.intents.New(params)
	if err != nil {
		return Hold{}, err
	}
	return Hold{PaymentIntentID: pi.ID, Status: string(pi.Status)}, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeClient) Capture(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	_, err := s.intents.Capture(paymentIntentID, params)
	return err
}

// Release cancels the hold on a PaymentIntent.
func (s *StripeClient) Release(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := s.intents.Cancel(paymentIntentID, params)
	return err
}
