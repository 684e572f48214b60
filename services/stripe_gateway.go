package services

import (
	"context"
	"math"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"

	"github.com/bchikara/la-carte-backend/models"
)

// StripeGateway is the redirect-style backend: the provider reports the
// outcome in-band rather than through a callback, so AwaitOutcome is a plain
// lookup of the intent's terminal status.
type StripeGateway struct {
	secretKey string
}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{secretKey: secretKey}
}

func (g *StripeGateway) InitiateSession(ctx context.Context, req SessionRequest) (models.PaymentSession, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(req.Amount)),
		Currency: stripe.String(req.Currency),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return models.PaymentSession{}, &InitiationError{Err: err}
	}
	return models.PaymentSession{Token: pi.ID}, nil
}

func (g *StripeGateway) AwaitOutcome(ctx context.Context, session models.PaymentSession) (models.PaymentOutcome, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(session.Token, params)
	if err != nil {
		return models.PaymentOutcome{}, &GatewayError{
			Status:  models.OutcomeFailed,
			Message: err.Error(),
		}
	}

	return models.PaymentOutcome{
		Status:            mapIntentStatus(pi.Status),
		ProviderPaymentID: pi.ID,
	}, nil
}

func mapIntentStatus(status stripe.PaymentIntentStatus) string {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.OutcomeCaptured
	case stripe.PaymentIntentStatusProcessing,
		stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresCapture:
		// The intent is alive but not settled: the buyer is still in the
		// redirect flow or the capture has not run. Persist as pending and
		// let the provider settle asynchronously.
		return models.OutcomePending
	case stripe.PaymentIntentStatusCanceled:
		return models.OutcomeCancelled
	default:
		return models.OutcomeFailed
	}
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
