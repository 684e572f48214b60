package services

import (
	"testing"

	"github.com/stripe/stripe-go/v80"
	"github.com/stretchr/testify/assert"

	"github.com/bchikara/la-carte-backend/models"
)

func TestMapIntentStatus(t *testing.T) {
	cases := []struct {
		status stripe.PaymentIntentStatus
		want   string
	}{
		{stripe.PaymentIntentStatusSucceeded, models.OutcomeCaptured},
		{stripe.PaymentIntentStatusProcessing, models.OutcomePending},
		// A freshly created, unconfirmed intent must not read as failed:
		// the buyer is still inside the redirect flow.
		{stripe.PaymentIntentStatusRequiresPaymentMethod, models.OutcomePending},
		{stripe.PaymentIntentStatusRequiresConfirmation, models.OutcomePending},
		{stripe.PaymentIntentStatusRequiresAction, models.OutcomePending},
		{stripe.PaymentIntentStatusRequiresCapture, models.OutcomePending},
		{stripe.PaymentIntentStatusCanceled, models.OutcomeCancelled},
		{stripe.PaymentIntentStatus("unknown"), models.OutcomeFailed},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, mapIntentStatus(tc.status), "status %s", tc.status)
	}
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2625), toMinorUnits(26.25))
	assert.Equal(t, int64(1000), toMinorUnits(10))
	// Guard against float drift on amounts like 19.99*100 = 1998.9999...
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
}
