package models

// PaymentSession is the opaque, single-use token returned by the payment
// initiation endpoint. It lives only for the duration of one checkout attempt.
type PaymentSession struct {
	Token string `json:"token"`
}

// Outcome statuses as reported by the gateway. Anything outside captured and
// pending never reaches order persistence.
const (
	OutcomeCaptured  = "captured"
	OutcomePending   = "pending"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// PaymentOutcome is the terminal classification of one payment attempt.
type PaymentOutcome struct {
	Status            string `json:"status"`
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
	Message           string `json:"message,omitempty"`
}

// Persistable reports whether this outcome qualifies for order persistence.
func (o PaymentOutcome) Persistable() bool {
	return o.Status == OutcomeCaptured || o.Status == OutcomePending
}
