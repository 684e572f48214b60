package services

import (
	"errors"
	"fmt"
)

var (
	// ErrCheckoutInFlight rejects a second checkout while one is processing.
	ErrCheckoutInFlight = errors.New("a checkout is already in progress")
	// ErrEmptyCart rejects a checkout over an empty ledger.
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")
	// ErrMissingRestaurant rejects an order without a destination restaurant.
	ErrMissingRestaurant = errors.New("restaurant id is required")
	// ErrMissingBuyer rejects an order without an authenticated buyer.
	ErrMissingBuyer = errors.New("buyer identity is required")
)

// InitiationError: the session token request failed. Fatal to the attempt,
// no money moved, safe to retry from idle.
type InitiationError struct {
	Err error
}

func (e *InitiationError) Error() string {
	return fmt.Sprintf("payment initiation failed: %v", e.Err)
}

func (e *InitiationError) Unwrap() error { return e.Err }

// GatewayError: the gateway reported failure or cancellation. Payment not
// captured, safe to retry from idle.
type GatewayError struct {
	Status  string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment %s", e.Status)
	}
	return fmt.Sprintf("payment %s: %s", e.Status, e.Message)
}

// PreconditionError: rejected before any network activity. Always safe to
// retry after correcting the precondition.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string { return e.Err.Error() }

func (e *PreconditionError) Unwrap() error { return e.Err }

// PersistenceError: a write after a captured or pending outcome failed.
// Money may have moved without a fully recorded order, so this is surfaced
// distinctly and never swallowed. OrderID is set when the buyer projection
// committed before the failure.
type PersistenceError struct {
	OrderID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("order persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
