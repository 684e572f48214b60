package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/models"
	"github.com/bchikara/la-carte-backend/repository"
)

// CheckoutPhase is the orchestrator's position in one checkout attempt.
type CheckoutPhase string

const (
	PhaseIdle            CheckoutPhase = "idle"
	PhaseInitiating      CheckoutPhase = "initiating"
	PhaseAwaitingGateway CheckoutPhase = "awaiting_gateway_callback"
	PhasePersisting      CheckoutPhase = "persisting"
	PhaseSucceeded       CheckoutPhase = "succeeded"
	PhaseFailed          CheckoutPhase = "failed"
)

func (p CheckoutPhase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// CheckoutSession is the state one buyer's UI polls during an attempt.
type CheckoutSession struct {
	Phase            CheckoutPhase          `json:"phase"`
	PaymentError     string                 `json:"payment_error,omitempty"`
	Outcome          *models.PaymentOutcome `json:"outcome,omitempty"`
	NavigationTarget string                 `json:"navigation_target,omitempty"`
	OrderID          string                 `json:"order_id,omitempty"`
}

// IsProcessing reports whether an attempt is in flight for this session.
func (s CheckoutSession) IsProcessing() bool {
	return s.Phase != PhaseIdle && !s.Phase.IsTerminal()
}

// attemptState tracks one buyer's current attempt. gen fences late updates:
// a gateway callback or goroutine landing after ClearStatus carries a stale
// generation and is discarded.
type attemptState struct {
	gen     uint64
	session CheckoutSession
	cancel  context.CancelFunc
}

// CheckoutOrchestrator drives Idle -> Initiating -> AwaitingGatewayCallback ->
// Persisting -> Succeeded | Failed, one attempt per buyer at a time.
type CheckoutOrchestrator struct {
	mu       sync.Mutex
	attempts map[string]*attemptState

	carts    *CartService
	orders   *OrderService
	gateways map[string]PaymentGateway
	guard    repository.CheckoutGuard
	currency string
}

const (
	GatewayWidget = "widget"
	GatewayStripe = "stripe"
)

func NewCheckoutOrchestrator(
	carts *CartService,
	orders *OrderService,
	gateways map[string]PaymentGateway,
	guard repository.CheckoutGuard,
	currency string,
) *CheckoutOrchestrator {
	return &CheckoutOrchestrator{
		attempts: make(map[string]*attemptState),
		carts:    carts,
		orders:   orders,
		gateways: gateways,
		guard:    guard,
		currency: currency,
	}
}

// Start begins a checkout attempt for the buyer. Everything the attempt needs
// (snapshot, destination) is captured here; the gateway callback re-enters
// with no ambient state.
func (o *CheckoutOrchestrator) Start(ctx context.Context, buyerID string, dest models.DestinationContext, gatewayName string) error {
	gateway, ok := o.gateways[gatewayName]
	if !ok {
		gateway = o.gateways[GatewayWidget]
	}
	if gateway == nil {
		return &PreconditionError{Err: errors.New("no payment gateway configured")}
	}
	if dest.RestaurantID == "" {
		return &PreconditionError{Err: ErrMissingRestaurant}
	}
	if buyerID == "" {
		return &PreconditionError{Err: ErrMissingBuyer}
	}

	ledger := o.carts.Ledger(ctx, buyerID)
	if ledger.IsEmpty() {
		return &PreconditionError{Err: ErrEmptyCart}
	}

	o.mu.Lock()
	state := o.attempts[buyerID]
	if state != nil && state.session.IsProcessing() {
		o.mu.Unlock()
		return &PreconditionError{Err: ErrCheckoutInFlight}
	}

	attemptCtx, cancel := context.WithCancel(context.Background())
	state = &attemptState{
		gen:     nextGen(state),
		session: CheckoutSession{Phase: PhaseInitiating},
		cancel:  cancel,
	}
	o.attempts[buyerID] = state
	gen := state.gen
	o.mu.Unlock()

	// Cross-instance duplicate guard on top of the in-memory one.
	acquired, err := o.guard.AcquireCheckout(ctx, buyerID)
	if err == nil && !acquired {
		o.setPhase(buyerID, gen, func(s *CheckoutSession) {
			s.Phase = PhaseFailed
			s.PaymentError = ErrCheckoutInFlight.Error()
		})
		cancel()
		return &PreconditionError{Err: ErrCheckoutInFlight}
	}
	if err != nil {
		logger.Log.Warn("Checkout guard unavailable, relying on in-memory guard",
			zap.String("buyer_id", buyerID), zap.Error(err))
	}

	snapshot := ledger.Snapshot()
	amount, err := o.quote(ctx, snapshot, dest.RestaurantID)
	if err != nil {
		o.finishFailed(buyerID, gen, err)
		cancel()
		return err
	}

	go o.run(attemptCtx, buyerID, gen, gateway, snapshot, amount, dest)
	return nil
}

// quote re-derives the charge amount from the snapshot, including the GST
// surcharge when the restaurant is tax-registered.
func (o *CheckoutOrchestrator) quote(ctx context.Context, snapshot map[string]models.LineItem, restaurantID string) (float64, error) {
	total := 0.0
	for _, item := range snapshot {
		total += item.UnitPrice * float64(item.Quantity)
	}

	restaurant, err := o.orders.repo.GetRestaurant(ctx, restaurantID)
	switch {
	case err == nil:
		if restaurant.TaxRegistered {
			total += total * gstSurchargeRate
		}
	case errors.Is(err, repository.ErrPathNotFound):
		// No restaurant record: charge the bare cart total.
	default:
		return 0, &InitiationError{Err: err}
	}
	return total, nil
}

// run carries the attempt from initiation to a terminal phase. It owns no
// stack state from Start beyond its explicit arguments.
func (o *CheckoutOrchestrator) run(
	ctx context.Context,
	buyerID string,
	gen uint64,
	gateway PaymentGateway,
	snapshot map[string]models.LineItem,
	amount float64,
	dest models.DestinationContext,
) {
	session, err := gateway.InitiateSession(ctx, SessionRequest{
		Amount:   amount,
		Currency: o.currency,
		Metadata: map[string]string{
			"buyer_id":      buyerID,
			"restaurant_id": dest.RestaurantID,
		},
	})
	if err != nil {
		o.finishFailed(buyerID, gen, err)
		return
	}

	o.setPhase(buyerID, gen, func(s *CheckoutSession) {
		s.Phase = PhaseAwaitingGateway
	})

	outcome, err := gateway.AwaitOutcome(ctx, session)
	if err != nil {
		if ctx.Err() != nil {
			// Attempt was cleared while waiting; nothing left to update.
			logger.Log.Info("Checkout attempt cancelled while awaiting gateway",
				zap.String("buyer_id", buyerID))
			o.releaseGuard(buyerID, gen)
			return
		}
		o.finishFailed(buyerID, gen, err)
		return
	}

	if ctx.Err() != nil {
		// Outcome raced the attempt being cleared; treat it as late.
		logger.Log.Info("Discarding outcome for cleared checkout attempt",
			zap.String("buyer_id", buyerID), zap.String("status", outcome.Status))
		o.releaseGuard(buyerID, gen)
		return
	}

	if !outcome.Persistable() {
		// Order persistence is never attempted and the cart stays intact.
		o.finishFailed(buyerID, gen, &GatewayError{
			Status:  outcome.Status,
			Message: outcome.Message,
		})
		return
	}

	o.setPhase(buyerID, gen, func(s *CheckoutSession) {
		s.Phase = PhasePersisting
		s.Outcome = &outcome
	})

	order, err := o.orders.PlaceOrder(ctx, buyerID, snapshot, outcome, dest)

	// The cart is cleared exactly when the buyer projection committed,
	// regardless of later projection failures.
	if order != nil {
		o.carts.Ledger(ctx, buyerID).Clear(ctx)
	}

	if err != nil {
		var persistErr *PersistenceError
		if errors.As(err, &persistErr) && persistErr.OrderID != "" {
			logger.Log.Error("Payment captured but order only partially projected",
				zap.String("buyer_id", buyerID),
				zap.String("order_id", persistErr.OrderID),
				zap.Error(err))
		}
		o.finishFailed(buyerID, gen, err)
		return
	}

	target := "/order-success/" + dest.RestaurantID
	if dest.TableID != "" {
		target += "/" + dest.TableID
	}

	o.setPhase(buyerID, gen, func(s *CheckoutSession) {
		s.Phase = PhaseSucceeded
		s.NavigationTarget = target
		s.OrderID = order.ID
	})
	o.releaseGuard(buyerID, gen)
}

// Status returns the buyer's current session state.
func (o *CheckoutOrchestrator) Status(buyerID string) CheckoutSession {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := o.attempts[buyerID]
	if state == nil {
		return CheckoutSession{Phase: PhaseIdle}
	}
	return state.session
}

// ClearStatus resets the buyer's session to idle from any state. It is
// idempotent, cancels an in-flight wait, and fences out late callbacks.
func (o *CheckoutOrchestrator) ClearStatus(ctx context.Context, buyerID string) {
	o.mu.Lock()
	state := o.attempts[buyerID]
	if state == nil {
		o.mu.Unlock()
		return
	}
	cancel := state.cancel
	newGen := state.gen + 1
	o.attempts[buyerID] = &attemptState{
		gen:     newGen,
		session: CheckoutSession{Phase: PhaseIdle},
	}
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.releaseGuard(buyerID, newGen)
}

// setPhase applies an update only when the attempt generation still matches.
func (o *CheckoutOrchestrator) setPhase(buyerID string, gen uint64, apply func(*CheckoutSession)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := o.attempts[buyerID]
	if state == nil || state.gen != gen {
		return false
	}
	apply(&state.session)
	return true
}

func (o *CheckoutOrchestrator) finishFailed(buyerID string, gen uint64, err error) {
	logger.Log.Warn("Checkout attempt failed",
		zap.String("buyer_id", buyerID), zap.Error(err))

	o.setPhase(buyerID, gen, func(s *CheckoutSession) {
		s.Phase = PhaseFailed
		s.PaymentError = err.Error()
	})
	o.releaseGuard(buyerID, gen)
}

// releaseGuard drops the cross-process in-flight key, but only while the
// attempt that acquired it is still current. A goroutine finishing after
// ClearStatus must not delete a newer attempt's key.
func (o *CheckoutOrchestrator) releaseGuard(buyerID string, gen uint64) {
	o.mu.Lock()
	state := o.attempts[buyerID]
	stale := state != nil && state.gen != gen
	o.mu.Unlock()
	if stale {
		return
	}

	if err := o.guard.ReleaseCheckout(context.Background(), buyerID); err != nil {
		logger.Log.Warn("Failed to release checkout guard",
			zap.String("buyer_id", buyerID), zap.Error(err))
	}
}

func nextGen(prev *attemptState) uint64 {
	if prev == nil {
		return 1
	}
	return prev.gen + 1
}
