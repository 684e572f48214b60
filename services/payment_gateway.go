package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/models"
)

// PaymentGateway normalizes heterogeneous checkout providers behind one
// contract: obtain a single-use session token, then wait for exactly one
// outcome for that session.
type PaymentGateway interface {
	InitiateSession(ctx context.Context, req SessionRequest) (models.PaymentSession, error)
	AwaitOutcome(ctx context.Context, session models.PaymentSession) (models.PaymentOutcome, error)
}

type SessionRequest struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// outcomeWaiter resolves exactly once. The provider gives no ordering
// guarantees, and may call back twice or never; only the first resolution
// wins, everything after it is discarded.
type outcomeWaiter struct {
	once sync.Once
	ch   chan models.PaymentOutcome
}

func newOutcomeWaiter() *outcomeWaiter {
	return &outcomeWaiter{ch: make(chan models.PaymentOutcome, 1)}
}

func (w *outcomeWaiter) resolve(outcome models.PaymentOutcome) bool {
	resolved := false
	w.once.Do(func() {
		w.ch <- outcome
		resolved = true
	})
	return resolved
}

// HostedCheckoutGateway fronts the widget-style provider: session initiation
// is a plain POST, the outcome arrives later on our callback route. The
// orchestrator blocks in AwaitOutcome until the callback resolves the waiter
// or its context is cancelled.
type HostedCheckoutGateway struct {
	initiateURL string
	accessKey   string
	client      *http.Client

	mu      sync.Mutex
	waiters map[string]*outcomeWaiter
}

func NewHostedCheckoutGateway(initiateURL, accessKey string) *HostedCheckoutGateway {
	return &HostedCheckoutGateway{
		initiateURL: initiateURL,
		accessKey:   accessKey,
		client:      &http.Client{Timeout: 15 * time.Second},
		waiters:     make(map[string]*outcomeWaiter),
	}
}

type initiateResponse struct {
	ID string `json:"id"`
}

func (g *HostedCheckoutGateway) InitiateSession(ctx context.Context, req SessionRequest) (models.PaymentSession, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.PaymentSession{}, &InitiationError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.initiateURL, bytes.NewReader(body))
	if err != nil {
		return models.PaymentSession{}, &InitiationError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.accessKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.accessKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return models.PaymentSession{}, &InitiationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.PaymentSession{}, &InitiationError{
			Err: fmt.Errorf("initiation endpoint returned %d", resp.StatusCode),
		}
	}

	var parsed initiateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return models.PaymentSession{}, &InitiationError{Err: err}
	}
	if parsed.ID == "" {
		return models.PaymentSession{}, &InitiationError{
			Err: fmt.Errorf("initiation response carried no session id"),
		}
	}

	// Register before returning: the provider may call back before the
	// orchestrator gets around to AwaitOutcome.
	g.mu.Lock()
	g.waiters[parsed.ID] = newOutcomeWaiter()
	g.mu.Unlock()

	return models.PaymentSession{Token: parsed.ID}, nil
}

// Resolve feeds a provider callback into the waiting checkout attempt.
// It reports false when nothing is waiting for the token anymore: unknown
// sessions, duplicate callbacks, and callbacks arriving after the attempt was
// cleared are all discarded here.
func (g *HostedCheckoutGateway) Resolve(token string, outcome models.PaymentOutcome) bool {
	g.mu.Lock()
	waiter, ok := g.waiters[token]
	g.mu.Unlock()

	if !ok {
		logger.Log.Warn("Discarding callback for unknown session",
			zap.String("token", token), zap.String("status", outcome.Status))
		return false
	}

	if !waiter.resolve(outcome) {
		logger.Log.Warn("Discarding duplicate callback",
			zap.String("token", token), zap.String("status", outcome.Status))
		return false
	}
	return true
}

func (g *HostedCheckoutGateway) AwaitOutcome(ctx context.Context, session models.PaymentSession) (models.PaymentOutcome, error) {
	g.mu.Lock()
	waiter, ok := g.waiters[session.Token]
	g.mu.Unlock()

	if !ok {
		return models.PaymentOutcome{}, &GatewayError{
			Status:  models.OutcomeFailed,
			Message: "unknown payment session",
		}
	}

	defer func() {
		g.mu.Lock()
		delete(g.waiters, session.Token)
		g.mu.Unlock()
	}()

	select {
	case outcome := <-waiter.ch:
		return outcome, nil
	case <-ctx.Done():
		// Mark the waiter spent so a late callback is counted as discarded
		// rather than buffered for nobody.
		waiter.resolve(models.PaymentOutcome{Status: models.OutcomeCancelled})
		return models.PaymentOutcome{}, ctx.Err()
	}
}
