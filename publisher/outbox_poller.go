package publisher

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/models"
	"github.com/bchikara/la-carte-backend/repository"
)

// ReconciledPublisher emits the event acknowledging a replayed order.
type ReconciledPublisher interface {
	SendOrderReconciled(event models.OrderPlacedEvent) error
}

// OutboxPoller replays the projections that failed after a captured payment.
// Each row names the projections still missing; the poller writes them through
// the same repository the checkout path used and marks the row processed.
type OutboxPoller struct {
	tick        time.Duration
	maxAttempts int
	outbox      repository.OutboxRepository
	orders      repository.OrderRepository
	producer    ReconciledPublisher
}

func NewOutboxPoller(
	tick time.Duration,
	maxAttempts int,
	outbox repository.OutboxRepository,
	orders repository.OrderRepository,
	producer ReconciledPublisher,
) *OutboxPoller {
	return &OutboxPoller{
		tick:        tick,
		maxAttempts: maxAttempts,
		outbox:      outbox,
		orders:      orders,
		producer:    producer,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.processEntries(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processEntries(ctx context.Context) {
	entries, err := p.outbox.GetUnprocessed(ctx, 100)
	if err != nil {
		logger.Log.Error("Failed to fetch outbox entries", zap.Error(err))
		return
	}

	for i := range entries {
		p.processEntry(ctx, &entries[i])
	}
}

func (p *OutboxPoller) processEntry(ctx context.Context, entry *repository.OrderOutbox) {
	if entry.Attempts >= p.maxAttempts {
		// Left for manual reconciliation; the row stays as the paper trail.
		logger.Log.Error("Outbox entry exceeded max attempts",
			zap.String("order_id", entry.OrderID),
			zap.Int("attempts", entry.Attempts))
		return
	}

	var order models.OrderRecord
	if err := json.Unmarshal(entry.Payload, &order); err != nil {
		logger.Log.Error("Corrupt outbox payload",
			zap.String("order_id", entry.OrderID), zap.Error(err))
		return
	}

	for _, projection := range strings.Split(entry.Missing, ",") {
		var err error
		switch projection {
		case repository.ProjectionRestaurant:
			err = p.orders.WriteRestaurantProjection(ctx, &order)
		case repository.ProjectionTable:
			err = p.orders.WriteTableProjection(ctx, &order, entry.TableID)
		default:
			continue
		}
		if err != nil {
			logger.Log.Warn("Outbox replay failed",
				zap.String("order_id", entry.OrderID),
				zap.String("projection", projection),
				zap.Error(err))
			if errAttempts := p.outbox.IncrementAttempts(ctx, entry.ID); errAttempts != nil {
				logger.Log.Error("Failed to bump outbox attempts",
					zap.String("order_id", entry.OrderID), zap.Error(errAttempts))
			}
			return
		}
	}

	if err := p.outbox.MarkProcessed(ctx, entry.ID); err != nil {
		logger.Log.Error("Failed to mark outbox entry processed",
			zap.String("order_id", entry.OrderID), zap.Error(err))
		return
	}

	logger.Log.Info("Order projections reconciled",
		zap.String("order_id", entry.OrderID),
		zap.String("missing", entry.Missing))

	if p.producer != nil {
		event := models.OrderPlacedEvent{
			Event:        "order.reconciled",
			OrderID:      order.ID,
			BuyerID:      order.BuyerID,
			RestaurantID: order.RestaurantID,
			TotalAmount:  order.TotalAmount,
			Timestamp:    time.Now().UTC(),
		}
		if err := p.producer.SendOrderReconciled(event); err != nil {
			logger.Log.Warn("Failed to publish order.reconciled event",
				zap.String("order_id", order.ID), zap.Error(err))
		}
	}
}
