package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/bchikara/la-carte-backend/pkg/aws"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/models"
	"github.com/bchikara/la-carte-backend/repository"
)

// gstSurchargeRate applies only to restaurants flagged as tax-registered.
const gstSurchargeRate = 0.05

// OrderEventPublisher emits best-effort order events.
type OrderEventPublisher interface {
	SendOrderPlaced(event models.OrderPlacedEvent) error
}

// OrderService computes the canonical order from a cart snapshot and projects
// it into the buyer's history, the restaurant's feed and, when a table was
// scanned, the table's queue.
type OrderService struct {
	repo        repository.OrderRepository
	outbox      repository.OutboxRepository
	publisher   OrderEventPublisher
	snsClient   awspkg.SNSPublisher
	snsTopicArn string
}

func NewOrderService(
	repo repository.OrderRepository,
	outbox repository.OutboxRepository,
	publisher OrderEventPublisher,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
) *OrderService {
	return &OrderService{
		repo:        repo,
		outbox:      outbox,
		publisher:   publisher,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
	}
}

// PlaceOrder writes the order. The returned record is non-nil exactly when
// the buyer projection committed: the caller clears the cart on that signal
// even if a later projection failed, because a buyer resubmitting a paid
// order is worse than a restaurant feed entry the outbox can replay.
func (s *OrderService) PlaceOrder(
	ctx context.Context,
	buyerID string,
	snapshot map[string]models.LineItem,
	outcome models.PaymentOutcome,
	dest models.DestinationContext,
) (*models.OrderRecord, error) {
	if len(snapshot) == 0 {
		return nil, &PreconditionError{Err: ErrEmptyCart}
	}
	if dest.RestaurantID == "" {
		return nil, &PreconditionError{Err: ErrMissingRestaurant}
	}
	if buyerID == "" {
		return nil, &PreconditionError{Err: ErrMissingBuyer}
	}

	order, err := s.buildOrder(ctx, buyerID, snapshot, outcome, dest)
	if err != nil {
		return nil, err
	}

	// The buyer projection alone decides whether this purchase is recorded.
	// Its failure fails the whole operation before anything else is written.
	if err := s.repo.WriteUserProjection(ctx, order); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	missing := make([]string, 0, 2)
	if err := s.repo.WriteRestaurantProjection(ctx, order); err != nil {
		logger.Log.Error("Restaurant projection failed",
			zap.String("order_id", order.ID), zap.Error(err))
		missing = append(missing, repository.ProjectionRestaurant)
	}
	if dest.TableID != "" {
		if err := s.repo.WriteTableProjection(ctx, order, dest.TableID); err != nil {
			logger.Log.Error("Table projection failed",
				zap.String("order_id", order.ID), zap.Error(err))
			missing = append(missing, repository.ProjectionTable)
		}
	}

	if len(missing) > 0 {
		s.recordForReconciliation(ctx, order, dest, missing)
		return order, &PersistenceError{
			OrderID: order.ID,
			Err:     errors.New("projection writes incomplete: " + strings.Join(missing, ", ")),
		}
	}

	s.notify(ctx, order)
	return order, nil
}

func (s *OrderService) buildOrder(
	ctx context.Context,
	buyerID string,
	snapshot map[string]models.LineItem,
	outcome models.PaymentOutcome,
	dest models.DestinationContext,
) (*models.OrderRecord, error) {
	products := make(map[string]models.OrderProduct, len(snapshot))
	total := 0.0
	for key, item := range snapshot {
		products[key] = models.OrderProduct{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		// Always re-derived from the snapshot, never a client-cached total.
		total += item.UnitPrice * float64(item.Quantity)
	}

	restaurantName := ""
	restaurant, err := s.repo.GetRestaurant(ctx, dest.RestaurantID)
	switch {
	case err == nil:
		restaurantName = restaurant.Name
		if restaurant.TaxRegistered {
			total += total * gstSurchargeRate
		}
	case errors.Is(err, repository.ErrPathNotFound):
		logger.Log.Warn("Restaurant record missing, order placed without surcharge",
			zap.String("restaurant_id", dest.RestaurantID))
	default:
		return nil, &PersistenceError{Err: err}
	}

	destination := dest.TableID
	if destination == "" {
		destination = models.DestinationTakeaway
	}

	return &models.OrderRecord{
		ID:                   uuid.NewString(),
		Products:             products,
		CreatedAt:            time.Now(),
		TotalAmount:          total,
		BuyerID:              buyerID,
		OrderStatus:          models.OrderStatusPlaced,
		ProviderPaymentID:    outcome.ProviderPaymentID,
		PaymentOutcomeStatus: outcome.Status,
		RestaurantID:         dest.RestaurantID,
		RestaurantName:       restaurantName,
		Destination:          destination,
	}, nil
}

func (s *OrderService) recordForReconciliation(
	ctx context.Context,
	order *models.OrderRecord,
	dest models.DestinationContext,
	missing []string,
) {
	payload, err := json.Marshal(order)
	if err != nil {
		logger.Log.Error("Failed to encode outbox payload",
			zap.String("order_id", order.ID), zap.Error(err))
		return
	}

	entry := &repository.OrderOutbox{
		OrderID:      order.ID,
		BuyerID:      order.BuyerID,
		RestaurantID: order.RestaurantID,
		TableID:      dest.TableID,
		Payload:      payload,
		Missing:      strings.Join(missing, ","),
	}
	if err := s.outbox.Create(ctx, entry); err != nil {
		// Worst case: money moved, order only visible to the buyer, and no
		// outbox row. Loud log is all that's left.
		logger.Log.Error("Failed to record outbox entry for incomplete order",
			zap.String("order_id", order.ID),
			zap.Strings("missing", missing),
			zap.Error(err))
	}
}

// notify emits best-effort signals. Failures are logged, never surfaced.
func (s *OrderService) notify(ctx context.Context, order *models.OrderRecord) {
	event := models.OrderPlacedEvent{
		Event:        "order.placed",
		OrderID:      order.ID,
		BuyerID:      order.BuyerID,
		RestaurantID: order.RestaurantID,
		TotalAmount:  order.TotalAmount,
		Timestamp:    time.Now().UTC(),
	}

	if s.publisher != nil {
		if err := s.publisher.SendOrderPlaced(event); err != nil {
			logger.Log.Warn("Failed to publish order.placed event",
				zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	if s.snsClient != nil && s.snsTopicArn != "" {
		payload, err := json.Marshal(event)
		if err == nil {
			err = s.snsClient.Publish(ctx, s.snsTopicArn, payload)
		}
		if err != nil {
			logger.Log.Warn("SNS publish failed",
				zap.String("order_id", order.ID), zap.Error(err))
		}
	}
}

// GetBuyerOrders reads the buyer-scoped order projections.
func (s *OrderService) GetBuyerOrders(ctx context.Context, buyerID string) ([]models.OrderRecord, error) {
	return s.repo.FindByBuyer(ctx, buyerID)
}

// GetOrder reads one order from the buyer's own history.
func (s *OrderService) GetOrder(ctx context.Context, buyerID, orderID string) (*models.OrderRecord, error) {
	return s.repo.FindByIDAndBuyer(ctx, orderID, buyerID)
}
