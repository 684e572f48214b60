package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/models"
)

// CartStorage is the durable home of a buyer's ledger.
type CartStorage interface {
	GetCart(ctx context.Context, buyerID string) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, buyerID string) error
}

// CheckoutGuard holds the single-flight lock for a buyer's checkout attempt.
type CheckoutGuard interface {
	AcquireCheckout(ctx context.Context, buyerID string) (bool, error)
	ReleaseCheckout(ctx context.Context, buyerID string) error
}

type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *CartRepository) getKey(buyerID string) string {
	return fmt.Sprintf("cart:user:%s", buyerID)
}

// GetCart loads the persisted ledger. Missing or corrupt data yields nil so
// the caller starts from an empty ledger.
func (r *CartRepository) GetCart(ctx context.Context, buyerID string) (*models.Cart, error) {
	key := r.getKey(buyerID)
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		logger.Log.Warn("Discarding corrupt cart payload",
			zap.String("buyer_id", buyerID), zap.Error(err))
		return nil, nil
	}
	return &cart, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	key := r.getKey(cart.BuyerID)
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *CartRepository) DeleteCart(ctx context.Context, buyerID string) error {
	return r.client.Del(ctx, r.getKey(buyerID)).Err()
}

// Checkout single-flight helpers. The key exists while a checkout attempt is
// in flight; a second attempt must not reach the initiation endpoint.

func (r *CartRepository) getInFlightKey(buyerID string) string {
	return "checkout:inflight:" + buyerID
}

func (r *CartRepository) AcquireCheckout(ctx context.Context, buyerID string) (bool, error) {
	// TTL keeps an abandoned widget from wedging the buyer forever.
	return r.client.SetNX(ctx, r.getInFlightKey(buyerID), "1", time.Minute*15).Result()
}

func (r *CartRepository) ReleaseCheckout(ctx context.Context, buyerID string) error {
	return r.client.Del(ctx, r.getInFlightKey(buyerID)).Err()
}
