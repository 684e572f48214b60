package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/models"
	"github.com/bchikara/la-carte-backend/repository"
)

// CartLedger is one buyer's cart: a productKey -> LineItem mapping with
// quantity arithmetic. Every entry holds quantity >= 1; an entry that would
// reach zero is deleted, not retained. Operations are total: storage failures
// are logged, never raised, and the in-memory ledger stays authoritative.
type CartLedger struct {
	mu       sync.Mutex
	buyerID  string
	items    map[string]models.LineItem
	hydrated bool
	storage  repository.CartStorage
}

func NewCartLedger(buyerID string, storage repository.CartStorage) *CartLedger {
	return &CartLedger{
		buyerID: buyerID,
		items:   make(map[string]models.LineItem),
		storage: storage,
	}
}

// Hydrate loads the persisted ledger at most once per ledger lifetime.
// Later calls are no-ops, so in-memory mutations are never overwritten.
// Missing or malformed persisted data leaves the ledger empty.
func (l *CartLedger) Hydrate(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hydrated {
		return
	}
	l.hydrated = true

	cart, err := l.storage.GetCart(ctx, l.buyerID)
	if err != nil {
		logger.Log.Warn("Cart hydrate failed, starting empty",
			zap.String("buyer_id", l.buyerID), zap.Error(err))
		return
	}
	if cart == nil || cart.Items == nil {
		return
	}

	for key, item := range cart.Items {
		if item.Quantity < 1 {
			continue
		}
		l.items[key] = item
	}
}

// Add increments the product's quantity, inserting a fresh line item at
// quantity 1 when absent. Out-of-stock products are rejected as a logged no-op.
func (l *CartLedger) Add(ctx context.Context, product models.MenuProduct) {
	if product.OutOfStock {
		logger.Log.Info("Ignoring add of out-of-stock product",
			zap.String("buyer_id", l.buyerID), zap.String("product_key", product.Key))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if item, ok := l.items[product.Key]; ok {
		item.Quantity++
		l.items[product.Key] = item
	} else {
		l.items[product.Key] = models.LineItem{
			ProductKey: product.Key,
			Name:       product.Name,
			UnitPrice:  product.Price,
			Quantity:   1,
			ImageRef:   product.ImageRef,
		}
	}

	l.persist(ctx)
}

// Remove decrements the product's quantity, deleting the entry outright when
// it would reach zero. Absent keys are a no-op.
func (l *CartLedger) Remove(ctx context.Context, productKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[productKey]
	if !ok {
		return
	}

	if item.Quantity <= 1 {
		delete(l.items, productKey)
	} else {
		item.Quantity--
		l.items[productKey] = item
	}

	l.persist(ctx)
}

// Delete removes the entry unconditionally, regardless of quantity.
func (l *CartLedger) Delete(ctx context.Context, productKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.items[productKey]; !ok {
		return
	}
	delete(l.items, productKey)

	l.persist(ctx)
}

// Clear empties the ledger and persists the empty state.
func (l *CartLedger) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = make(map[string]models.LineItem)
	l.persist(ctx)
}

func (l *CartLedger) QuantityOf(productKey string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.items[productKey].Quantity
}

func (l *CartLedger) IsEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.items) == 0
}

func (l *CartLedger) TotalItems() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, item := range l.items {
		total += item.Quantity
	}
	return total
}

func (l *CartLedger) TotalAmount() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0.0
	for _, item := range l.items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// Snapshot returns a detached copy of the ledger for checkout. The snapshot
// does not change when the ledger is mutated afterwards.
func (l *CartLedger) Snapshot() map[string]models.LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make(map[string]models.LineItem, len(l.items))
	for key, item := range l.items {
		snapshot[key] = item
	}
	return snapshot
}

// persist writes the full ledger after every mutation. Callers hold l.mu.
func (l *CartLedger) persist(ctx context.Context) {
	cart := &models.Cart{
		BuyerID: l.buyerID,
		Items:   make(map[string]models.LineItem, len(l.items)),
	}
	for key, item := range l.items {
		cart.Items[key] = item
	}

	if err := l.storage.SaveCart(ctx, cart); err != nil {
		logger.Log.Error("Failed to persist cart",
			zap.String("buyer_id", l.buyerID), zap.Error(err))
	}
}

// CartService hands out per-buyer ledgers, hydrating each from storage once
// per process lifetime.
type CartService struct {
	mu      sync.Mutex
	ledgers map[string]*CartLedger
	storage repository.CartStorage
}

func NewCartService(storage repository.CartStorage) *CartService {
	return &CartService{
		ledgers: make(map[string]*CartLedger),
		storage: storage,
	}
}

func (s *CartService) Ledger(ctx context.Context, buyerID string) *CartLedger {
	s.mu.Lock()
	ledger, ok := s.ledgers[buyerID]
	if !ok {
		ledger = NewCartLedger(buyerID, s.storage)
		s.ledgers[buyerID] = ledger
	}
	s.mu.Unlock()

	ledger.Hydrate(ctx)
	return ledger
}
