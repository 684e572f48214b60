package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/models"
	"github.com/bchikara/la-carte-backend/repository"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	m.Run()
}

type stubOutbox struct {
	entries   []repository.OrderOutbox
	processed []uuid.UUID
	bumped    []uuid.UUID
}

func (s *stubOutbox) Create(_ context.Context, entry *repository.OrderOutbox) error {
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubOutbox) GetUnprocessed(_ context.Context, limit int) ([]repository.OrderOutbox, error) {
	if len(s.entries) > limit {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func (s *stubOutbox) MarkProcessed(_ context.Context, id uuid.UUID) error {
	s.processed = append(s.processed, id)
	return nil
}

func (s *stubOutbox) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	s.bumped = append(s.bumped, id)
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].Attempts++
		}
	}
	return nil
}

type stubOrders struct {
	restaurantWrites map[string]models.OrderRecord
	tableWrites      map[string]models.OrderRecord
	restaurantErr    error
}

func newStubOrders() *stubOrders {
	return &stubOrders{
		restaurantWrites: make(map[string]models.OrderRecord),
		tableWrites:      make(map[string]models.OrderRecord),
	}
}

func (s *stubOrders) GetRestaurant(context.Context, string) (*models.Restaurant, error) {
	return nil, repository.ErrPathNotFound
}

func (s *stubOrders) GetMenuProduct(context.Context, string, string) (*models.MenuProduct, error) {
	return nil, repository.ErrPathNotFound
}

func (s *stubOrders) WriteUserProjection(_ context.Context, order *models.OrderRecord) error {
	return errors.New("poller must never touch the user projection")
}

func (s *stubOrders) WriteRestaurantProjection(_ context.Context, order *models.OrderRecord) error {
	if s.restaurantErr != nil {
		return s.restaurantErr
	}
	s.restaurantWrites[order.ID] = *order
	return nil
}

func (s *stubOrders) WriteTableProjection(_ context.Context, order *models.OrderRecord, tableID string) error {
	s.tableWrites[order.ID+"/"+tableID] = *order
	return nil
}

func (s *stubOrders) FindByBuyer(context.Context, string) ([]models.OrderRecord, error) {
	return nil, nil
}

func (s *stubOrders) FindByIDAndBuyer(context.Context, string, string) (*models.OrderRecord, error) {
	return nil, repository.ErrPathNotFound
}

type stubProducer struct {
	events []models.OrderPlacedEvent
	err    error
}

func (s *stubProducer) SendOrderReconciled(event models.OrderPlacedEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func outboxEntry(t *testing.T, missing, tableID string) repository.OrderOutbox {
	t.Helper()
	order := models.OrderRecord{
		ID:           "order-1",
		BuyerID:      "buyer-1",
		RestaurantID: "r1",
		TotalAmount:  26.25,
		OrderStatus:  models.OrderStatusPlaced,
	}
	payload, err := json.Marshal(order)
	require.NoError(t, err)
	return repository.OrderOutbox{
		ID:           uuid.New(),
		OrderID:      order.ID,
		BuyerID:      order.BuyerID,
		RestaurantID: order.RestaurantID,
		TableID:      tableID,
		Payload:      payload,
		Missing:      missing,
	}
}

func TestPoller_ReplaysMissingProjections(t *testing.T) {
	outbox := &stubOutbox{}
	orders := newStubOrders()
	producer := &stubProducer{}
	entry := outboxEntry(t, "restaurant,table", "t7")
	outbox.entries = []repository.OrderOutbox{entry}

	poller := NewOutboxPoller(time.Minute, 10, outbox, orders, producer)
	poller.processEntries(context.Background())

	assert.Contains(t, orders.restaurantWrites, "order-1")
	assert.Contains(t, orders.tableWrites, "order-1/t7")
	require.Len(t, outbox.processed, 1)
	assert.Equal(t, entry.ID, outbox.processed[0])

	require.Len(t, producer.events, 1)
	assert.Equal(t, "order.reconciled", producer.events[0].Event)
	assert.Equal(t, "order-1", producer.events[0].OrderID)
	assert.InDelta(t, 26.25, producer.events[0].TotalAmount, 0.001)
}

func TestPoller_ReplaysOnlyNamedProjections(t *testing.T) {
	outbox := &stubOutbox{}
	orders := newStubOrders()
	outbox.entries = []repository.OrderOutbox{outboxEntry(t, "table", "t7")}

	poller := NewOutboxPoller(time.Minute, 10, outbox, orders, nil)
	poller.processEntries(context.Background())

	assert.Empty(t, orders.restaurantWrites)
	assert.Contains(t, orders.tableWrites, "order-1/t7")
	assert.Len(t, outbox.processed, 1)
}

func TestPoller_FailedReplayBumpsAttempts(t *testing.T) {
	outbox := &stubOutbox{}
	orders := newStubOrders()
	orders.restaurantErr = errors.New("store down")
	entry := outboxEntry(t, "restaurant", "")
	outbox.entries = []repository.OrderOutbox{entry}

	poller := NewOutboxPoller(time.Minute, 10, outbox, orders, nil)
	poller.processEntries(context.Background())

	assert.Empty(t, outbox.processed)
	require.Len(t, outbox.bumped, 1)
	assert.Equal(t, entry.ID, outbox.bumped[0])
	assert.Equal(t, 1, outbox.entries[0].Attempts)
}

func TestPoller_ExhaustedEntryIsLeftAlone(t *testing.T) {
	outbox := &stubOutbox{}
	orders := newStubOrders()
	entry := outboxEntry(t, "restaurant", "")
	entry.Attempts = 10
	outbox.entries = []repository.OrderOutbox{entry}

	poller := NewOutboxPoller(time.Minute, 10, outbox, orders, nil)
	poller.processEntries(context.Background())

	assert.Empty(t, orders.restaurantWrites)
	assert.Empty(t, outbox.processed)
	assert.Empty(t, outbox.bumped)
}

func TestPoller_CorruptPayloadIsSkipped(t *testing.T) {
	outbox := &stubOutbox{}
	orders := newStubOrders()
	entry := outboxEntry(t, "restaurant", "")
	entry.Payload = []byte("{not json")
	outbox.entries = []repository.OrderOutbox{entry}

	poller := NewOutboxPoller(time.Minute, 10, outbox, orders, nil)
	poller.processEntries(context.Background())

	assert.Empty(t, orders.restaurantWrites)
	assert.Empty(t, outbox.processed)
}

func TestPoller_PublishFailureStillMarksProcessed(t *testing.T) {
	outbox := &stubOutbox{}
	orders := newStubOrders()
	producer := &stubProducer{err: errors.New("broker unreachable")}
	outbox.entries = []repository.OrderOutbox{outboxEntry(t, "restaurant", "")}

	poller := NewOutboxPoller(time.Minute, 10, outbox, orders, producer)
	poller.processEntries(context.Background())

	assert.Len(t, outbox.processed, 1)
	assert.Empty(t, producer.events)
}

func TestPoller_RunStopsOnContextCancel(t *testing.T) {
	outbox := &stubOutbox{}
	poller := NewOutboxPoller(5*time.Millisecond, 10, outbox, newStubOrders(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}
