package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bchikara/la-carte-backend/models"
)

// OrderRepository projects order records into the store and reads them back.
// The same record is written under up to three owners; the copies are
// denormalized on purpose, never joined.
type OrderRepository interface {
	GetRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error)
	GetMenuProduct(ctx context.Context, restaurantID, productKey string) (*models.MenuProduct, error)

	WriteUserProjection(ctx context.Context, order *models.OrderRecord) error
	WriteRestaurantProjection(ctx context.Context, order *models.OrderRecord) error
	WriteTableProjection(ctx context.Context, order *models.OrderRecord, tableID string) error

	FindByBuyer(ctx context.Context, buyerID string) ([]models.OrderRecord, error)
	FindByIDAndBuyer(ctx context.Context, orderID, buyerID string) (*models.OrderRecord, error)
}

type StoreOrderRepository struct {
	store PathStore
}

func NewStoreOrderRepository(store PathStore) *StoreOrderRepository {
	return &StoreOrderRepository{store: store}
}

func userOrderPath(buyerID, orderID string) string {
	return JoinPath("users", buyerID, "orders", orderID)
}

func restaurantOrderPath(restaurantID, orderID string) string {
	return JoinPath("restaurants", restaurantID, "orders", orderID)
}

func tableOrderPath(restaurantID, tableID, orderID string) string {
	return JoinPath("restaurants", restaurantID, "tables", tableID, "orders", orderID)
}

func (r *StoreOrderRepository) GetRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.store.Get(ctx, JoinPath("restaurants", restaurantID), &restaurant)
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *StoreOrderRepository) GetMenuProduct(ctx context.Context, restaurantID, productKey string) (*models.MenuProduct, error) {
	var product models.MenuProduct
	err := r.store.Get(ctx, JoinPath("restaurants", restaurantID, "menu", productKey), &product)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *StoreOrderRepository) WriteUserProjection(ctx context.Context, order *models.OrderRecord) error {
	if err := r.store.Set(ctx, userOrderPath(order.BuyerID, order.ID), order); err != nil {
		return fmt.Errorf("user projection: %w", err)
	}
	return nil
}

func (r *StoreOrderRepository) WriteRestaurantProjection(ctx context.Context, order *models.OrderRecord) error {
	if err := r.store.Set(ctx, restaurantOrderPath(order.RestaurantID, order.ID), order); err != nil {
		return fmt.Errorf("restaurant projection: %w", err)
	}
	return nil
}

func (r *StoreOrderRepository) WriteTableProjection(ctx context.Context, order *models.OrderRecord, tableID string) error {
	if err := r.store.Set(ctx, tableOrderPath(order.RestaurantID, tableID, order.ID), order); err != nil {
		return fmt.Errorf("table projection: %w", err)
	}
	return nil
}

func (r *StoreOrderRepository) FindByBuyer(ctx context.Context, buyerID string) ([]models.OrderRecord, error) {
	raws, err := r.store.List(ctx, JoinPath("users", buyerID, "orders"))
	if err != nil {
		return nil, err
	}

	orders := make([]models.OrderRecord, 0, len(raws))
	for _, raw := range raws {
		var order models.OrderRecord
		if err := bson.Unmarshal(raw, &order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *StoreOrderRepository) FindByIDAndBuyer(ctx context.Context, orderID, buyerID string) (*models.OrderRecord, error) {
	var order models.OrderRecord
	if err := r.store.Get(ctx, userOrderPath(buyerID, orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}
