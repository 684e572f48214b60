package models

import "time"

// DestinationTakeaway is stored as the order destination when no table was
// scanned (takeaway / delivery orders).
const DestinationTakeaway = "takeaway"

const (
	OrderStatusPlaced = "placed"
)

// OrderProduct is the per-product slice of an order, denormalized from the
// cart line item at placement time.
type OrderProduct struct {
	Name      string  `json:"name" bson:"name"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	UnitPrice float64 `json:"unit_price" bson:"unit_price"`
}

// OrderRecord is the canonical order. The same record is projected verbatim
// under the buyer, the restaurant and (when a table was scanned) the table.
type OrderRecord struct {
	ID                   string                  `json:"id" bson:"id"`
	Products             map[string]OrderProduct `json:"products" bson:"products"`
	CreatedAt            time.Time               `json:"created_at" bson:"created_at"`
	TotalAmount          float64                 `json:"total_amount" bson:"total_amount"`
	BuyerID              string                  `json:"buyer_id" bson:"buyer_id"`
	OrderStatus          string                  `json:"order_status" bson:"order_status"`
	ProviderPaymentID    string                  `json:"provider_payment_id,omitempty" bson:"provider_payment_id,omitempty"`
	PaymentOutcomeStatus string                  `json:"payment_outcome_status,omitempty" bson:"payment_outcome_status,omitempty"`
	RestaurantID         string                  `json:"restaurant_id" bson:"restaurant_id"`
	RestaurantName       string                  `json:"restaurant_name,omitempty" bson:"restaurant_name,omitempty"`
	Destination          string                  `json:"destination" bson:"destination"`
}

// DestinationContext identifies where an order is being placed.
type DestinationContext struct {
	RestaurantID string `json:"restaurant_id"`
	TableID      string `json:"table_id,omitempty"`
}

// OrderPlacedEvent is published after an order has been written.
type OrderPlacedEvent struct {
	Event        string    `json:"event"`
	OrderID      string    `json:"order_id"`
	BuyerID      string    `json:"buyer_id"`
	RestaurantID string    `json:"restaurant_id"`
	TotalAmount  float64   `json:"total_amount"`
	Timestamp    time.Time `json:"timestamp"`
}
