package models

import "time"

// MenuProduct is the menu-side view of a product, read from the restaurant's
// menu path. Only a projection of it ends up in the cart.
type MenuProduct struct {
	Key        string  `json:"key" bson:"key"`
	Name       string  `json:"name" bson:"name"`
	Price      float64 `json:"price" bson:"price"`
	ImageRef   string  `json:"image_ref,omitempty" bson:"image_ref,omitempty"`
	OutOfStock bool    `json:"out_of_stock" bson:"out_of_stock"`
}

// LineItem is a single cart entry. Identity is ProductKey.
type LineItem struct {
	ProductKey string  `json:"product_key"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	ImageRef   string  `json:"image_ref,omitempty"`
}

// Cart is the persisted shape of a buyer's ledger.
type Cart struct {
	BuyerID   string              `json:"buyer_id"`
	Items     map[string]LineItem `json:"items"`
	UpdatedAt time.Time           `json:"updated_at"`
}
