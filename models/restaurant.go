package models

// Restaurant is the subset of the restaurant record checkout cares about:
// the display name copied onto orders and the tax registration flag that
// decides whether a GST surcharge applies.
type Restaurant struct {
	ID            string `json:"id" bson:"id"`
	Name          string `json:"name" bson:"name"`
	TaxRegistered bool   `json:"tax_registered" bson:"tax_registered"`
}
