package models

import (
	"time"

	"github.com/google/uuid"
)

// Sku is a product variant. Characteristics holds the flattened
// (title, value) pairs resolved from the parent product's schema.
type Sku struct {
	ID              int64     `json:"id" db:"id"`
	ProductID       int64     `json:"product_id" db:"product_id"`
	Characteristics string    `json:"characteristics" db:"characteristics"` // serialized JSON
	DiscountBadgeID *int64    `json:"discount_badge_id" db:"discount_badge_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

func (s *Sku) Apply(in *Sku) (bool, []string) {
	var fields []string
	if s.Characteristics != in.Characteristics {
		s.Characteristics = in.Characteristics
		fields = append(fields, "characteristics")
	}
	if !int64PtrEqual(s.DiscountBadgeID, in.DiscountBadgeID) {
		s.DiscountBadgeID = in.DiscountBadgeID
		fields = append(fields, "discount_badge_id")
	}
	if s.ProductID != in.ProductID {
		s.ProductID = in.ProductID
		fields = append(fields, "product_id")
	}
	return len(fields) > 0, fields
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SkuAnalytics is the dated per-SKU price/availability snapshot.
// Prices are in minor currency units (hundredths).
type SkuAnalytics struct {
	ID              uuid.UUID `json:"id" db:"id"`
	SkuID           int64     `json:"sku_id" db:"sku_id"`
	Date            time.Time `json:"date" db:"date"`
	PurchasePrice   int64     `json:"purchase_price" db:"purchase_price"`
	FullPrice       int64     `json:"full_price" db:"full_price"`
	AvailableAmount int64     `json:"available_amount" db:"available_amount"`
	OrdersAmount    int64     `json:"orders_amount" db:"orders_amount"`
	OrdersMoney     int64     `json:"orders_money" db:"orders_money"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
