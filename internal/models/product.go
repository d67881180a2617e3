package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID              int64     `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	IsAdult         bool      `json:"is_adult" db:"is_adult"`
	IsEco           bool      `json:"is_eco" db:"is_eco"`
	IsPerishable    bool      `json:"is_perishable" db:"is_perishable"`
	HasBonus        bool      `json:"has_bonus" db:"has_bonus"`
	Attributes      string    `json:"attributes" db:"attributes"`           // serialized JSON
	Characteristics string    `json:"characteristics" db:"characteristics"` // serialized JSON
	Photos          string    `json:"photos" db:"photos"`                   // serialized JSON
	ShopID          int64     `json:"shop_id" db:"shop_id"`
	CategoryID      int64     `json:"category_id" db:"category_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Apply patches p field-by-field from in and reports whether anything changed
// and which fields did. The comparison list is exhaustive over the mutable
// fields so a no-op payload produces zero writes.
func (p *Product) Apply(in *Product) (bool, []string) {
	var fields []string
	if p.Title != in.Title {
		p.Title = in.Title
		fields = append(fields, "title")
	}
	if p.Description != in.Description {
		p.Description = in.Description
		fields = append(fields, "description")
	}
	if p.IsAdult != in.IsAdult {
		p.IsAdult = in.IsAdult
		fields = append(fields, "is_adult")
	}
	if p.IsEco != in.IsEco {
		p.IsEco = in.IsEco
		fields = append(fields, "is_eco")
	}
	if p.IsPerishable != in.IsPerishable {
		p.IsPerishable = in.IsPerishable
		fields = append(fields, "is_perishable")
	}
	if p.HasBonus != in.HasBonus {
		p.HasBonus = in.HasBonus
		fields = append(fields, "has_bonus")
	}
	if p.Attributes != in.Attributes {
		p.Attributes = in.Attributes
		fields = append(fields, "attributes")
	}
	if p.Characteristics != in.Characteristics {
		p.Characteristics = in.Characteristics
		fields = append(fields, "characteristics")
	}
	if p.Photos != in.Photos {
		p.Photos = in.Photos
		fields = append(fields, "photos")
	}
	if p.ShopID != in.ShopID {
		p.ShopID = in.ShopID
		fields = append(fields, "shop_id")
	}
	if p.CategoryID != in.CategoryID {
		p.CategoryID = in.CategoryID
		fields = append(fields, "category_id")
	}
	return len(fields) > 0, fields
}

// ProductAnalytics is the dated per-product snapshot, the unit of historical
// truth. Never mutated after creation except for the running "today" row.
type ProductAnalytics struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	ProductID          int64     `json:"product_id" db:"product_id"`
	Date               time.Time `json:"date" db:"date"`
	OrdersAmount       int64     `json:"orders_amount" db:"orders_amount"` // cumulative, from upstream
	RealOrdersAmount   int64     `json:"real_orders_amount" db:"real_orders_amount"`
	ReviewsAmount      int64     `json:"reviews_amount" db:"reviews_amount"`
	Rating             float64   `json:"rating" db:"rating"`
	AvailableAmount    int64     `json:"available_amount" db:"available_amount"`
	OrdersMoney        int64     `json:"orders_money" db:"orders_money"` // cumulative revenue, whole currency units
	DailyRevenue       int64     `json:"daily_revenue" db:"daily_revenue"`
	PositionTotal      int64     `json:"position_total" db:"position_total"`
	PositionInCategory int64     `json:"position_in_category" db:"position_in_category"`
	PositionInShop     int64     `json:"position_in_shop" db:"position_in_shop"`
	BadgeIDs           []int64   `json:"badge_ids" db:"badge_ids"`
	CampaignIDs        []int64   `json:"campaign_ids" db:"campaign_ids"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}
