package models

import (
	"time"

	"github.com/google/uuid"
)

type Shop struct {
	ID               int64     `json:"id" db:"id"`
	Title            string    `json:"title" db:"title"`
	Link             string    `json:"link" db:"link"`
	Description      string    `json:"description" db:"description"`
	AccountID        int64     `json:"account_id" db:"account_id"`
	RegistrationDate time.Time `json:"registration_date" db:"registration_date"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Apply patches the rename-able fields from in. Only title and link are
// expected to change after first sight.
func (s *Shop) Apply(in *Shop) (bool, []string) {
	var fields []string
	if s.Title != in.Title {
		s.Title = in.Title
		fields = append(fields, "title")
	}
	if s.Link != in.Link {
		s.Link = in.Link
		fields = append(fields, "link")
	}
	return len(fields) > 0, fields
}

type ShopAnalytics struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ShopID        int64     `json:"shop_id" db:"shop_id"`
	Date          time.Time `json:"date" db:"date"`
	TotalProducts int64     `json:"total_products" db:"total_products"`
	TotalOrders   int64     `json:"total_orders" db:"total_orders"`
	TotalReviews  int64     `json:"total_reviews" db:"total_reviews"`
	MonthlyOrders int64     `json:"monthly_orders" db:"monthly_orders"`
	Rating        float64   `json:"rating" db:"rating"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
