package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	ParentID      *int64    `json:"parent_id" db:"parent_id"`
	DescendantIDs string    `json:"descendant_ids" db:"descendant_ids"` // comma-joined, kept in sync with the tree
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// DescendantIDList parses the comma-joined descendant string back into IDs.
func (c *Category) DescendantIDList() []int64 {
	if c.DescendantIDs == "" {
		return nil
	}
	parts := strings.Split(c.DescendantIDs, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// JoinIDs renders ids in the comma-joined descendant string format.
func JoinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// CategoryAnalytics is the dated per-category snapshot. One row per category
// per calendar day; only the current day's row is ever mutated.
type CategoryAnalytics struct {
	ID                uuid.UUID `json:"id" db:"id"`
	CategoryID        int64     `json:"category_id" db:"category_id"`
	Date              time.Time `json:"date" db:"date"`
	TotalProducts     int64     `json:"total_products" db:"total_products"`
	TotalOrders       int64     `json:"total_orders" db:"total_orders"`
	TotalRevenue      int64     `json:"total_revenue" db:"total_revenue"`
	TotalReviews      int64     `json:"total_reviews" db:"total_reviews"`
	TotalShops        int64     `json:"total_shops" db:"total_shops"`
	ProductsWithSales int64     `json:"products_with_sales" db:"products_with_sales"`
	ShopsWithSales    int64     `json:"shops_with_sales" db:"shops_with_sales"`
	AvgRating         float64   `json:"avg_rating" db:"avg_rating"`
	Gini              *float64  `json:"gini" db:"gini"`
	HHI               *float64  `json:"hhi" db:"hhi"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Day truncates t to its UTC calendar day. All snapshot dates go through this.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
