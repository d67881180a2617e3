package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"marketscan/internal/models"
)

// LatestProductStats is the point-in-time view the revenue computation reads:
// the most recent snapshot's cumulative counters per product.
type LatestProductStats struct {
	ProductID    int64
	Date         time.Time
	OrdersAmount int64
	OrdersMoney  int64
}

type AnalyticsRepository interface {
	BulkInsertProduct(ctx context.Context, rows []*models.ProductAnalytics) (int, int, error)
	BulkInsertSku(ctx context.Context, rows []*models.SkuAnalytics) (int, int, error)
	BulkInsertShop(ctx context.Context, rows []*models.ShopAnalytics) (int, int, error)
	UpsertCategoryDay(ctx context.Context, row *models.CategoryAnalytics) error

	LatestProduct(ctx context.Context, productIDs []int64) (map[int64]*LatestProductStats, error)
	ShopIDsSnapshotted(ctx context.Context, date time.Time) (map[int64]bool, error)

	ProductRange(ctx context.Context, productID int64, from, to time.Time) ([]*models.ProductAnalytics, error)
	ShopRange(ctx context.Context, shopID int64, from, to time.Time) ([]*models.ShopAnalytics, error)
	CategoryRange(ctx context.Context, categoryID int64, from, to time.Time) ([]*models.CategoryAnalytics, error)
	CategoryRowsForRange(ctx context.Context, from, to time.Time) ([]*models.CategoryAnalytics, error)

	CleanupDuplicates(ctx context.Context, date time.Time) (int64, error)
}

type analyticsRepo struct {
	db DB
}

func NewAnalyticsRepository(db DB) AnalyticsRepository {
	return &analyticsRepo{db: db}
}

func (r *analyticsRepo) BulkInsertProduct(ctx context.Context, rows []*models.ProductAnalytics) (int, int, error) {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO product_analytics (id, product_id, date, orders_amount, real_orders_amount, reviews_amount,
		                               rating, available_amount, orders_money, daily_revenue,
		                               position_total, position_in_category, position_in_shop,
		                               badge_ids, campaign_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	for _, a := range rows {
		batch.Queue(query, a.ID, a.ProductID, a.Date, a.OrdersAmount, a.RealOrdersAmount, a.ReviewsAmount,
			a.Rating, a.AvailableAmount, a.OrdersMoney, a.DailyRevenue,
			a.PositionTotal, a.PositionInCategory, a.PositionInShop, a.BadgeIDs, a.CampaignIDs)
	}
	return execBatch(ctx, r.db, batch, len(rows))
}

func (r *analyticsRepo) BulkInsertSku(ctx context.Context, rows []*models.SkuAnalytics) (int, int, error) {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO sku_analytics (id, sku_id, date, purchase_price, full_price, available_amount,
		                           orders_amount, orders_money, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	for _, a := range rows {
		batch.Queue(query, a.ID, a.SkuID, a.Date, a.PurchasePrice, a.FullPrice, a.AvailableAmount,
			a.OrdersAmount, a.OrdersMoney)
	}
	return execBatch(ctx, r.db, batch, len(rows))
}

func (r *analyticsRepo) BulkInsertShop(ctx context.Context, rows []*models.ShopAnalytics) (int, int, error) {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO shop_analytics (id, shop_id, date, total_products, total_orders, total_reviews,
		                            monthly_orders, rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	for _, a := range rows {
		batch.Queue(query, a.ID, a.ShopID, a.Date, a.TotalProducts, a.TotalOrders, a.TotalReviews,
			a.MonthlyOrders, a.Rating)
	}
	return execBatch(ctx, r.db, batch, len(rows))
}

// UpsertCategoryDay writes the category snapshot for one day. The current
// day's row is the only one ever rewritten.
func (r *analyticsRepo) UpsertCategoryDay(ctx context.Context, row *models.CategoryAnalytics) error {
	query := `
		INSERT INTO category_analytics (id, category_id, date, total_products, total_orders, total_revenue,
		                                total_reviews, total_shops, products_with_sales, shops_with_sales,
		                                avg_rating, gini, hhi, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (category_id, date) DO UPDATE SET
			total_products = EXCLUDED.total_products,
			total_orders = EXCLUDED.total_orders,
			total_revenue = EXCLUDED.total_revenue,
			total_reviews = EXCLUDED.total_reviews,
			total_shops = EXCLUDED.total_shops,
			products_with_sales = EXCLUDED.products_with_sales,
			shops_with_sales = EXCLUDED.shops_with_sales,
			avg_rating = EXCLUDED.avg_rating,
			gini = COALESCE(EXCLUDED.gini, category_analytics.gini),
			hhi = COALESCE(EXCLUDED.hhi, category_analytics.hhi)
	`
	_, err := r.db.Exec(ctx, query, row.ID, row.CategoryID, row.Date, row.TotalProducts, row.TotalOrders,
		row.TotalRevenue, row.TotalReviews, row.TotalShops, row.ProductsWithSales, row.ShopsWithSales,
		row.AvgRating, row.Gini, row.HHI)
	return err
}

func (r *analyticsRepo) LatestProduct(ctx context.Context, productIDs []int64) (map[int64]*LatestProductStats, error) {
	query := `
		SELECT DISTINCT ON (product_id) product_id, date, orders_amount, orders_money
		FROM product_analytics
		WHERE product_id = ANY($1)
		ORDER BY product_id, date DESC, created_at DESC
	`
	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[int64]*LatestProductStats, len(productIDs))
	for rows.Next() {
		s := &LatestProductStats{}
		if err := rows.Scan(&s.ProductID, &s.Date, &s.OrdersAmount, &s.OrdersMoney); err != nil {
			return nil, err
		}
		stats[s.ProductID] = s
	}
	return stats, rows.Err()
}

func (r *analyticsRepo) ShopIDsSnapshotted(ctx context.Context, date time.Time) (map[int64]bool, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT shop_id FROM shop_analytics WHERE date = $1`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *analyticsRepo) ProductRange(ctx context.Context, productID int64, from, to time.Time) ([]*models.ProductAnalytics, error) {
	query := `
		SELECT id, product_id, date, orders_amount, real_orders_amount, reviews_amount, rating,
		       available_amount, orders_money, daily_revenue,
		       position_total, position_in_category, position_in_shop, badge_ids, campaign_ids, created_at
		FROM product_analytics
		WHERE product_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`
	rows, err := r.db.Query(ctx, query, productID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.ProductAnalytics
	for rows.Next() {
		a := &models.ProductAnalytics{}
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Date, &a.OrdersAmount, &a.RealOrdersAmount, &a.ReviewsAmount,
			&a.Rating, &a.AvailableAmount, &a.OrdersMoney, &a.DailyRevenue,
			&a.PositionTotal, &a.PositionInCategory, &a.PositionInShop, &a.BadgeIDs, &a.CampaignIDs, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *analyticsRepo) ShopRange(ctx context.Context, shopID int64, from, to time.Time) ([]*models.ShopAnalytics, error) {
	query := `
		SELECT id, shop_id, date, total_products, total_orders, total_reviews, monthly_orders, rating, created_at
		FROM shop_analytics
		WHERE shop_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`
	rows, err := r.db.Query(ctx, query, shopID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.ShopAnalytics
	for rows.Next() {
		a := &models.ShopAnalytics{}
		if err := rows.Scan(&a.ID, &a.ShopID, &a.Date, &a.TotalProducts, &a.TotalOrders, &a.TotalReviews,
			&a.MonthlyOrders, &a.Rating, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *analyticsRepo) CategoryRange(ctx context.Context, categoryID int64, from, to time.Time) ([]*models.CategoryAnalytics, error) {
	return r.categoryRows(ctx, `
		SELECT id, category_id, date, total_products, total_orders, total_revenue, total_reviews, total_shops,
		       products_with_sales, shops_with_sales, avg_rating, gini, hhi, created_at
		FROM category_analytics
		WHERE category_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`, categoryID, from, to)
}

func (r *analyticsRepo) CategoryRowsForRange(ctx context.Context, from, to time.Time) ([]*models.CategoryAnalytics, error) {
	return r.categoryRows(ctx, `
		SELECT id, category_id, date, total_products, total_orders, total_revenue, total_reviews, total_shops,
		       products_with_sales, shops_with_sales, avg_rating, gini, hhi, created_at
		FROM category_analytics
		WHERE date >= $1 AND date <= $2
		ORDER BY category_id, date
	`, from, to)
}

func (r *analyticsRepo) categoryRows(ctx context.Context, query string, args ...any) ([]*models.CategoryAnalytics, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.CategoryAnalytics
	for rows.Next() {
		a := &models.CategoryAnalytics{}
		if err := rows.Scan(&a.ID, &a.CategoryID, &a.Date, &a.TotalProducts, &a.TotalOrders, &a.TotalRevenue,
			&a.TotalReviews, &a.TotalShops, &a.ProductsWithSales, &a.ShopsWithSales, &a.AvgRating,
			&a.Gini, &a.HHI, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// CleanupDuplicates enforces the one-snapshot-per-entity-per-day invariant for
// a given day: the most-recently-created row wins, the rest are deleted. This
// is a corrective pass for upstream fetch races, not steady-state behavior.
func (r *analyticsRepo) CleanupDuplicates(ctx context.Context, date time.Time) (int64, error) {
	statements := []string{
		`DELETE FROM product_analytics a USING product_analytics b
		 WHERE a.date = $1 AND b.date = $1 AND a.product_id = b.product_id
		   AND (a.created_at < b.created_at OR (a.created_at = b.created_at AND a.id < b.id))`,
		`DELETE FROM sku_analytics a USING sku_analytics b
		 WHERE a.date = $1 AND b.date = $1 AND a.sku_id = b.sku_id
		   AND (a.created_at < b.created_at OR (a.created_at = b.created_at AND a.id < b.id))`,
		`DELETE FROM shop_analytics a USING shop_analytics b
		 WHERE a.date = $1 AND b.date = $1 AND a.shop_id = b.shop_id
		   AND (a.created_at < b.created_at OR (a.created_at = b.created_at AND a.id < b.id))`,
		`DELETE FROM category_analytics a USING category_analytics b
		 WHERE a.date = $1 AND b.date = $1 AND a.category_id = b.category_id
		   AND (a.created_at < b.created_at OR (a.created_at = b.created_at AND a.id < b.id))`,
	}

	var deleted int64
	for _, stmt := range statements {
		ct, err := r.db.Exec(ctx, stmt, date)
		if err != nil {
			return deleted, err
		}
		deleted += ct.RowsAffected()
	}
	return deleted, nil
}
