package repositories

import (
	"context"
	"fmt"
	"time"
)

// CategoryDayTotals aggregates one day of product snapshots across a category
// subtree (the caller supplies the category plus its descendants).
type CategoryDayTotals struct {
	TotalProducts int64
	TotalOrders   int64
	TotalRevenue  int64
	TotalReviews  int64
	TotalShops    int64
	AvgRating     float64
}

// PriceRow feeds price segmentation: one product's average purchase price for
// the day plus the metrics aggregated per bin.
type PriceRow struct {
	ProductID    int64
	ShopID       int64
	AvgPrice     int64
	OrdersAmount int64
	OrdersMoney  int64
	Rating       float64
}

type RollupRepository interface {
	VacuumAnalytics(ctx context.Context) error
	RollupSkuSales(ctx context.Context, date time.Time) (int64, error)
	RollupProductDaily(ctx context.Context, date time.Time) (int64, error)
	RefreshProductWindows(ctx context.Context, date time.Time, periodDays int) error
	RefreshShopWindows(ctx context.Context, date time.Time, periodDays int) error
	UpdateShopMonthlyOrders(ctx context.Context, date time.Time) error
	RankProducts(ctx context.Context, date time.Time) (int64, error)
	CategoryDayTotals(ctx context.Context, date time.Time, categoryIDs []int64) (*CategoryDayTotals, error)
	ShopOrderTotals(ctx context.Context, date time.Time, categoryIDs []int64) ([]int64, error)
	PriceRows(ctx context.Context, date time.Time, categoryIDs []int64) ([]PriceRow, error)
}

type rollupRepo struct {
	db DB
}

func NewRollupRepository(db DB) RollupRepository {
	return &rollupRepo{db: db}
}

// VacuumAnalytics reclaims storage and refreshes planner statistics on the
// analytics tables before the heavy aggregation stages.
func (r *rollupRepo) VacuumAnalytics(ctx context.Context) error {
	for _, table := range []string{"product_analytics", "sku_analytics", "shop_analytics", "category_analytics"} {
		if _, err := r.db.Exec(ctx, fmt.Sprintf("VACUUM ANALYZE %s", table)); err != nil {
			return fmt.Errorf("vacuum %s: %w", table, err)
		}
	}
	return nil
}

// RollupSkuSales infers per-SKU sales from stock depletion against the prior
// day. Availability increases (restocks) clamp to zero sold units; the
// restock itself is not tracked.
func (r *rollupRepo) RollupSkuSales(ctx context.Context, date time.Time) (int64, error) {
	query := `
		UPDATE sku_analytics cur SET
			orders_amount = GREATEST(prev.available_amount - cur.available_amount, 0),
			orders_money  = GREATEST(prev.available_amount - cur.available_amount, 0) * cur.purchase_price
		FROM sku_analytics prev
		WHERE cur.date = $1
		  AND prev.sku_id = cur.sku_id
		  AND prev.date = $1::date - INTERVAL '1 day'
	`
	ct, err := r.db.Exec(ctx, query, date)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// RollupProductDaily cross-checks the day's product counters against the
// SKU-derived figures: real orders and daily revenue are summed up from the
// constituent SKU snapshots.
func (r *rollupRepo) RollupProductDaily(ctx context.Context, date time.Time) (int64, error) {
	query := `
		UPDATE product_analytics pa SET
			real_orders_amount = s.orders,
			daily_revenue = s.money
		FROM (
			SELECT sk.product_id,
			       COALESCE(SUM(sa.orders_amount), 0) AS orders,
			       COALESCE(SUM(sa.orders_money), 0) AS money
			FROM sku_analytics sa
			JOIN skus sk ON sk.id = sa.sku_id
			WHERE sa.date = $1
			GROUP BY sk.product_id
		) s
		WHERE pa.product_id = s.product_id AND pa.date = $1
	`
	ct, err := r.db.Exec(ctx, query, date)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *rollupRepo) RefreshProductWindows(ctx context.Context, date time.Time, periodDays int) error {
	query := `
		INSERT INTO product_analytics_windows (product_id, date, period_days, orders_amount, revenue)
		SELECT product_id, $1::date, $2,
		       COALESCE(SUM(real_orders_amount), 0),
		       COALESCE(SUM(daily_revenue), 0)
		FROM product_analytics
		WHERE date > $1::date - make_interval(days => $2) AND date <= $1
		GROUP BY product_id
		ON CONFLICT (product_id, date, period_days) DO UPDATE SET
			orders_amount = EXCLUDED.orders_amount,
			revenue = EXCLUDED.revenue
	`
	_, err := r.db.Exec(ctx, query, date, periodDays)
	return err
}

func (r *rollupRepo) RefreshShopWindows(ctx context.Context, date time.Time, periodDays int) error {
	query := `
		INSERT INTO shop_analytics_windows (shop_id, date, period_days, orders_amount, revenue)
		SELECT p.shop_id, $1::date, $2,
		       COALESCE(SUM(pa.real_orders_amount), 0),
		       COALESCE(SUM(pa.daily_revenue), 0)
		FROM product_analytics pa
		JOIN products p ON p.id = pa.product_id
		WHERE pa.date > $1::date - make_interval(days => $2) AND pa.date <= $1
		GROUP BY p.shop_id
		ON CONFLICT (shop_id, date, period_days) DO UPDATE SET
			orders_amount = EXCLUDED.orders_amount,
			revenue = EXCLUDED.revenue
	`
	_, err := r.db.Exec(ctx, query, date, periodDays)
	return err
}

// UpdateShopMonthlyOrders sets the 30-day-ago-vs-today transaction delta on
// today's shop snapshots.
func (r *rollupRepo) UpdateShopMonthlyOrders(ctx context.Context, date time.Time) error {
	query := `
		UPDATE shop_analytics cur SET
			monthly_orders = GREATEST(cur.total_orders - old.total_orders, 0)
		FROM shop_analytics old
		WHERE cur.date = $1
		  AND old.shop_id = cur.shop_id
		  AND old.date = $1::date - INTERVAL '30 days'
	`
	_, err := r.db.Exec(ctx, query, date)
	return err
}

// RankProducts assigns positions within the day's snapshot by orders
// descending, partitioned globally, per category, and per shop. Ties share a
// position; the next distinct value resumes at row-count+1.
func (r *rollupRepo) RankProducts(ctx context.Context, date time.Time) (int64, error) {
	query := `
		WITH ranked AS (
			SELECT pa.id,
			       RANK() OVER (ORDER BY pa.orders_amount DESC) AS r_total,
			       RANK() OVER (PARTITION BY p.category_id ORDER BY pa.orders_amount DESC) AS r_category,
			       RANK() OVER (PARTITION BY p.shop_id ORDER BY pa.orders_amount DESC) AS r_shop
			FROM product_analytics pa
			JOIN products p ON p.id = pa.product_id
			WHERE pa.date = $1
		)
		UPDATE product_analytics pa SET
			position_total = ranked.r_total,
			position_in_category = ranked.r_category,
			position_in_shop = ranked.r_shop
		FROM ranked
		WHERE pa.id = ranked.id
	`
	ct, err := r.db.Exec(ctx, query, date)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *rollupRepo) CategoryDayTotals(ctx context.Context, date time.Time, categoryIDs []int64) (*CategoryDayTotals, error) {
	totals := &CategoryDayTotals{}
	query := `
		SELECT COUNT(DISTINCT pa.product_id),
		       COALESCE(SUM(pa.orders_amount), 0),
		       COALESCE(SUM(pa.orders_money), 0),
		       COALESCE(SUM(pa.reviews_amount), 0),
		       COUNT(DISTINCT p.shop_id),
		       COALESCE(AVG(pa.rating) FILTER (WHERE pa.rating > 0), 0)
		FROM product_analytics pa
		JOIN products p ON p.id = pa.product_id
		WHERE pa.date = $1 AND p.category_id = ANY($2)
	`
	err := r.db.QueryRow(ctx, query, date, categoryIDs).Scan(&totals.TotalProducts, &totals.TotalOrders,
		&totals.TotalRevenue, &totals.TotalReviews, &totals.TotalShops, &totals.AvgRating)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *rollupRepo) ShopOrderTotals(ctx context.Context, date time.Time, categoryIDs []int64) ([]int64, error) {
	query := `
		SELECT COALESCE(SUM(pa.orders_amount), 0)
		FROM product_analytics pa
		JOIN products p ON p.id = pa.product_id
		WHERE pa.date = $1 AND p.category_id = ANY($2)
		GROUP BY p.shop_id
	`
	rows, err := r.db.Query(ctx, query, date, categoryIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []int64
	for rows.Next() {
		var total int64
		if err := rows.Scan(&total); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

func (r *rollupRepo) PriceRows(ctx context.Context, date time.Time, categoryIDs []int64) ([]PriceRow, error) {
	query := `
		SELECT pa.product_id, p.shop_id,
		       COALESCE(AVG(sa.purchase_price), 0)::bigint,
		       pa.orders_amount, pa.orders_money, pa.rating
		FROM product_analytics pa
		JOIN products p ON p.id = pa.product_id
		LEFT JOIN skus sk ON sk.product_id = pa.product_id
		LEFT JOIN sku_analytics sa ON sa.sku_id = sk.id AND sa.date = pa.date
		WHERE pa.date = $1 AND ($2::bigint[] IS NULL OR p.category_id = ANY($2))
		GROUP BY pa.product_id, p.shop_id, pa.orders_amount, pa.orders_money, pa.rating
	`
	var catArg any
	if len(categoryIDs) > 0 {
		catArg = categoryIDs
	}
	rows, err := r.db.Query(ctx, query, date, catArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PriceRow
	for rows.Next() {
		var row PriceRow
		if err := rows.Scan(&row.ProductID, &row.ShopID, &row.AvgPrice, &row.OrdersAmount, &row.OrdersMoney, &row.Rating); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
