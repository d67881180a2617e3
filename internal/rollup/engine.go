package rollup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"marketscan/internal/models"
	"marketscan/internal/repositories"
)

// TrailingWindows are the rolling aggregation horizons, in days.
var TrailingWindows = []int{3, 7, 30, 90}

// Engine runs the daily analytics rollup: a fixed sequence of stages, each
// isolated so one failing stage does not starve the rest of the day's data.
type Engine struct {
	rollups    repositories.RollupRepository
	categories repositories.CategoryRepository
	analytics  repositories.AnalyticsRepository
}

func NewEngine(rollups repositories.RollupRepository, categories repositories.CategoryRepository,
	analytics repositories.AnalyticsRepository) *Engine {
	return &Engine{rollups: rollups, categories: categories, analytics: analytics}
}

// Run executes the full rollup for one day. sales carries the reconciliation
// run's sales attribution; a nil tracker leaves the with-sales counters at
// zero. All stage errors are collected and returned joined.
func (e *Engine) Run(ctx context.Context, date time.Time, sales *models.SalesTracker) error {
	date = models.Day(date)
	started := time.Now()

	stages := []struct {
		name string
		run  func(context.Context, time.Time) error
	}{
		{"vacuum", func(ctx context.Context, _ time.Time) error { return e.rollups.VacuumAnalytics(ctx) }},
		{"sku sales", e.stageSkuSales},
		{"product daily", e.stageProductDaily},
		{"product windows", e.stageProductWindows},
		{"shop windows", e.stageShopWindows},
		{"shop monthly orders", e.rollups.UpdateShopMonthlyOrders},
		{"ranking", e.stageRanking},
		{"category rollup", func(ctx context.Context, d time.Time) error { return e.stageCategories(ctx, d, sales) }},
		{"duplicate cleanup", e.stageCleanup},
	}

	var errs []error
	for _, stage := range stages {
		if err := stage.run(ctx, date); err != nil {
			log.Printf("rollup: stage %q failed: %v", stage.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", stage.name, err))
		}
	}

	log.Printf("rollup: finished for %s in %s (%d stage errors)",
		date.Format("2006-01-02"), time.Since(started).Round(time.Second), len(errs))
	return errors.Join(errs...)
}

func (e *Engine) stageSkuSales(ctx context.Context, date time.Time) error {
	updated, err := e.rollups.RollupSkuSales(ctx, date)
	if err != nil {
		return err
	}
	log.Printf("rollup: sku sales derived for %d snapshots", updated)
	return nil
}

func (e *Engine) stageProductDaily(ctx context.Context, date time.Time) error {
	updated, err := e.rollups.RollupProductDaily(ctx, date)
	if err != nil {
		return err
	}
	log.Printf("rollup: product daily figures updated for %d snapshots", updated)
	return nil
}

func (e *Engine) stageProductWindows(ctx context.Context, date time.Time) error {
	for _, days := range TrailingWindows {
		if err := e.rollups.RefreshProductWindows(ctx, date, days); err != nil {
			return fmt.Errorf("%dd window: %w", days, err)
		}
	}
	return nil
}

func (e *Engine) stageShopWindows(ctx context.Context, date time.Time) error {
	for _, days := range TrailingWindows {
		if err := e.rollups.RefreshShopWindows(ctx, date, days); err != nil {
			return fmt.Errorf("%dd window: %w", days, err)
		}
	}
	return nil
}

func (e *Engine) stageRanking(ctx context.Context, date time.Time) error {
	ranked, err := e.rollups.RankProducts(ctx, date)
	if err != nil {
		return err
	}
	log.Printf("rollup: ranked %d product snapshots", ranked)
	return nil
}

// stageCategories aggregates each category's subtree into its daily snapshot:
// raw totals from SQL, dedup'd with-sales counters from the tracker, and
// Gini/HHI over the subtree's shop order distribution.
func (e *Engine) stageCategories(ctx context.Context, date time.Time, sales *models.SalesTracker) error {
	categories, err := e.categories.List(ctx)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}

	var failed int
	for _, category := range categories {
		if err := e.rollupCategory(ctx, date, category, sales); err != nil {
			log.Printf("rollup: category %d failed: %v", category.ID, err)
			failed++
		}
	}
	log.Printf("rollup: %d/%d category snapshots written", len(categories)-failed, len(categories))
	if failed == len(categories) && failed > 0 {
		return fmt.Errorf("all %d categories failed", failed)
	}
	return nil
}

func (e *Engine) rollupCategory(ctx context.Context, date time.Time, category *models.Category, sales *models.SalesTracker) error {
	subtree := category.DescendantIDList()
	if len(subtree) == 0 {
		subtree = []int64{category.ID}
	}

	totals, err := e.rollups.CategoryDayTotals(ctx, date, subtree)
	if err != nil {
		return fmt.Errorf("totals: %w", err)
	}
	shopOrders, err := e.rollups.ShopOrderTotals(ctx, date, subtree)
	if err != nil {
		return fmt.Errorf("shop orders: %w", err)
	}

	snapshot := &models.CategoryAnalytics{
		ID:            uuid.New(),
		CategoryID:    category.ID,
		Date:          date,
		TotalProducts: totals.TotalProducts,
		TotalOrders:   totals.TotalOrders,
		TotalRevenue:  totals.TotalRevenue,
		TotalReviews:  totals.TotalReviews,
		TotalShops:    totals.TotalShops,
		AvgRating:     totals.AvgRating,
		Gini:          Gini(shopOrders),
		HHI:           HHI(shopOrders),
	}
	if sales != nil {
		snapshot.ProductsWithSales, snapshot.ShopsWithSales = sales.DistinctCounts(subtree)
	}
	return e.analytics.UpsertCategoryDay(ctx, snapshot)
}

func (e *Engine) stageCleanup(ctx context.Context, date time.Time) error {
	deleted, err := e.analytics.CleanupDuplicates(ctx, date)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("rollup: removed %d duplicate snapshots", deleted)
	}
	return nil
}

// Segmentation computes the day's price segments for a category subtree, or
// marketplace-wide when categoryIDs is empty.
func (e *Engine) Segmentation(ctx context.Context, date time.Time, categoryIDs []int64, bins int) ([]PriceSegment, error) {
	rows, err := e.rollups.PriceRows(ctx, models.Day(date), categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("loading price rows: %w", err)
	}
	return SegmentByPrice(rows, bins), nil
}
