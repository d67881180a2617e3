package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"marketscan/internal/caching"
	"marketscan/internal/models"
	"marketscan/internal/repositories"
	"marketscan/internal/rollup"
)

// AnalyticsHandlers serves the read API over the snapshot history.
type AnalyticsHandlers struct {
	analytics repositories.AnalyticsRepository
	engine    *rollup.Engine
	cache     caching.CacheService
}

func NewAnalyticsHandlers(analytics repositories.AnalyticsRepository, engine *rollup.Engine,
	cache caching.CacheService) *AnalyticsHandlers {
	return &AnalyticsHandlers{analytics: analytics, engine: engine, cache: cache}
}

const analyticsCacheTTL = 15 * time.Minute

func parseRange(c echo.Context) (int64, time.Time, time.Time, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	to := models.Day(time.Now())
	from := to.AddDate(0, 0, -30)
	if v := c.QueryParam("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return 0, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		from = parsed
	}
	if v := c.QueryParam("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return 0, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		to = parsed
	}
	if to.Before(from) {
		return 0, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "to before from")
	}
	return id, from, to, nil
}

// GetProductAnalytics returns a product's snapshot history for a date range.
func (h *AnalyticsHandlers) GetProductAnalytics(c echo.Context) error {
	ctx := c.Request().Context()
	id, from, to, err := parseRange(c)
	if err != nil {
		return err
	}

	rows, err := h.analytics.ProductRange(ctx, id, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve product analytics")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  rows,
		"total": len(rows),
	})
}

// GetShopAnalytics returns a shop's snapshot history for a date range.
func (h *AnalyticsHandlers) GetShopAnalytics(c echo.Context) error {
	ctx := c.Request().Context()
	id, from, to, err := parseRange(c)
	if err != nil {
		return err
	}

	rows, err := h.analytics.ShopRange(ctx, id, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve shop analytics")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  rows,
		"total": len(rows),
	})
}

// GetCategoryAnalytics returns a category's snapshot history for a date
// range, served from cache when the identical default query repeats.
func (h *AnalyticsHandlers) GetCategoryAnalytics(c echo.Context) error {
	ctx := c.Request().Context()
	id, from, to, err := parseRange(c)
	if err != nil {
		return err
	}

	cacheable := c.QueryParam("from") == "" && c.QueryParam("to") == ""
	if cacheable {
		if data, err := h.cache.GetAnalytics(ctx, "category", id); err == nil && data != nil {
			return c.JSONBlob(http.StatusOK, data)
		}
	}

	rows, err := h.analytics.CategoryRange(ctx, id, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve category analytics")
	}
	response := map[string]interface{}{
		"data":  rows,
		"total": len(rows),
	}
	if cacheable {
		if err := h.cache.SetAnalytics(ctx, "category", id, response, analyticsCacheTTL); err != nil {
			c.Logger().Warnf("caching category analytics: %v", err)
		}
	}
	return c.JSON(http.StatusOK, response)
}

// GetSegmentation returns the day's price segments, marketplace-wide or
// scoped to a category via ?category_id=.
func (h *AnalyticsHandlers) GetSegmentation(c echo.Context) error {
	ctx := c.Request().Context()

	bins := 10
	if v := c.QueryParam("bins"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid bins")
		}
		bins = parsed
	}

	var categoryIDs []int64
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
		}
		categoryIDs = []int64{id}
	}

	segments, err := h.engine.Segmentation(ctx, time.Now(), categoryIDs, bins)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute segmentation")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  segments,
		"total": len(segments),
	})
}
