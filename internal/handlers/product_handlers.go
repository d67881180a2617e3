package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"marketscan/internal/marketapi"
)

// ProductHandlers serves live upstream lookups that are not worth
// snapshotting: reviews and similar-product lists.
type ProductHandlers struct {
	client *marketapi.Client
}

func NewProductHandlers(client *marketapi.Client) *ProductHandlers {
	return &ProductHandlers{client: client}
}

func productID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// GetReviews proxies the upstream review page for a product.
func (h *ProductHandlers) GetReviews(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	reviews, err := h.client.Reviews(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to fetch reviews")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  reviews,
		"total": len(reviews),
	})
}

// GetSimilar proxies the upstream similar-products list.
func (h *ProductHandlers) GetSimilar(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	items, err := h.client.SimilarItems(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to fetch similar products")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  items,
		"total": len(items),
	})
}
