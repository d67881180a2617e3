package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"marketscan/internal/treecache"
)

// CategoryHandlers serves the materialized category tree.
type CategoryHandlers struct {
	tree *treecache.Builder
}

func NewCategoryHandlers(tree *treecache.Builder) *CategoryHandlers {
	return &CategoryHandlers{tree: tree}
}

// GetCategoryTree returns the cached metric-annotated tree for the requested
// aggregation window (day, week or month; day by default). 404 when no tree
// has been materialized within the TTL window.
func (h *CategoryHandlers) GetCategoryTree(c echo.Context) error {
	ctx := c.Request().Context()

	window := c.QueryParam("window")
	if window == "" {
		window = "day"
	}
	if _, ok := treecache.WindowByName(window); !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown window, expected day, week or month")
	}

	tree, err := h.tree.Cached(ctx, window)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve category tree")
	}
	if tree == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Category tree not materialized yet")
	}
	return c.JSON(http.StatusOK, tree)
}
