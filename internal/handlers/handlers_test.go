package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketscan/internal/models"
	"marketscan/internal/repositories"
	"marketscan/internal/treecache"
)

// fakeCache is an in-memory stand-in for the Redis cache.
type fakeCache struct {
	trees     map[string]any
	analytics map[string][]byte
}

func (f *fakeCache) SetTree(_ context.Context, window string, payload any, _ time.Duration) error {
	if f.trees == nil {
		f.trees = make(map[string]any)
	}
	f.trees[window] = payload
	return nil
}

func (f *fakeCache) GetTree(_ context.Context, window string, out any) (bool, error) {
	payload, ok := f.trees[window]
	if !ok {
		return false, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, out)
}

func (f *fakeCache) GetAnalytics(_ context.Context, kind string, id int64) ([]byte, error) {
	return f.analytics[kind], nil
}

func (f *fakeCache) SetAnalytics(_ context.Context, kind string, _ int64, payload any, _ time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if f.analytics == nil {
		f.analytics = make(map[string][]byte)
	}
	f.analytics[kind] = data
	return nil
}

func (f *fakeCache) InvalidateAnalytics(context.Context) error { return nil }
func (f *fakeCache) SetString(context.Context, string, string, time.Duration) error {
	return nil
}
func (f *fakeCache) GetString(context.Context, string) (string, error) { return "", nil }
func (f *fakeCache) Delete(context.Context, string) error              { return nil }

// stubAnalyticsRepo returns canned ranges.
type stubAnalyticsRepo struct {
	repositories.AnalyticsRepository
	productRows []*models.ProductAnalytics
}

func (s *stubAnalyticsRepo) ProductRange(_ context.Context, _ int64, _, _ time.Time) ([]*models.ProductAnalytics, error) {
	return s.productRows, nil
}

func TestGetProductAnalytics_InvalidID(t *testing.T) {
	h := NewAnalyticsHandlers(&stubAnalyticsRepo{}, nil, &fakeCache{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-number")

	err := h.GetProductAnalytics(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestGetProductAnalytics_BadDateRange(t *testing.T) {
	h := NewAnalyticsHandlers(&stubAnalyticsRepo{}, nil, &fakeCache{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-05-10&to=2026-05-01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")

	err := h.GetProductAnalytics(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestGetProductAnalytics_ReturnsRows(t *testing.T) {
	repo := &stubAnalyticsRepo{productRows: []*models.ProductAnalytics{
		{ProductID: 42, OrdersAmount: 10},
	}}
	h := NewAnalyticsHandlers(repo, nil, &fakeCache{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")

	require.NoError(t, h.GetProductAnalytics(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["total"])
}

func TestGetCategoryTree_MissReturns404(t *testing.T) {
	builder := treecache.NewBuilder(nil, nil, &fakeCache{})
	h := NewCategoryHandlers(builder)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetCategoryTree(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestGetCategoryTree_ServedFromCache(t *testing.T) {
	cache := &fakeCache{}
	require.NoError(t, cache.SetTree(context.Background(), "day",
		&treecache.Tree{Date: "2026-05-01", Window: "day", Roots: []*treecache.Node{{ID: 1, Title: "Home"}}}, time.Hour))

	builder := treecache.NewBuilder(nil, nil, cache)
	h := NewCategoryHandlers(builder)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.GetCategoryTree(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	tree := &treecache.Tree{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), tree))
	assert.Equal(t, "2026-05-01", tree.Date)
	assert.Equal(t, "day", tree.Window)
	require.Len(t, tree.Roots, 1)
	assert.Equal(t, int64(1), tree.Roots[0].ID)
}

func TestGetCategoryTree_WindowSelectsVariant(t *testing.T) {
	cache := &fakeCache{}
	require.NoError(t, cache.SetTree(context.Background(), "day",
		&treecache.Tree{Date: "2026-05-01", Window: "day"}, time.Hour))
	require.NoError(t, cache.SetTree(context.Background(), "month",
		&treecache.Tree{Date: "2026-05-01", Window: "month"}, time.Hour))

	h := NewCategoryHandlers(treecache.NewBuilder(nil, nil, cache))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?window=month", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.GetCategoryTree(e.NewContext(req, rec)))

	tree := &treecache.Tree{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), tree))
	assert.Equal(t, "month", tree.Window)

	// week was never materialized: miss, not a fallback to another window
	req = httptest.NewRequest(http.MethodGet, "/?window=week", nil)
	err := h.GetCategoryTree(e.NewContext(req, httptest.NewRecorder()))
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)

	req = httptest.NewRequest(http.MethodGet, "/?window=year", nil)
	err = h.GetCategoryTree(e.NewContext(req, httptest.NewRecorder()))
	require.Error(t, err)
	httpErr, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
