package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketscan/internal/marketapi"
	"marketscan/internal/models"
	"marketscan/internal/repositories"
)

func TestComputeOrdersMoney_AccumulatesDelta(t *testing.T) {
	// 20 new orders at an average price of 2000 minor units on top of 500
	// accumulated revenue.
	money := ComputeOrdersMoney(500, 100, 120, 2000)
	assert.Equal(t, int64(900), money)
}

func TestComputeOrdersMoney_RegressedCounterIgnored(t *testing.T) {
	money := ComputeOrdersMoney(500, 120, 100, 2000)
	assert.Equal(t, int64(500), money)
}

func TestComputeOrdersMoney_NoPreviousSnapshot(t *testing.T) {
	money := ComputeOrdersMoney(0, 0, 50, 1000)
	assert.Equal(t, int64(500), money)
}

func TestAverageSkuPrice(t *testing.T) {
	skus := []marketapi.SkuPayload{
		{PurchasePrice: 1000},
		{PurchasePrice: 3000},
	}
	assert.Equal(t, int64(2000), AverageSkuPrice(skus))
	assert.Zero(t, AverageSkuPrice(nil))
}

func TestFlattenSkuCharacteristics(t *testing.T) {
	schema := []marketapi.PayloadCharacteristic{
		{Title: "Color", Values: []struct {
			Title string `json:"title"`
			Value string `json:"value"`
		}{{Title: "Red", Value: "red"}, {Title: "Blue", Value: "blue"}}},
		{Title: "Size", Values: []struct {
			Title string `json:"title"`
			Value string `json:"value"`
		}{{Title: "Large", Value: "L"}}},
	}

	pairs := FlattenSkuCharacteristics(schema, []marketapi.SkuCharacteristicIndex{
		{CharIndex: 0, ValueIndex: 1},
		{CharIndex: 1, ValueIndex: 0},
	})
	require.Len(t, pairs, 2)
	assert.Equal(t, CharPair{Title: "Color", Value: "blue"}, pairs[0])
	assert.Equal(t, CharPair{Title: "Size", Value: "L"}, pairs[1])
}

// orderedCalls records repository operations so tests can assert the
// persist phase ordering.
type orderedCalls struct {
	ops []string
}

func (o *orderedCalls) record(op string) { o.ops = append(o.ops, op) }

func (o *orderedCalls) indexOf(op string) int {
	for i, v := range o.ops {
		if v == op {
			return i
		}
	}
	return -1
}

type logProductRepo struct {
	repositories.ProductRepository
	calls *orderedCalls
}

func (r *logProductRepo) Update(context.Context, *models.Product) error {
	r.calls.record("products.update")
	return nil
}

func (r *logProductRepo) BulkInsert(_ context.Context, products []*models.Product) (int, int, error) {
	r.calls.record("products.bulkinsert")
	return len(products), 0, nil
}

type logShopRepo struct {
	repositories.ShopRepository
	calls *orderedCalls
}

func (r *logShopRepo) Update(context.Context, *models.Shop) error {
	r.calls.record("shops.update")
	return nil
}

func (r *logShopRepo) BulkInsert(_ context.Context, shops []*models.Shop) (int, int, error) {
	r.calls.record("shops.bulkinsert")
	return len(shops), 0, nil
}

type logSkuRepo struct {
	repositories.SkuRepository
	calls *orderedCalls
}

func (r *logSkuRepo) Update(context.Context, *models.Sku) error {
	r.calls.record("skus.update")
	return nil
}

func (r *logSkuRepo) BulkInsert(_ context.Context, skus []*models.Sku) (int, int, error) {
	r.calls.record("skus.bulkinsert")
	return len(skus), 0, nil
}

type logAnalyticsRepo struct {
	repositories.AnalyticsRepository
}

func (r *logAnalyticsRepo) BulkInsertProduct(_ context.Context, rows []*models.ProductAnalytics) (int, int, error) {
	return len(rows), 0, nil
}

func (r *logAnalyticsRepo) BulkInsertSku(_ context.Context, rows []*models.SkuAnalytics) (int, int, error) {
	return len(rows), 0, nil
}

func (r *logAnalyticsRepo) BulkInsertShop(_ context.Context, rows []*models.ShopAnalytics) (int, int, error) {
	return len(rows), 0, nil
}

func TestReconcile_ProductMovedToUnseenShop(t *testing.T) {
	calls := &orderedCalls{}
	products := &logProductRepo{calls: calls}
	shops := &logShopRepo{calls: calls}
	skus := &logSkuRepo{calls: calls}

	categories := newMemCategoryRepo()
	require.NoError(t, categories.Upsert(context.Background(), &models.Category{ID: 1, Title: "Home"}))
	catalog := NewCatalogService(nil, categories, &noopAnalyticsRepo{}, 10000)

	svc := NewReconcileService(nil, catalog, products, shops, skus, nil, &logAnalyticsRepo{}, nil, 100)
	svc.settleDelay = 0

	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	existing := &models.Product{
		ID: 42, Title: "Lamp", ShopID: 7, CategoryID: 1,
		Attributes: "null", Characteristics: "null", Photos: "null",
	}
	state := &runState{
		date:             date,
		existingProducts: map[int64]*models.Product{42: existing},
		latest:           map[int64]*repositories.LatestProductStats{},
		existingSkus:     map[int64]*models.Sku{},
		shopsByID:        map[int64]*models.Shop{},
		shopSnapshotted:  map[int64]bool{},
		knownBadges:      map[int64]bool{},
	}

	payload := &marketapi.ProductPayload{ID: 42, Title: "Lamp"}
	payload.Category.ID = 1
	payload.Category.Title = "Home"
	payload.Seller = marketapi.SellerPayload{ID: 9, Title: "New seller"}

	require.NoError(t, svc.reconcileOne(context.Background(), state, payload, models.NewSalesTracker()))

	// The dirty product is staged, not written while its shop only exists
	// in the insert queue.
	assert.Equal(t, -1, calls.indexOf("products.update"))
	require.Len(t, state.updatedProducts, 1)
	assert.Equal(t, int64(9), existing.ShopID)
	require.Len(t, state.newShops, 1)
	assert.Equal(t, int64(9), state.newShops[0].ID)

	require.NoError(t, svc.persist(context.Background(), state))

	shopsAt := calls.indexOf("shops.bulkinsert")
	updateAt := calls.indexOf("products.update")
	require.GreaterOrEqual(t, shopsAt, 0)
	require.GreaterOrEqual(t, updateAt, 0)
	assert.Less(t, shopsAt, updateAt)
}

func TestFlattenSkuCharacteristics_OutOfRangeSkipped(t *testing.T) {
	schema := []marketapi.PayloadCharacteristic{{Title: "Color"}}
	pairs := FlattenSkuCharacteristics(schema, []marketapi.SkuCharacteristicIndex{
		{CharIndex: 5, ValueIndex: 0},
		{CharIndex: 0, ValueIndex: 3},
	})
	assert.Empty(t, pairs)
}
