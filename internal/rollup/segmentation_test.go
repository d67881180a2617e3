package rollup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketscan/internal/repositories"
)

func priceRow(productID, shopID, price, orders, money int64, rating float64) repositories.PriceRow {
	return repositories.PriceRow{
		ProductID:    productID,
		ShopID:       shopID,
		AvgPrice:     price,
		OrdersAmount: orders,
		OrdersMoney:  money,
		Rating:       rating,
	}
}

func TestSegmentByPrice_Empty(t *testing.T) {
	assert.Nil(t, SegmentByPrice(nil, 5))
	assert.Nil(t, SegmentByPrice([]repositories.PriceRow{priceRow(1, 1, 100, 0, 0, 0)}, 0))
}

func TestSegmentByPrice_BinsCappedAtDistinctPrices(t *testing.T) {
	rows := []repositories.PriceRow{
		priceRow(1, 1, 5000, 10, 100, 4.5),
		priceRow(2, 1, 5000, 20, 200, 4.0),
		priceRow(3, 2, 9000, 5, 50, 0),
	}
	segments := SegmentByPrice(rows, 10)
	assert.Len(t, segments, 2)
}

func TestSegmentByPrice_EqualPopulationWithRemainder(t *testing.T) {
	rows := []repositories.PriceRow{
		priceRow(1, 1, 1000, 1, 10, 0),
		priceRow(2, 1, 2000, 2, 20, 0),
		priceRow(3, 2, 3000, 3, 30, 0),
		priceRow(4, 2, 4000, 4, 40, 0),
		priceRow(5, 3, 5000, 5, 50, 0),
		priceRow(6, 3, 6000, 6, 60, 0),
		priceRow(7, 4, 7000, 7, 70, 0),
	}
	segments := SegmentByPrice(rows, 3)
	require.Len(t, segments, 3)

	// 7 rows over 3 bins: sizes 3, 2, 2 with the remainder up front.
	assert.Equal(t, int64(3), segments[0].ProductsCount)
	assert.Equal(t, int64(2), segments[1].ProductsCount)
	assert.Equal(t, int64(2), segments[2].ProductsCount)

	// Bins follow price order.
	assert.Equal(t, int64(1000), segments[0].MinPrice)
	assert.Equal(t, int64(3000), segments[0].MaxPrice)
	assert.Equal(t, int64(7000), segments[2].MaxPrice)
}

func TestSegmentByPrice_EdgesRoundedToNearestThousand(t *testing.T) {
	rows := []repositories.PriceRow{
		priceRow(1, 1, 1499, 0, 0, 0),
		priceRow(2, 1, 2701, 0, 0, 0),
	}
	segments := SegmentByPrice(rows, 1)
	require.Len(t, segments, 1)
	assert.Equal(t, int64(1000), segments[0].MinPrice)
	assert.Equal(t, int64(3000), segments[0].MaxPrice)

	// Rounding is to nearest, not floor/ceil.
	rows = []repositories.PriceRow{
		priceRow(3, 1, 1501, 0, 0, 0),
		priceRow(4, 1, 2499, 0, 0, 0),
	}
	segments = SegmentByPrice(rows, 1)
	require.Len(t, segments, 1)
	assert.Equal(t, int64(2000), segments[0].MinPrice)
	assert.Equal(t, int64(2000), segments[0].MaxPrice)
}

func TestSegmentByPrice_Aggregates(t *testing.T) {
	rows := []repositories.PriceRow{
		priceRow(1, 1, 1000, 10, 500, 4.0),
		priceRow(2, 1, 2000, 20, 700, 0), // unrated, excluded from avg
		priceRow(3, 2, 3000, 30, 800, 5.0),
	}
	segments := SegmentByPrice(rows, 1)
	require.Len(t, segments, 1)

	seg := segments[0]
	assert.Equal(t, int64(3), seg.ProductsCount)
	assert.Equal(t, int64(60), seg.OrdersAmount)
	assert.Equal(t, int64(2000), seg.Revenue)
	assert.Equal(t, int64(2), seg.ShopsCount)
	assert.InDelta(t, 4.5, seg.AvgRating, 1e-9)
}
