package rollup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGini_NoShops(t *testing.T) {
	assert.Nil(t, Gini(nil))
	assert.Nil(t, Gini([]int64{}))
}

func TestGini_NoOrders(t *testing.T) {
	assert.Nil(t, Gini([]int64{0, 0, 0}))
}

func TestGini_SingleShop(t *testing.T) {
	g := Gini([]int64{500})
	require.NotNil(t, g)
	assert.Zero(t, *g)
}

func TestGini_PerfectEquality(t *testing.T) {
	g := Gini([]int64{100, 100, 100, 100})
	require.NotNil(t, g)
	assert.InDelta(t, 0, *g, 1e-9)
}

func TestGini_HighConcentration(t *testing.T) {
	// One shop dominates: coefficient approaches (n-1)/n.
	g := Gini([]int64{0, 0, 0, 1000})
	require.NotNil(t, g)
	assert.InDelta(t, 0.75, *g, 1e-9)
}

func TestHHI_Undefined(t *testing.T) {
	assert.Nil(t, HHI(nil))
	assert.Nil(t, HHI([]int64{0, 0}))
}

func TestHHI_Monopoly(t *testing.T) {
	h := HHI([]int64{1000})
	require.NotNil(t, h)
	assert.InDelta(t, 10000, *h, 1e-9)
}

func TestHHI_EqualShares(t *testing.T) {
	// Four equal shops: 4 * 25^2 = 2500.
	h := HHI([]int64{50, 50, 50, 50})
	require.NotNil(t, h)
	assert.InDelta(t, 2500, *h, 1e-9)
}
