package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSalesTracker_DistinctAcrossCategories(t *testing.T) {
	tracker := NewSalesTracker()

	// Category 10 sees products {1, 2}; category 11 sees {2, 3}.
	tracker.Record(10, 1, 100)
	tracker.Record(10, 2, 100)
	tracker.Record(11, 2, 101)
	tracker.Record(11, 3, 101)

	products, shops := tracker.DistinctCounts([]int64{10, 11})
	assert.Equal(t, int64(3), products)
	assert.Equal(t, int64(2), shops)
}

func TestSalesTracker_SingleCategory(t *testing.T) {
	tracker := NewSalesTracker()
	tracker.Record(10, 1, 100)
	tracker.Record(10, 1, 100) // duplicate record, same product

	products, shops := tracker.DistinctCounts([]int64{10})
	assert.Equal(t, int64(1), products)
	assert.Equal(t, int64(1), shops)
}

func TestSalesTracker_UnknownCategory(t *testing.T) {
	tracker := NewSalesTracker()
	products, shops := tracker.DistinctCounts([]int64{99})
	assert.Zero(t, products)
	assert.Zero(t, shops)
}
