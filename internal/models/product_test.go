package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProductApply_NoChanges(t *testing.T) {
	p := &Product{ID: 1, Title: "Ceramic mug", Description: "350ml", ShopID: 7, CategoryID: 3}
	in := &Product{ID: 1, Title: "Ceramic mug", Description: "350ml", ShopID: 7, CategoryID: 3}

	changed, fields := p.Apply(in)
	assert.False(t, changed)
	assert.Empty(t, fields)
}

func TestProductApply_TracksChangedFields(t *testing.T) {
	p := &Product{ID: 1, Title: "Ceramic mug", ShopID: 7, CategoryID: 3}
	in := &Product{ID: 1, Title: "Ceramic mug 350ml", ShopID: 7, CategoryID: 4, IsEco: true}

	changed, fields := p.Apply(in)
	assert.True(t, changed)
	assert.ElementsMatch(t, []string{"title", "is_eco", "category_id"}, fields)
	assert.Equal(t, "Ceramic mug 350ml", p.Title)
	assert.Equal(t, int64(4), p.CategoryID)
	assert.True(t, p.IsEco)
}

func TestProductApply_Idempotent(t *testing.T) {
	p := &Product{ID: 1, Title: "old"}
	in := &Product{ID: 1, Title: "new", HasBonus: true}

	changed, _ := p.Apply(in)
	assert.True(t, changed)

	changed, fields := p.Apply(in)
	assert.False(t, changed)
	assert.Empty(t, fields)
}

func TestSkuApply_DiscountBadgePointer(t *testing.T) {
	badge := int64(42)
	s := &Sku{ID: 1, ProductID: 2}

	changed, fields := s.Apply(&Sku{ID: 1, ProductID: 2, DiscountBadgeID: &badge})
	assert.True(t, changed)
	assert.Equal(t, []string{"discount_badge_id"}, fields)

	same := int64(42)
	changed, _ = s.Apply(&Sku{ID: 1, ProductID: 2, DiscountBadgeID: &same})
	assert.False(t, changed)

	changed, _ = s.Apply(&Sku{ID: 1, ProductID: 2})
	assert.True(t, changed)
	assert.Nil(t, s.DiscountBadgeID)
}

func TestDay_TruncatesToUTCMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)

	local := time.Date(2026, 3, 15, 22, 45, 12, 0, loc)
	day := Day(local)

	assert.Equal(t, time.UTC, day.Location())
	assert.Equal(t, 0, day.Hour())
	// 22:45 EDT is already March 16 in UTC.
	assert.Equal(t, 16, day.Day())
}

func TestDescendantIDList_RoundTrip(t *testing.T) {
	c := &Category{ID: 1, DescendantIDs: JoinIDs([]int64{1, 5, 9})}
	assert.Equal(t, []int64{1, 5, 9}, c.DescendantIDList())

	empty := &Category{ID: 2}
	assert.Nil(t, empty.DescendantIDList())
}
