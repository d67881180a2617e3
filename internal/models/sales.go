package models

// SalesTracker accumulates per-category "has sales today" attribution during
// a reconciliation run. It is owned by the batch driver and passed by
// reference; nothing writes to it concurrently within a batch.
type SalesTracker struct {
	byCategory map[int64]*SalesSet
}

type SalesSet struct {
	Products map[int64]struct{}
	Shops    map[int64]struct{}
}

func NewSalesTracker() *SalesTracker {
	return &SalesTracker{byCategory: make(map[int64]*SalesSet)}
}

// Record notes that a product (and its shop) sold today, attributed to the
// product's direct category.
func (t *SalesTracker) Record(categoryID, productID, shopID int64) {
	set, ok := t.byCategory[categoryID]
	if !ok {
		set = &SalesSet{Products: make(map[int64]struct{}), Shops: make(map[int64]struct{})}
		t.byCategory[categoryID] = set
	}
	set.Products[productID] = struct{}{}
	set.Shops[shopID] = struct{}{}
}

// DistinctCounts unions the sales sets of the given categories and returns
// distinct product and shop counts. A product rolling up through several
// descendant categories is counted once.
func (t *SalesTracker) DistinctCounts(categoryIDs []int64) (int64, int64) {
	products := make(map[int64]struct{})
	shops := make(map[int64]struct{})
	for _, id := range categoryIDs {
		set, ok := t.byCategory[id]
		if !ok {
			continue
		}
		for p := range set.Products {
			products[p] = struct{}{}
		}
		for s := range set.Shops {
			shops[s] = struct{}{}
		}
	}
	return int64(len(products)), int64(len(shops))
}
