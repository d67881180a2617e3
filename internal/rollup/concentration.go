package rollup

import "sort"

// Gini computes the Gini coefficient of order concentration across shops.
// Returns nil when there are no shops or no orders at all (undefined), and 0
// for a single shop holding everything.
func Gini(shopOrders []int64) *float64 {
	n := len(shopOrders)
	if n == 0 {
		return nil
	}
	var total int64
	for _, v := range shopOrders {
		total += v
	}
	if total == 0 {
		return nil
	}
	if n == 1 {
		zero := 0.0
		return &zero
	}

	sorted := make([]int64, n)
	copy(sorted, shopOrders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var weighted float64
	for i, v := range sorted {
		weighted += float64(i+1) * float64(v)
	}
	g := (2*weighted)/(float64(n)*float64(total)) - float64(n+1)/float64(n)
	return &g
}

// HHI computes the Herfindahl-Hirschman index on a 0..10000 scale: the sum of
// squared shop order shares expressed in percent. Nil when undefined.
func HHI(shopOrders []int64) *float64 {
	if len(shopOrders) == 0 {
		return nil
	}
	var total int64
	for _, v := range shopOrders {
		total += v
	}
	if total == 0 {
		return nil
	}

	var index float64
	for _, v := range shopOrders {
		share := float64(v) / float64(total) * 100
		index += share * share
	}
	return &index
}
