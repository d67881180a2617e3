package rollup

import (
	"sort"

	"marketscan/internal/repositories"
)

// PriceSegment is one equal-population price bin with its aggregated
// marketplace metrics.
type PriceSegment struct {
	MinPrice      int64   `json:"min_price"`
	MaxPrice      int64   `json:"max_price"`
	ProductsCount int64   `json:"products_count"`
	OrdersAmount  int64   `json:"orders_amount"`
	Revenue       int64   `json:"revenue"`
	ShopsCount    int64   `json:"shops_count"`
	AvgRating     float64 `json:"avg_rating"`
}

// SegmentByPrice splits the day's products into bins of (nearly) equal
// population by average purchase price. When fewer distinct prices exist than
// requested bins, the bin count shrinks to the distinct-price count. The
// remainder from an uneven split goes to the earliest bins. Reported price
// edges are rounded to the nearest 1000 minor units for presentation.
func SegmentByPrice(rows []repositories.PriceRow, bins int) []PriceSegment {
	if len(rows) == 0 || bins <= 0 {
		return nil
	}

	sorted := make([]repositories.PriceRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AvgPrice < sorted[j].AvgPrice })

	distinct := 0
	var last int64 = -1
	for _, row := range sorted {
		if row.AvgPrice != last {
			distinct++
			last = row.AvgPrice
		}
	}
	if bins > distinct {
		bins = distinct
	}

	base := len(sorted) / bins
	remainder := len(sorted) % bins

	segments := make([]PriceSegment, 0, bins)
	cursor := 0
	for b := 0; b < bins; b++ {
		size := base
		if b < remainder {
			size++
		}
		chunk := sorted[cursor : cursor+size]
		cursor += size
		segments = append(segments, summarize(chunk))
	}
	return segments
}

func summarize(chunk []repositories.PriceRow) PriceSegment {
	seg := PriceSegment{
		MinPrice:      roundThousand(chunk[0].AvgPrice),
		MaxPrice:      roundThousand(chunk[len(chunk)-1].AvgPrice),
		ProductsCount: int64(len(chunk)),
	}
	shops := make(map[int64]struct{})
	var ratingSum float64
	var rated int64
	for _, row := range chunk {
		seg.OrdersAmount += row.OrdersAmount
		seg.Revenue += row.OrdersMoney
		shops[row.ShopID] = struct{}{}
		if row.Rating > 0 {
			ratingSum += row.Rating
			rated++
		}
	}
	seg.ShopsCount = int64(len(shops))
	if rated > 0 {
		seg.AvgRating = ratingSum / float64(rated)
	}
	return seg
}

func roundThousand(v int64) int64 {
	return (v + 500) / 1000 * 1000
}
