package services

import (
	"context"
	"encoding/json"
	"log"

	"marketscan/internal/marketapi"
)

// ProductHint carries the localized title/characteristics that ride along
// with IDs in search results. Duplicates across pages merge last-write-wins.
type ProductHint struct {
	Title           string
	Characteristics string // serialized JSON
}

// EnumerationService turns the fetchable frontier into the day's product ID
// universe.
type EnumerationService struct {
	fetcher  *marketapi.Fetcher
	pageSize int
	ceiling  int
}

func NewEnumerationService(fetcher *marketapi.Fetcher, pageSize, paginationCeiling int) *EnumerationService {
	return &EnumerationService{fetcher: fetcher, pageSize: pageSize, ceiling: paginationCeiling}
}

// BuildPageRequests generates the flat list of page requests for the
// frontier. Offsets never reach the pagination ceiling: the external API
// returns nothing past it, so requesting there would only burn quota.
func BuildPageRequests(frontier []FrontierCategory, ceiling, pageSize int) []marketapi.PageRequest {
	var pages []marketapi.PageRequest
	for _, category := range frontier {
		total := category.Total
		if total > ceiling {
			total = ceiling
		}
		for offset := 0; offset < total; offset += pageSize {
			limit := pageSize
			if offset+limit > ceiling {
				limit = ceiling - offset
			}
			pages = append(pages, marketapi.PageRequest{CategoryID: category.ID, Offset: offset, Limit: limit})
		}
	}
	return pages
}

// CollectProductIDs paginates every frontier category and flattens the
// results into a deduplicated ID->hint map. Ordering is irrelevant; only
// existence matters.
func (s *EnumerationService) CollectProductIDs(ctx context.Context, frontier []FrontierCategory) map[int64]ProductHint {
	pages := BuildPageRequests(frontier, s.ceiling, s.pageSize)
	log.Printf("enumeration: %d page requests across %d frontier categories", len(pages), len(frontier))

	ids := make(map[int64]ProductHint)
	failed := s.fetcher.CollectSearchItems(ctx, pages, func(_ marketapi.PageRequest, items []marketapi.SearchItem) {
		MergeSearchItems(ids, items)
	})
	if len(failed) > 0 {
		log.Printf("enumeration: %d pages dropped for this run", len(failed))
	}
	log.Printf("enumeration: collected %d distinct product ids", len(ids))
	return ids
}

// MergeSearchItems folds search items into the accumulator, last write wins
// on duplicate IDs.
func MergeSearchItems(into map[int64]ProductHint, items []marketapi.SearchItem) {
	for _, item := range items {
		card := item.CatalogCard
		if card.ProductID == 0 {
			continue
		}
		hint := ProductHint{Title: card.Title}
		if len(card.CharacteristicValues) > 0 {
			if data, err := json.Marshal(card.CharacteristicValues); err == nil {
				hint.Characteristics = string(data)
			}
		}
		into[card.ProductID] = hint
	}
}
