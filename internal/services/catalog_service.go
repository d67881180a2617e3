package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"marketscan/internal/marketapi"
	"marketscan/internal/models"
	"marketscan/internal/repositories"
)

// ErrSelfParent marks malformed upstream data: a category listed as its own
// parent would loop the tree walkers forever, so it is rejected before any
// link assignment.
var ErrSelfParent = errors.New("category is its own parent")

// FrontierCategory is a category small enough to be fully enumerated within
// one pagination ceiling.
type FrontierCategory struct {
	ID    int64
	Total int
}

// CatalogService discovers the upstream category universe and maintains the
// local category tree.
type CatalogService struct {
	client     *marketapi.Client
	categories repositories.CategoryRepository
	analytics  repositories.AnalyticsRepository
	ceiling    int
}

func NewCatalogService(client *marketapi.Client, categories repositories.CategoryRepository,
	analytics repositories.AnalyticsRepository, paginationCeiling int) *CatalogService {
	return &CatalogService{
		client:     client,
		categories: categories,
		analytics:  analytics,
		ceiling:    paginationCeiling,
	}
}

type flatNode struct {
	id       int64
	title    string
	parentID *int64
	count    int
}

func flattenTree(nodes []marketapi.CategoryNode, parentID *int64, out []flatNode) ([]flatNode, error) {
	for i := range nodes {
		node := &nodes[i]
		if parentID != nil && *parentID == node.ID {
			return nil, fmt.Errorf("category %d: %w", node.ID, ErrSelfParent)
		}
		out = append(out, flatNode{id: node.ID, title: node.Title, parentID: parentID, count: node.ProductAmount})
		var err error
		out, err = flattenTree(node.Children, &node.ID, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Descendants returns the subtree IDs for every category (self included),
// computed from a parent->children adjacency map built once.
func Descendants(nodes []flatNode) map[int64][]int64 {
	children := make(map[int64][]int64, len(nodes))
	for _, n := range nodes {
		if n.parentID != nil {
			children[*n.parentID] = append(children[*n.parentID], n.id)
		}
	}

	var walk func(id int64) []int64
	walk = func(id int64) []int64 {
		ids := []int64{id}
		for _, child := range children[id] {
			ids = append(ids, walk(child)...)
		}
		return ids
	}

	result := make(map[int64][]int64, len(nodes))
	for _, n := range nodes {
		result[n.id] = walk(n.id)
	}
	return result
}

// ComputeFrontier descends the tree and keeps every category whose product
// total fits under the pagination ceiling, or that has no children to recurse
// into. Fewer, larger categories are preferred over many small ones.
func ComputeFrontier(nodes []marketapi.CategoryNode, ceiling int) []FrontierCategory {
	var frontier []FrontierCategory
	for i := range nodes {
		node := &nodes[i]
		if node.ProductAmount <= ceiling || len(node.Children) == 0 {
			frontier = append(frontier, FrontierCategory{ID: node.ID, Total: node.ProductAmount})
			continue
		}
		frontier = append(frontier, ComputeFrontier(node.Children, ceiling)...)
	}
	return frontier
}

// Discover fetches the category tree, upserts every category, recomputes the
// flattened descendant lists, and returns the fetchable frontier.
func (s *CatalogService) Discover(ctx context.Context, date time.Time) ([]FrontierCategory, error) {
	tree, err := s.client.CategoryTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching category tree: %w", err)
	}

	flat, err := flattenTree(tree, nil, nil)
	if err != nil {
		return nil, err
	}
	descendants := Descendants(flat)

	created := 0
	for _, n := range flat {
		category := &models.Category{
			ID:            n.id,
			Title:         n.title,
			ParentID:      n.parentID,
			DescendantIDs: models.JoinIDs(descendants[n.id]),
		}
		if _, err := s.categories.GetByID(ctx, n.id); errors.Is(err, pgx.ErrNoRows) {
			created++
		}
		if err := s.categories.Upsert(ctx, category); err != nil {
			return nil, fmt.Errorf("upserting category %d: %w", n.id, err)
		}
		if err := s.categories.UpdateDescendants(ctx, n.id, category.DescendantIDs); err != nil {
			return nil, fmt.Errorf("updating descendants of category %d: %w", n.id, err)
		}
	}

	frontier := ComputeFrontier(tree, s.ceiling)
	log.Printf("catalog: discovered %d categories (%d new), frontier size %d", len(flat), created, len(frontier))
	return frontier, nil
}

// EnsureCategory creates a category seen only through a product payload,
// best-effort linking to its parent, together with an empty analytics
// snapshot for the day.
func (s *CatalogService) EnsureCategory(ctx context.Context, id int64, title string, parentID *int64, date time.Time) error {
	if parentID != nil && *parentID == id {
		return fmt.Errorf("category %d: %w", id, ErrSelfParent)
	}
	if _, err := s.categories.GetByID(ctx, id); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	// Best-effort parent linking: a parent we have never discovered is
	// dropped rather than failing the whole product.
	if parentID != nil {
		if _, err := s.categories.GetByID(ctx, *parentID); errors.Is(err, pgx.ErrNoRows) {
			log.Printf("catalog: category %d references unknown parent %d, creating unlinked", id, *parentID)
			parentID = nil
		} else if err != nil {
			return err
		}
	}

	category := &models.Category{ID: id, Title: title, ParentID: parentID, DescendantIDs: models.JoinIDs([]int64{id})}
	if err := s.categories.Upsert(ctx, category); err != nil {
		return err
	}
	snapshot := &models.CategoryAnalytics{ID: uuid.New(), CategoryID: id, Date: date}
	return s.analytics.UpsertCategoryDay(ctx, snapshot)
}
