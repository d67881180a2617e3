package treecache

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"marketscan/internal/caching"
	"marketscan/internal/models"
	"marketscan/internal/repositories"
)

// TTL keeps yesterday's trees servable through a full missed refresh cycle.
const TTL = 48 * time.Hour

// Window is one aggregation horizon a tree variant is materialized over.
type Window struct {
	Name string
	Days int
}

var Windows = []Window{
	{Name: "day", Days: 1},
	{Name: "week", Days: 7},
	{Name: "month", Days: 30},
}

// WindowByName resolves a window name; ok is false for unknown names.
func WindowByName(name string) (Window, bool) {
	for _, w := range Windows {
		if w.Name == name {
			return w, true
		}
	}
	return Window{}, false
}

// Node is one category in the materialized tree, annotated with the window's
// subtree metrics plus the min/max leaf values used for heat scaling.
type Node struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	TotalProducts  int64   `json:"total_products"`
	TotalOrders    int64   `json:"total_orders"`
	TotalRevenue   int64   `json:"total_revenue"`
	TotalShops     int64   `json:"total_shops"`
	AvgRating      float64 `json:"avg_rating"`
	MinLeafOrders  int64   `json:"min_leaf_orders"`
	MaxLeafOrders  int64   `json:"max_leaf_orders"`
	MinLeafRevenue int64   `json:"min_leaf_revenue"`
	MaxLeafRevenue int64   `json:"max_leaf_revenue"`
	Children       []*Node `json:"children,omitempty"`
}

// Tree is one cached variant: the forest of root categories, the window it
// aggregates, and the day it was materialized on.
type Tree struct {
	Date   string  `json:"date"`
	Window string  `json:"window"`
	Roots  []*Node `json:"roots"`
}

// Builder materializes the annotated category tree variants from category
// snapshots and publishes them to the cache.
type Builder struct {
	categories repositories.CategoryRepository
	analytics  repositories.AnalyticsRepository
	cache      caching.CacheService
}

func NewBuilder(categories repositories.CategoryRepository, analytics repositories.AnalyticsRepository,
	cache caching.CacheService) *Builder {
	return &Builder{categories: categories, analytics: analytics, cache: cache}
}

// Materialize assembles one tree per window ending at the given day and
// publishes each under its window key with the standard TTL.
func (b *Builder) Materialize(ctx context.Context, date time.Time) error {
	date = models.Day(date)

	categories, err := b.categories.List(ctx)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}

	for _, window := range Windows {
		from := date.AddDate(0, 0, -(window.Days - 1))
		snapshots, err := b.analytics.CategoryRowsForRange(ctx, from, date)
		if err != nil {
			return fmt.Errorf("loading %s snapshots: %w", window.Name, err)
		}

		tree := &Tree{
			Date:   date.Format("2006-01-02"),
			Window: window.Name,
			Roots:  Assemble(categories, MergeSnapshots(snapshots)),
		}
		if err := b.cache.SetTree(ctx, window.Name, tree, TTL); err != nil {
			return fmt.Errorf("publishing %s tree: %w", window.Name, err)
		}
		log.Printf("treecache: published %s tree for %s (%d roots)", window.Name, tree.Date, len(tree.Roots))
	}
	return nil
}

// Cached returns the published tree for a window, or nil on a cache miss.
func (b *Builder) Cached(ctx context.Context, window string) (*Tree, error) {
	tree := &Tree{}
	hit, err := b.cache.GetTree(ctx, window, tree)
	if err != nil || !hit {
		return nil, err
	}
	return tree, nil
}

// MergeSnapshots folds a multi-day snapshot range into one row per category:
// flows (orders, revenue, reviews) sum across days, stocks (product/shop
// counts) take the window's peak, and the rating averages over rated days.
func MergeSnapshots(snapshots []*models.CategoryAnalytics) map[int64]*models.CategoryAnalytics {
	merged := make(map[int64]*models.CategoryAnalytics)
	ratedDays := make(map[int64]int64)
	for _, s := range snapshots {
		m, ok := merged[s.CategoryID]
		if !ok {
			m = &models.CategoryAnalytics{CategoryID: s.CategoryID}
			merged[s.CategoryID] = m
		}
		m.TotalOrders += s.TotalOrders
		m.TotalRevenue += s.TotalRevenue
		m.TotalReviews += s.TotalReviews
		if s.TotalProducts > m.TotalProducts {
			m.TotalProducts = s.TotalProducts
		}
		if s.TotalShops > m.TotalShops {
			m.TotalShops = s.TotalShops
		}
		if s.AvgRating > 0 {
			m.AvgRating += s.AvgRating
			ratedDays[s.CategoryID]++
		}
	}
	for id, days := range ratedDays {
		merged[id].AvgRating /= float64(days)
	}
	return merged
}

// Assemble nests the flat category list and annotates each node with its
// merged metrics plus min/max leaf orders and revenue across its subtree.
// Siblings sort by revenue descending.
func Assemble(categories []*models.Category, snapshots map[int64]*models.CategoryAnalytics) []*Node {
	nodes := make(map[int64]*Node, len(categories))
	for _, c := range categories {
		node := &Node{ID: c.ID, Title: c.Title}
		if s, ok := snapshots[c.ID]; ok {
			node.TotalProducts = s.TotalProducts
			node.TotalOrders = s.TotalOrders
			node.TotalRevenue = s.TotalRevenue
			node.TotalShops = s.TotalShops
			node.AvgRating = s.AvgRating
		}
		nodes[c.ID] = node
	}

	var roots []*Node
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if !ok {
			// Orphan: parent never discovered, surface at the top rather
			// than dropping the subtree.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	for _, root := range roots {
		annotateLeafRange(root)
		sortByRevenue(root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].TotalRevenue > roots[j].TotalRevenue })
	return roots
}

type leafRange struct {
	minOrders, maxOrders   int64
	minRevenue, maxRevenue int64
}

// annotateLeafRange returns the leaf metric ranges for the subtree and
// stores them on every node.
func annotateLeafRange(node *Node) leafRange {
	if len(node.Children) == 0 {
		r := leafRange{
			minOrders: node.TotalOrders, maxOrders: node.TotalOrders,
			minRevenue: node.TotalRevenue, maxRevenue: node.TotalRevenue,
		}
		node.applyLeafRange(r)
		return r
	}
	r := annotateLeafRange(node.Children[0])
	for _, child := range node.Children[1:] {
		c := annotateLeafRange(child)
		if c.minOrders < r.minOrders {
			r.minOrders = c.minOrders
		}
		if c.maxOrders > r.maxOrders {
			r.maxOrders = c.maxOrders
		}
		if c.minRevenue < r.minRevenue {
			r.minRevenue = c.minRevenue
		}
		if c.maxRevenue > r.maxRevenue {
			r.maxRevenue = c.maxRevenue
		}
	}
	node.applyLeafRange(r)
	return r
}

func (n *Node) applyLeafRange(r leafRange) {
	n.MinLeafOrders = r.minOrders
	n.MaxLeafOrders = r.maxOrders
	n.MinLeafRevenue = r.minRevenue
	n.MaxLeafRevenue = r.maxRevenue
}

func sortByRevenue(node *Node) {
	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].TotalRevenue > node.Children[j].TotalRevenue
	})
	for _, child := range node.Children {
		sortByRevenue(child)
	}
}
