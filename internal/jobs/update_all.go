package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"marketscan/internal/caching"
	"marketscan/internal/models"
	"marketscan/internal/rollup"
	"marketscan/internal/services"
	"marketscan/internal/treecache"
)

// Updater runs the full daily pipeline: discovery, enumeration,
// reconciliation, rollup, tree materialization.
type Updater struct {
	catalog     *services.CatalogService
	enumeration *services.EnumerationService
	reconcile   *services.ReconcileService
	engine      *rollup.Engine
	tree        *treecache.Builder
	cache       caching.CacheService
}

func NewUpdater(catalog *services.CatalogService, enumeration *services.EnumerationService,
	reconcile *services.ReconcileService, engine *rollup.Engine, tree *treecache.Builder,
	cache caching.CacheService) *Updater {
	return &Updater{
		catalog:     catalog,
		enumeration: enumeration,
		reconcile:   reconcile,
		engine:      engine,
		tree:        tree,
		cache:       cache,
	}
}

// UpdateAll runs one complete pipeline pass for the current day. Fetch-side
// failures degrade to a smaller batch; only structural failures (discovery,
// batch selection) abort.
func (u *Updater) UpdateAll(ctx context.Context) error {
	started := time.Now()
	date := models.Day(time.Now())
	log.Printf("jobs: daily update starting for %s", date.Format("2006-01-02"))

	frontier, err := u.catalog.Discover(ctx, date)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	enumerated := u.enumeration.CollectProductIDs(ctx, frontier)

	batch, err := u.reconcile.SelectBatch(ctx, enumerated, date)
	if err != nil {
		return fmt.Errorf("batch selection: %w", err)
	}

	sales := models.NewSalesTracker()
	if err := u.reconcile.ReconcileBatch(ctx, batch, date, sales); err != nil {
		return fmt.Errorf("reconciliation: %w", err)
	}

	if err := u.engine.Run(ctx, date, sales); err != nil {
		log.Printf("jobs: rollup completed with errors: %v", err)
	}

	if err := u.tree.Materialize(ctx, date); err != nil {
		log.Printf("jobs: tree materialization failed: %v", err)
	}

	if err := u.cache.InvalidateAnalytics(ctx); err != nil {
		log.Printf("jobs: analytics cache invalidation failed: %v", err)
	}

	log.Printf("jobs: daily update finished in %s", time.Since(started).Round(time.Second))
	return nil
}
