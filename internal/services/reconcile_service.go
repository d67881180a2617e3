package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"marketscan/internal/marketapi"
	"marketscan/internal/models"
	"marketscan/internal/repositories"
)

// PayloadArchiver stores raw upstream payload batches for replay/debugging.
// Optional: a nil archiver disables archiving.
type PayloadArchiver interface {
	StoreProductBatch(ctx context.Context, date time.Time, seq int, payloads []*marketapi.ProductPayload) error
}

// ReconcileService fetches full product payloads and reconciles them against
// stored state: change-detecting upserts for products, shops, SKUs and
// badges, plus the day's analytics snapshots.
type ReconcileService struct {
	fetcher   *marketapi.Fetcher
	catalog   *CatalogService
	products  repositories.ProductRepository
	shops     repositories.ShopRepository
	skus      repositories.SkuRepository
	badges    repositories.BadgeRepository
	analytics repositories.AnalyticsRepository
	archiver  PayloadArchiver

	batchCap    int
	settleDelay time.Duration
}

func NewReconcileService(fetcher *marketapi.Fetcher, catalog *CatalogService,
	products repositories.ProductRepository, shops repositories.ShopRepository,
	skus repositories.SkuRepository, badges repositories.BadgeRepository,
	analytics repositories.AnalyticsRepository, archiver PayloadArchiver,
	batchCap int) *ReconcileService {
	if batchCap <= 0 {
		batchCap = 25000
	}
	return &ReconcileService{
		fetcher:     fetcher,
		catalog:     catalog,
		products:    products,
		shops:       shops,
		skus:        skus,
		badges:      badges,
		analytics:   analytics,
		archiver:    archiver,
		batchCap:    batchCap,
		settleDelay: 2 * time.Second,
	}
}

// SelectBatch picks which product IDs to fetch this run: never-seen IDs
// first, then the stalest known products, capped at the batch ceiling.
func (s *ReconcileService) SelectBatch(ctx context.Context, enumerated map[int64]ProductHint, date time.Time) ([]int64, error) {
	ids := make([]int64, 0, len(enumerated))
	for id := range enumerated {
		ids = append(ids, id)
	}

	existing, err := s.products.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("checking existing products: %w", err)
	}

	batch := make([]int64, 0, s.batchCap)
	for _, id := range ids {
		if len(batch) >= s.batchCap {
			break
		}
		if !existing[id] {
			batch = append(batch, id)
		}
	}
	newCount := len(batch)

	if len(batch) < s.batchCap {
		stale, err := s.products.StaleIDs(ctx, date, s.batchCap-len(batch))
		if err != nil {
			return nil, fmt.Errorf("selecting stale products: %w", err)
		}
		batch = append(batch, stale...)
	}

	log.Printf("reconcile: batch of %d products (%d new, %d stale)", len(batch), newCount, len(batch)-newCount)
	return batch, nil
}

// runState is the run-scoped context object: all shared accumulators live
// here, owned by the batch driver, never at package scope.
type runState struct {
	date time.Time

	existingProducts map[int64]*models.Product
	latest           map[int64]*repositories.LatestProductStats
	existingSkus     map[int64]*models.Sku
	shopsByID        map[int64]*models.Shop
	shopSnapshotted  map[int64]bool
	knownBadges      map[int64]bool

	newShops    []*models.Shop
	newProducts []*models.Product
	newSkus     []*models.Sku
	newBadges   []*models.Badge

	updatedProducts []*models.Product
	updatedSkus     []*models.Sku

	productAnalytics []*models.ProductAnalytics
	skuAnalytics     []*models.SkuAnalytics
	shopAnalytics    []*models.ShopAnalytics
}

// ReconcileBatch fetches the batch's payloads, reconciles each against the
// store, and persists the results phase by phase. A single product's failure
// is logged and skipped, never aborting the batch.
func (s *ReconcileService) ReconcileBatch(ctx context.Context, ids []int64, date time.Time, sales *models.SalesTracker) error {
	var payloads []*marketapi.ProductPayload
	failed := s.fetcher.CollectProducts(ctx, ids, func(p *marketapi.ProductPayload) {
		payloads = append(payloads, p)
	})
	if len(failed) > 0 {
		log.Printf("reconcile: %d of %d product fetches unresolved, retrying next run", len(failed), len(ids))
	}
	if len(payloads) == 0 {
		return nil
	}

	if s.archiver != nil {
		if err := s.archiver.StoreProductBatch(ctx, date, 0, payloads); err != nil {
			log.Printf("reconcile: archiving payload batch failed: %v", err)
		}
	}

	state, err := s.loadState(ctx, payloads, date)
	if err != nil {
		return err
	}

	reconciled := 0
	for _, payload := range payloads {
		if err := s.reconcileOne(ctx, state, payload, sales); err != nil {
			log.Printf("reconcile: product %d failed: %v", payload.ID, err)
			continue
		}
		reconciled++
	}
	log.Printf("reconcile: %d/%d payloads reconciled", reconciled, len(payloads))

	return s.persist(ctx, state)
}

func (s *ReconcileService) loadState(ctx context.Context, payloads []*marketapi.ProductPayload, date time.Time) (*runState, error) {
	productIDs := make([]int64, 0, len(payloads))
	shopIDs := make([]int64, 0, len(payloads))
	var skuIDs []int64
	for _, p := range payloads {
		productIDs = append(productIDs, p.ID)
		shopIDs = append(shopIDs, p.Seller.ID)
		for _, sku := range p.SkuList {
			skuIDs = append(skuIDs, sku.ID)
		}
	}

	existingProducts, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	latest, err := s.analytics.LatestProduct(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("loading latest product analytics: %w", err)
	}
	existingSkus, err := s.skus.GetByIDs(ctx, skuIDs)
	if err != nil {
		return nil, fmt.Errorf("loading skus: %w", err)
	}
	shops, err := s.shops.GetByIDs(ctx, shopIDs)
	if err != nil {
		return nil, fmt.Errorf("loading shops: %w", err)
	}
	snapshotted, err := s.analytics.ShopIDsSnapshotted(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading shop snapshot markers: %w", err)
	}
	knownBadges, err := s.badges.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading badge ids: %w", err)
	}

	return &runState{
		date:             date,
		existingProducts: existingProducts,
		latest:           latest,
		existingSkus:     existingSkus,
		shopsByID:        shops,
		shopSnapshotted:  snapshotted,
		knownBadges:      knownBadges,
	}, nil
}

func (s *ReconcileService) reconcileOne(ctx context.Context, state *runState, payload *marketapi.ProductPayload, sales *models.SalesTracker) error {
	if err := s.catalog.EnsureCategory(ctx, payload.Category.ID, payload.Category.Title, payload.Category.ParentID, state.date); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	if err := s.reconcileShop(ctx, state, &payload.Seller); err != nil {
		return fmt.Errorf("shop: %w", err)
	}

	badgeIDs := s.collectBadges(state, payload.Badges)

	campaignIDs := make([]int64, 0, len(payload.Campaigns))
	for _, c := range payload.Campaigns {
		id, err := s.badges.EnsureCampaign(ctx, c.Title, state.date)
		if err != nil {
			return fmt.Errorf("campaign %q: %w", c.Title, err)
		}
		campaignIDs = append(campaignIDs, id)
	}

	incoming := payloadToProduct(payload)
	if existing, ok := state.existingProducts[payload.ID]; ok {
		if changed, fields := existing.Apply(incoming); changed {
			// Deferred to the persist phase: the new shop_id may point at
			// a shop that is only staged for insert right now.
			state.updatedProducts = append(state.updatedProducts, existing)
			log.Printf("reconcile: product %d changed fields %v", payload.ID, fields)
		}
	} else {
		state.newProducts = append(state.newProducts, incoming)
		state.existingProducts[payload.ID] = incoming
	}

	prev := state.latest[payload.ID]
	var prevOrders, prevMoney int64
	if prev != nil {
		prevOrders = prev.OrdersAmount
		prevMoney = prev.OrdersMoney
	}
	avgPrice := AverageSkuPrice(payload.SkuList)
	ordersMoney := ComputeOrdersMoney(prevMoney, prevOrders, payload.OrdersAmount, avgPrice)

	if payload.OrdersAmount > prevOrders {
		sales.Record(payload.Category.ID, payload.ID, payload.Seller.ID)
	}

	var available int64
	for _, sku := range payload.SkuList {
		available += sku.AvailableAmount
	}

	state.productAnalytics = append(state.productAnalytics, &models.ProductAnalytics{
		ID:              uuid.New(),
		ProductID:       payload.ID,
		Date:            state.date,
		OrdersAmount:    payload.OrdersAmount,
		ReviewsAmount:   payload.ReviewsAmount,
		Rating:          payload.Rating,
		AvailableAmount: available,
		OrdersMoney:     ordersMoney,
		BadgeIDs:        badgeIDs,
		CampaignIDs:     campaignIDs,
	})

	return s.reconcileSkus(ctx, state, payload)
}

func (s *ReconcileService) reconcileShop(ctx context.Context, state *runState, seller *marketapi.SellerPayload) error {
	shop, seen := state.shopsByID[seller.ID]
	if !seen {
		shop = &models.Shop{
			ID:               seller.ID,
			Title:            seller.Title,
			Link:             seller.Link,
			Description:      seller.Description,
			AccountID:        seller.AccountID,
			RegistrationDate: time.UnixMilli(seller.RegistrationMs).UTC(),
		}
		state.newShops = append(state.newShops, shop)
		state.shopsByID[seller.ID] = shop
	} else {
		incoming := &models.Shop{Title: seller.Title, Link: seller.Link}
		if changed, _ := shop.Apply(incoming); changed {
			if err := s.shops.Update(ctx, shop); err != nil {
				return fmt.Errorf("updating shop %d: %w", shop.ID, err)
			}
		}
	}

	if !state.shopSnapshotted[seller.ID] {
		state.shopAnalytics = append(state.shopAnalytics, &models.ShopAnalytics{
			ID:            uuid.New(),
			ShopID:        seller.ID,
			Date:          state.date,
			TotalProducts: seller.TotalProducts,
			TotalOrders:   seller.TotalOrders,
			TotalReviews:  seller.TotalReviews,
			Rating:        seller.Rating,
		})
		state.shopSnapshotted[seller.ID] = true
	}
	return nil
}

// collectBadges stages unseen badges for insert and returns the set this
// product references.
func (s *ReconcileService) collectBadges(state *runState, badges []marketapi.BadgePayload) []int64 {
	ids := make([]int64, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.ID)
		if !state.knownBadges[b.ID] {
			state.newBadges = append(state.newBadges, &models.Badge{
				ID:              b.ID,
				Text:            b.Text,
				Type:            b.Type,
				BackgroundColor: b.BackgroundColor,
				TextColor:       b.TextColor,
				Description:     b.Description,
			})
			state.knownBadges[b.ID] = true
		}
	}
	return ids
}

func (s *ReconcileService) reconcileSkus(ctx context.Context, state *runState, payload *marketapi.ProductPayload) error {
	for i := range payload.SkuList {
		sku := &payload.SkuList[i]

		var discountBadgeID *int64
		if sku.DiscountBadge != nil {
			id := sku.DiscountBadge.ID
			discountBadgeID = &id
			s.collectBadges(state, []marketapi.BadgePayload{*sku.DiscountBadge})
		}

		pairs := FlattenSkuCharacteristics(payload.Characteristics, sku.Characteristics)
		charcs, err := json.Marshal(pairs)
		if err != nil {
			return fmt.Errorf("sku %d characteristics: %w", sku.ID, err)
		}

		incoming := &models.Sku{
			ID:              sku.ID,
			ProductID:       payload.ID,
			Characteristics: string(charcs),
			DiscountBadgeID: discountBadgeID,
		}
		if existing, ok := state.existingSkus[sku.ID]; ok {
			if changed, _ := existing.Apply(incoming); changed {
				state.updatedSkus = append(state.updatedSkus, existing)
			}
		} else {
			state.newSkus = append(state.newSkus, incoming)
			state.existingSkus[sku.ID] = incoming
		}

		state.skuAnalytics = append(state.skuAnalytics, &models.SkuAnalytics{
			ID:              uuid.New(),
			SkuID:           sku.ID,
			Date:            state.date,
			PurchasePrice:   sku.PurchasePrice,
			FullPrice:       sku.FullPrice,
			AvailableAmount: sku.AvailableAmount,
		})
	}
	return nil
}

// persist flushes the staged rows in dependency order, with brief settles so
// each bulk phase lands before dependents reference it.
func (s *ReconcileService) persist(ctx context.Context, state *runState) error {
	if len(state.newBadges) > 0 {
		inserted, skipped, err := s.badges.BulkInsert(ctx, state.newBadges)
		if err != nil {
			return fmt.Errorf("inserting badges: %w", err)
		}
		log.Printf("reconcile: badges inserted=%d skipped=%d", inserted, skipped)
	}

	if len(state.newShops) > 0 {
		inserted, skipped, err := s.shops.BulkInsert(ctx, state.newShops)
		if err != nil {
			return fmt.Errorf("inserting shops: %w", err)
		}
		log.Printf("reconcile: shops inserted=%d skipped=%d", inserted, skipped)
		s.settle()
	}

	if len(state.newProducts) > 0 {
		inserted, skipped, err := s.products.BulkInsert(ctx, state.newProducts)
		if err != nil {
			return fmt.Errorf("inserting products: %w", err)
		}
		log.Printf("reconcile: products inserted=%d skipped=%d", inserted, skipped)
		s.settle()
	}

	for _, product := range state.updatedProducts {
		if err := s.products.Update(ctx, product); err != nil {
			return fmt.Errorf("updating product %d: %w", product.ID, err)
		}
	}
	if len(state.updatedProducts) > 0 {
		log.Printf("reconcile: products updated=%d", len(state.updatedProducts))
	}

	if len(state.newSkus) > 0 {
		inserted, skipped, err := s.skus.BulkInsert(ctx, state.newSkus)
		if err != nil {
			return fmt.Errorf("inserting skus: %w", err)
		}
		log.Printf("reconcile: skus inserted=%d skipped=%d", inserted, skipped)
		s.settle()
	}

	for _, sku := range state.updatedSkus {
		if err := s.skus.Update(ctx, sku); err != nil {
			return fmt.Errorf("updating sku %d: %w", sku.ID, err)
		}
	}
	if len(state.updatedSkus) > 0 {
		log.Printf("reconcile: skus updated=%d", len(state.updatedSkus))
	}

	if len(state.productAnalytics) > 0 {
		inserted, skipped, err := s.analytics.BulkInsertProduct(ctx, state.productAnalytics)
		if err != nil {
			return fmt.Errorf("inserting product analytics: %w", err)
		}
		log.Printf("reconcile: product analytics inserted=%d skipped=%d", inserted, skipped)
	}

	if len(state.skuAnalytics) > 0 {
		inserted, skipped, err := s.analytics.BulkInsertSku(ctx, state.skuAnalytics)
		if err != nil {
			return fmt.Errorf("inserting sku analytics: %w", err)
		}
		log.Printf("reconcile: sku analytics inserted=%d skipped=%d", inserted, skipped)
	}

	if len(state.shopAnalytics) > 0 {
		inserted, skipped, err := s.analytics.BulkInsertShop(ctx, state.shopAnalytics)
		if err != nil {
			return fmt.Errorf("inserting shop analytics: %w", err)
		}
		log.Printf("reconcile: shop analytics inserted=%d skipped=%d", inserted, skipped)
	}

	return nil
}

func (s *ReconcileService) settle() {
	if s.settleDelay > 0 {
		time.Sleep(s.settleDelay)
	}
}

func payloadToProduct(payload *marketapi.ProductPayload) *models.Product {
	attributes, _ := json.Marshal(payload.Attributes)
	characteristics, _ := json.Marshal(payload.Characteristics)
	photos, _ := json.Marshal(payload.Photos)
	return &models.Product{
		ID:              payload.ID,
		Title:           payload.Title,
		Description:     payload.Description,
		IsAdult:         payload.IsAdult,
		IsEco:           payload.IsEco,
		IsPerishable:    payload.IsPerishable,
		HasBonus:        payload.HasBonus,
		Attributes:      string(attributes),
		Characteristics: string(characteristics),
		Photos:          string(photos),
		ShopID:          payload.Seller.ID,
		CategoryID:      payload.Category.ID,
	}
}

// CharPair is a resolved SKU characteristic.
type CharPair struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// FlattenSkuCharacteristics maps a SKU's index pairs onto the parent
// product's characteristic schema. Out-of-range indexes are skipped rather
// than corrupting the result.
func FlattenSkuCharacteristics(schema []marketapi.PayloadCharacteristic, indexes []marketapi.SkuCharacteristicIndex) []CharPair {
	pairs := make([]CharPair, 0, len(indexes))
	for _, idx := range indexes {
		if idx.CharIndex < 0 || idx.CharIndex >= len(schema) {
			continue
		}
		char := schema[idx.CharIndex]
		if idx.ValueIndex < 0 || idx.ValueIndex >= len(char.Values) {
			continue
		}
		pairs = append(pairs, CharPair{Title: char.Title, Value: char.Values[idx.ValueIndex].Value})
	}
	return pairs
}

// AverageSkuPrice returns the mean purchase price across SKUs in minor
// currency units. An empty SKU list contributes zero (the denominator is
// substituted with 1 to avoid division by zero).
func AverageSkuPrice(skus []marketapi.SkuPayload) int64 {
	var sum int64
	for _, sku := range skus {
		sum += sku.PurchasePrice
	}
	denom := int64(len(skus))
	if denom == 0 {
		denom = 1
	}
	return sum / denom
}

// ComputeOrdersMoney advances the cumulative revenue counter: previous
// cumulative revenue plus the order delta priced at the current average SKU
// purchase price (minor units -> whole units), floored at zero. A regressed
// upstream counter contributes nothing rather than going negative.
func ComputeOrdersMoney(prevMoney, prevOrders, curOrders, avgPrice int64) int64 {
	delta := curOrders - prevOrders
	if delta < 0 {
		delta = 0
	}
	money := prevMoney + delta*avgPrice/100
	if money < 0 {
		money = 0
	}
	return money
}
