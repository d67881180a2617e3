package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"marketscan/internal/archive"
	"marketscan/internal/caching"
	"marketscan/internal/config"
	"marketscan/internal/handlers"
	"marketscan/internal/jobs"
	"marketscan/internal/jobs/background"
	"marketscan/internal/marketapi"
	"marketscan/internal/repositories"
	"marketscan/internal/rollup"
	"marketscan/internal/services"
	"marketscan/internal/treecache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Repositories
	categoryRepo := repositories.NewCategoryRepository(pool)
	productRepo := repositories.NewProductRepository(pool)
	shopRepo := repositories.NewShopRepository(pool)
	skuRepo := repositories.NewSkuRepository(pool)
	badgeRepo := repositories.NewBadgeRepository(pool)
	analyticsRepo := repositories.NewAnalyticsRepository(pool)
	rollupRepo := repositories.NewRollupRepository(pool)

	// Upstream client and fetcher
	client := marketapi.NewClient(marketapi.ClientOptions{
		BaseURL:           cfg.MarketAPIURL,
		Token:             cfg.MarketAPIToken,
		RequestTimeout:    cfg.RequestTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		RetryCeiling:      cfg.RetryCeiling,
		RetryBaseDelay:    cfg.RetryBaseDelay,
	})
	fetcher := marketapi.NewFetcher(client, marketapi.FetcherOptions{
		Workers:           cfg.FetchWorkers,
		ThrottleThreshold: cfg.ThrottleThreshold,
		ThrottlePause:     cfg.ThrottlePause,
	})

	// Optional raw payload archive
	var archiver services.PayloadArchiver
	if cfg.MinioEndpoint != "" {
		minioArchiver, err := archive.NewMinioArchiver(cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("Failed to create archiver: %v", err)
		}
		if err := minioArchiver.EnsureBucket(ctx); err != nil {
			log.Printf("WARN: archive bucket unavailable, archiving disabled: %v", err)
		} else {
			archiver = minioArchiver
		}
	}

	// Services
	catalogSvc := services.NewCatalogService(client, categoryRepo, analyticsRepo, cfg.PaginationCeiling)
	enumerationSvc := services.NewEnumerationService(fetcher, cfg.PageSize, cfg.PaginationCeiling)
	reconcileSvc := services.NewReconcileService(fetcher, catalogSvc, productRepo, shopRepo,
		skuRepo, badgeRepo, analyticsRepo, archiver, cfg.ProductBatchCap)
	engine := rollup.NewEngine(rollupRepo, categoryRepo, analyticsRepo)
	treeBuilder := treecache.NewBuilder(categoryRepo, analyticsRepo, cacheSvc)

	// Background pipeline
	updater := jobs.NewUpdater(catalogSvc, enumerationSvc, reconcileSvc, engine, treeBuilder, cacheSvc)
	scheduler := background.NewJobScheduler(updater, cfg.DailyRunAt)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	healthHandlers := handlers.NewHealthHandlers(pool)
	analyticsHandlers := handlers.NewAnalyticsHandlers(analyticsRepo, engine, cacheSvc)
	categoryHandlers := handlers.NewCategoryHandlers(treeBuilder)
	jobHandlers := handlers.NewJobHandlers(scheduler)
	productHandlers := handlers.NewProductHandlers(client)

	e.GET("/health", healthHandlers.Health)
	e.GET("/ready", healthHandlers.Ready)

	v1 := e.Group("/v1")
	v1.GET("/analytics/products/:id", analyticsHandlers.GetProductAnalytics)
	v1.GET("/analytics/shops/:id", analyticsHandlers.GetShopAnalytics)
	v1.GET("/analytics/categories/:id", analyticsHandlers.GetCategoryAnalytics)
	v1.GET("/segmentation", analyticsHandlers.GetSegmentation)
	v1.GET("/products/:id/reviews", productHandlers.GetReviews)
	v1.GET("/products/:id/similar", productHandlers.GetSimilar)
	v1.GET("/categories/tree", categoryHandlers.GetCategoryTree)
	v1.POST("/jobs/run", jobHandlers.RunDailyUpdate)
	v1.GET("/jobs/status", jobHandlers.GetJobStatus)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil {
			log.Printf("HTTP server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}
