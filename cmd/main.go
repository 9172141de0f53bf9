package main

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"shelflife-service/internal/clients/shopify"
	"shelflife-service/internal/config"
	"shelflife-service/internal/database"
	"shelflife-service/internal/events"
	"shelflife-service/internal/handlers"
	"shelflife-service/internal/middleware"
	"shelflife-service/internal/models"
	"shelflife-service/internal/repository"
	"shelflife-service/internal/services"
)

// @title Shelf-Life Pricing API
// @version 1.0.0
// @description Shelf-life tracking, catalog reconciliation and expiration-driven discount service
// @host localhost:8099
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabasePath, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.ShelfLifeItem{},
		&models.ShelfLifeItemPriceChange{},
		&models.DailyDiscountLog{},
	); err != nil {
		log.Fatalf("Auto-migration failed: %v", err)
	}
	log.Println("Database models migrated")

	// Redis is optional; caching is disabled when it is unreachable
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		} else {
			client := redis.NewClient(redisOpts)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := client.Ping(ctx).Err(); err != nil {
				log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
			} else {
				redisClient = client
				log.Println("Redis connected successfully")
			}
			cancel()
		}
	}

	// Event publisher is optional and gated on NATS_URL
	publisher := events.NewNoopPublisher()
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to connect to NATS: %v (events will be dropped)", err)
		} else {
			publisher = natsPublisher
			defer publisher.Close()
			log.Println("NATS event publisher initialized")
		}
	}

	// Initialize repositories
	itemRepo := repository.NewShelfLifeRepository(db, redisClient, logger)
	ledgerRepo := repository.NewPriceChangeRepository(db)
	dailyRepo := repository.NewDailyDiscountRepository(db)

	// Initialize Shopify client
	catalogClient := shopify.NewClient(cfg.ShopifyAccessToken, cfg.ShopifyAPIVersion, cfg.ShopifyRateLimit, cfg.SyncMaxRetries, cfg.SyncRetryDelay)

	// Initialize services
	concurrency := services.NewShopSemaphore()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ingestService := services.NewIngestService(itemRepo, logger)
	syncService := services.NewSyncService(itemRepo, catalogClient, publisher, concurrency, cfg, logger)
	pricingService := services.NewPricingService(itemRepo, ledgerRepo, catalogClient, publisher, concurrency, logger)
	dailyService := services.NewDailyDiscountService(dailyRepo, catalogClient, publisher, concurrency, cfg, logger, rng)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	ingestHandler := handlers.NewIngestHandler(ingestService)
	shelfLifeHandler := handlers.NewShelfLifeHandler(itemRepo, ledgerRepo)
	syncHandler := handlers.NewSyncHandler(syncService)
	pricingHandler := handlers.NewPricingHandler(pricingService, ledgerRepo)
	dailyHandler := handlers.NewDailyDiscountHandler(dailyService, dailyRepo)

	router := setupRouter(cfg, healthHandler, ingestHandler, shelfLifeHandler, syncHandler, pricingHandler, dailyHandler)

	log.Printf("Shelf-Life Service starting on port %s (env: %s)", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	ingestHandler *handlers.IngestHandler,
	shelfLifeHandler *handlers.ShelfLifeHandler,
	syncHandler *handlers.SyncHandler,
	pricingHandler *handlers.PricingHandler,
	dailyHandler *handlers.DailyDiscountHandler,
) *gin.Engine {
	router := gin.Default()

	// Security headers middleware
	router.Use(middleware.SecurityHeaders())

	// CORS middleware
	origins := strings.Split(cfg.AllowedOrigins, ",")
	router.Use(middleware.CORS(origins))

	// Shop context middleware
	router.Use(middleware.ShopMiddleware())

	// Health check
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes - require shop domain
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireShop())
	{
		shelfLife := v1.Group("/shelf-life")
		{
			shelfLife.POST("/import", ingestHandler.Import)
			shelfLife.GET("/import/template", ingestHandler.GetTemplate)

			shelfLife.GET("/items", shelfLifeHandler.List)
			shelfLife.GET("/items/:id", shelfLifeHandler.Get)
			shelfLife.DELETE("/items/:id", shelfLifeHandler.Delete)
			shelfLife.POST("/items/bulk-delete", shelfLifeHandler.BulkDelete)
			shelfLife.DELETE("/items", shelfLifeHandler.DeleteAll)
			shelfLife.GET("/items/:id/price-history", shelfLifeHandler.PriceHistory)

			shelfLife.POST("/sync", syncHandler.Sync)

			shelfLife.POST("/discounts/apply", pricingHandler.ApplyDiscounts)
			shelfLife.POST("/discounts/revert", pricingHandler.RevertDiscounts)
			shelfLife.GET("/discounts/active", pricingHandler.ListActiveDiscounts)
		}

		prices := v1.Group("/prices")
		{
			prices.PUT("/:variantId", pricingHandler.UpdatePrice)
		}
		v1.GET("/price-changes", pricingHandler.ListPriceChanges)

		daily := v1.Group("/daily-discounts")
		{
			daily.POST("/apply", dailyHandler.Apply)
			daily.POST("/revert", dailyHandler.Revert)
			daily.GET("/logs", dailyHandler.Logs)
		}
	}

	return router
}
