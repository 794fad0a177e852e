package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/chateval/backend/internal/api/handlers"
	rediscache "github.com/chateval/backend/internal/cache/redis"
	"github.com/chateval/backend/internal/embeddings"
	"github.com/chateval/backend/internal/evaluation"
	"github.com/chateval/backend/internal/ingestion"
	"github.com/chateval/backend/internal/metrics"
	"github.com/chateval/backend/internal/storage/sqlite"
	"github.com/chateval/backend/pkg/config"
	appLogger "github.com/chateval/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting conversation evaluation API server")

	metrics.Init()

	var store *sqlite.Client
	if cfg.SQLite.Path != "" {
		store, err = sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
		}
		defer store.Close()

		if err := store.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize schema", zap.Error(err))
		}
	}

	embedder := embeddings.Default(cfg.Embedding)

	if cfg.Embedding.CacheEnabled {
		cache, err := rediscache.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Embedding.CacheTTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Warn("Embedding cache disabled, redis unavailable", zap.Error(err))
		} else {
			defer cache.Close()
			embedder = embeddings.NewCachedEmbedder(embedder, cache)
		}
	}

	scorer := evaluation.NewScorer(embedder)
	evaluator := evaluation.NewEvaluator(scorer)
	processor := ingestion.NewProcessor()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	evaluateHandler := handlers.NewEvaluateHandler(evaluator, embedder, store, cfg.Evaluation)
	reportHandler := handlers.NewReportHandler(store)
	contextHandler := handlers.NewContextHandler(processor)
	wsHandler := handlers.NewWebSocketHandler(evaluator, embedder, cfg.Evaluation)

	api := app.Group("/api/v1")

	api.Post("/evaluate/combined", evaluateHandler.HandleEvaluateCombined)
	api.Get("/reports", reportHandler.ListReports)
	api.Get("/reports/:id", reportHandler.GetReport)
	api.Post("/context/html", contextHandler.BuildFromHTML)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":            "ready",
			"embedding_backend": embedder.Name(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
