package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.mongodb.org/mongo-driver/mongo"

	"line-register-bot/config"
	"line-register-bot/handlers"
	"line-register-bot/middleware"
	"line-register-bot/services"
	"line-register-bot/webhooks"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})
	slog.SetDefault(slog.New(logHandler))

	if cfg.Claude.Debug {
		slog.Info("🔍 CLAUDE DEBUG MODE ENABLED")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var mongoClient *mongo.Client
	if cfg.Storage.Backend == "mongo" {
		mongoClient, err = services.InitMongoDB(ctx, cfg.Storage.MongoURI)
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer mongoClient.Disconnect(context.Background())
	}

	users, reports, err := openStores(ctx, cfg, mongoClient)
	if err != nil {
		slog.Error("Failed to open stores", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}

	stats, err := openNameStats(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open name statistics", "backend", cfg.Stats.Backend, "error", err)
		os.Exit(1)
	}
	if cfg.Stats.Backend != "redis" {
		n, err := services.RebuildNameStats(ctx, users, stats)
		if err != nil {
			slog.Error("Failed to rebuild name statistics", "error", err)
		} else {
			slog.Info("Name statistics rebuilt", "registeredUsers", n)
		}
	}

	// Conversation core
	policy := services.DefaultValidationPolicy()
	policy.AgeMin, policy.AgeMax = cfg.Policy.AgeMin, cfg.Policy.AgeMax
	policy.ReportDetailMax = cfg.Policy.ReportMaxRunes
	if len(cfg.Policy.Departments) > 0 {
		policy.Departments = services.ParseDepartments(cfg.Policy.Departments)
	}
	conversation := services.NewConversation(services.NewValidator(policy), services.NewFlow(cfg.Policy.AskDepartment))
	bot := services.NewBot(
		services.NewClassifier(services.DefaultModerationPolicy()),
		services.NewEscalationTracker(services.EscalationPolicy{
			Threshold:     cfg.Policy.BadThreshold,
			BlockDuration: cfg.Policy.BlockDuration,
		}),
		conversation,
		services.NewIntents(cfg.Location()),
		cfg.Policy.IdleTimeout,
	)

	line := services.NewLineClient(cfg.Line.APIBaseURL, cfg.Line.ChannelAccessToken)
	claude := services.NewClaudeClient(services.ClaudeConfig{
		APIURL:            cfg.Claude.APIURL,
		APIKey:            cfg.Claude.APIKey,
		Model:             cfg.Claude.Model,
		MaxTokens:         cfg.Claude.MaxTokens,
		Timeout:           cfg.Claude.Timeout,
		Debug:             cfg.Claude.Debug,
		RequestsPerMinute: cfg.Claude.RequestsPerMinute,
	})

	locks := services.NewKeyedMutex()
	admin := handlers.NewAdmin(users, reports, stats, locks, line)
	messages := handlers.NewMessageHandler(bot, users, reports, stats, claude, line, admin, locks, handlers.MessageConfig{
		BotName:       cfg.Claude.BotName,
		ReplyWindow:   cfg.Line.ReplyWindow,
		TopNamesLimit: cfg.Policy.TopNamesLimit,
		AITimeout:     cfg.Claude.Timeout,
		IsAdmin:       cfg.IsAdmin,
	})

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if cfg.Storage.StaleTTL > 0 && cfg.Storage.CleanupInterval > 0 {
		services.StartSessionCleanup(bgCtx, users, locks, cfg.Storage.CleanupInterval, cfg.Storage.StaleTTL)
	}

	app := newApp(cfg, messages, admin)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Shutting down")
		stopBackground()
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Server starting", "port", cfg.Port, "storage", cfg.Storage.Backend, "stats", cfg.Stats.Backend)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}

// newApp builds the Fiber app with every route
func newApp(cfg *config.Config, messages webhooks.MessageProcessor, admin *handlers.Admin) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("Request error", "error", err, "status", code)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path}\n",
	}))

	// Webhook processing outlives the request, so give it its own budget
	webhooks.RegisterRoutes(app, cfg.Line.ChannelSecret, messages, webhooks.Async, cfg.Claude.Timeout+cfg.Line.ReplyWindow)

	// Admin API (protected)
	handlers.RegisterAdminRoutes(app.Group("/api/admin", middleware.RequireAPIKey(cfg.Admin.APIKeyHash)), admin)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "line-register-bot",
		})
	})

	return app
}

func openStores(ctx context.Context, cfg *config.Config, client *mongo.Client) (services.UserStore, services.ReportStore, error) {
	switch cfg.Storage.Backend {
	case "mongo":
		db := client.Database(cfg.Storage.DatabaseName)
		users, err := services.NewMongoUserStore(ctx, db)
		if err != nil {
			return nil, nil, err
		}
		return users, services.NewMongoReportStore(db), nil
	case "memory":
		return services.NewMemoryUserStore(), services.NewMemoryReportStore(), nil
	default:
		users, err := services.NewFileUserStore(cfg.Storage.DataDir, cfg.Storage.UsersFile)
		if err != nil {
			return nil, nil, err
		}
		// Reports have no file backend; they live as long as the process
		return users, services.NewMemoryReportStore(), nil
	}
}

func openNameStats(ctx context.Context, cfg *config.Config) (services.NameStats, error) {
	if cfg.Stats.Backend != "redis" {
		return services.NewMemoryNameStats(), nil
	}
	client, err := services.OpenRedis(ctx, cfg.Stats.RedisAddr, cfg.Stats.RedisPassword, cfg.Stats.RedisDB)
	if err != nil {
		return nil, err
	}
	return services.NewRedisNameStats(client, cfg.Stats.KeyPrefix), nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
