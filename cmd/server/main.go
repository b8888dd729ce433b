package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lettersontherocks/AI-Interview/internal/config"
	"github.com/lettersontherocks/AI-Interview/internal/entitlement"
	"github.com/lettersontherocks/AI-Interview/internal/events"
	"github.com/lettersontherocks/AI-Interview/internal/handlers"
	"github.com/lettersontherocks/AI-Interview/internal/jobs"
	"github.com/lettersontherocks/AI-Interview/internal/llm"
	_ "github.com/lettersontherocks/AI-Interview/internal/llm/gemini"
	"github.com/lettersontherocks/AI-Interview/internal/metrics"
	authmw "github.com/lettersontherocks/AI-Interview/internal/middleware"
	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/prompts"
	"github.com/lettersontherocks/AI-Interview/internal/questionbank"
	"github.com/lettersontherocks/AI-Interview/internal/repositories"
	"github.com/lettersontherocks/AI-Interview/internal/routers"
	"github.com/lettersontherocks/AI-Interview/internal/scoring"
	"github.com/lettersontherocks/AI-Interview/internal/session"
	"github.com/lettersontherocks/AI-Interview/internal/utils"
	"github.com/lettersontherocks/AI-Interview/internal/wechat"
)

// initDatabase opens the configured database and migrates the schema.
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.Postgres.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// initRedis returns nil when no redis is configured.
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// app holds everything main needs to serve and shut down.
type app struct {
	router *chi.Mux
	reaper *jobs.ReaperJob
}

// buildApp wires the components. provider may be nil, in which case questions
// come from the fallback pool and answers are keyword scored.
func buildApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, provider llm.Provider, promptManager prompts.PromptProvider, logger *zap.Logger) (*app, error) {
	catalog, styles, plans, err := questionbank.Load()
	if err != nil {
		return nil, err
	}

	var generator questionbank.Generator
	var scorer scoring.Scorer = scoring.KeywordScorer{}
	if provider != nil {
		generator = questionbank.NewLLMGenerator(provider, promptManager)
		if cfg.Scorer == "llm" {
			scorer = scoring.NewLLMScorer(provider, promptManager)
		}
	} else if cfg.Scorer == "llm" {
		logger.Warn("No AI provider, falling back to keyword scoring")
	}

	bank := questionbank.NewBank(catalog, styles, plans, generator,
		questionbank.DefaultPolicy(cfg.MaxQuestions, cfg.MinQuestions),
		questionbank.Options{
			MaxQuestions:      cfg.MaxQuestions,
			GenerationTimeout: cfg.GenerationTimeout,
			Attempts:          cfg.GenerationAttempts,
			Fallback:          cfg.FallbackQuestions,
		}, logger)
	scoringEngine := scoring.NewEngine(scorer, cfg.ScoringTimeout, scoring.DefaultCacheTTL, logger)

	var locker session.Locker = session.NewKeyedMutex()
	var publisher events.Publisher = events.NopPublisher{}
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb, logger)
		if cfg.LockBackend == "redis" {
			locker = session.NewRedisLocker(rdb, 0)
		}
	}

	ledger := entitlement.NewLedger(db, entitlement.Limits{
		FreeDaily:   cfg.FreeDailyLimit,
		NormalDaily: cfg.NormalDailyLimit,
	}, cfg.Location, logger)

	orch := session.NewOrchestrator(
		&repositories.SessionRepository{DB: db},
		&repositories.ReportRepository{DB: db},
		ledger,
		bank,
		scoringEngine,
		locker,
		publisher,
		session.Options{
			MaxQuestions:   cfg.MaxQuestions,
			ReservationTTL: cfg.ReservationTTL,
			RetryWindow:    cfg.RetryWindow,
		},
		logger,
	)

	interviewHandler := handlers.NewInterviewHandler(orch, cfg.AuthRequired, logger)
	userHandler := handlers.NewUserHandler(
		&repositories.UserRepository{DB: db},
		ledger,
		wechat.NewClient(cfg.WechatAppID, cfg.WechatAppSecret, cfg.WechatBaseURL, logger),
		cfg.JWTSecret,
		logger,
	)
	paymentHandler := handlers.NewPaymentHandler(
		entitlement.NewPurchases(ledger, &repositories.PaymentRepository{DB: db}, logger), logger)
	catalogHandler := handlers.NewCatalogHandler(catalog, styles)
	healthHandler := handlers.NewHealthHandler(db, provider, catalog, cfg.FallbackQuestions)

	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-Payment-Secret"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, middleware.Timeout(cfg.RequestTimeout))
	router.Use(metrics.Middleware)

	routers.HealthRoutes(router, healthHandler)
	routers.APIRoutes(router,
		routers.CatalogRoutes(catalogHandler),
		routers.InterviewRoutes(interviewHandler, authmw.Authenticate(cfg.JWTSecret, cfg.AuthRequired)),
		routers.UserRoutes(userHandler),
		routers.PaymentRoutes(paymentHandler, cfg.PaymentSecret),
	)

	reaper := jobs.NewReaperJob(orch, scoringEngine, jobs.ReaperConfig{Schedule: cfg.ReaperSchedule}, logger)
	return &app{router: router, reaper: reaper}, nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("lock_backend", cfg.LockBackend),
		zap.String("scorer", cfg.Scorer))

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := initRedis(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	provider, err := llm.NewProvider(cfg.Provider, llm.Settings{
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		BaseURL: cfg.AIBaseURL,
	})
	if err != nil {
		if !cfg.FallbackQuestions {
			logger.Fatal("Failed to initialize AI provider", zap.Error(err))
		}
		logger.Warn("AI provider unavailable, serving fallback questions", zap.Error(err))
		provider = nil
	}

	application, err := buildApp(cfg, db, rdb, provider, promptManager, logger)
	if err != nil {
		logger.Fatal("Failed to build application", zap.Error(err))
	}

	if err := application.reaper.Start(); err != nil {
		logger.Fatal("Failed to start reservation reaper", zap.Error(err))
	}

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      application.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")
	application.reaper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("Interview service exited")
}
