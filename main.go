package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/auth"
	"github.com/tably-inc/tably-engine/pkg/config"
	"github.com/tably-inc/tably-engine/pkg/database"
	"github.com/tably-inc/tably-engine/pkg/handlers"
	"github.com/tably-inc/tably-engine/pkg/llm"
	"github.com/tably-inc/tably-engine/pkg/logging"
	"github.com/tably-inc/tably-engine/pkg/middleware"
	"github.com/tably-inc/tably-engine/pkg/repositories"
	"github.com/tably-inc/tably-engine/pkg/services"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load("config.yaml", Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Migrations run over database/sql; the pool itself is pgx.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	validator, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to initialize JWKS client", zap.Error(err))
	}
	authMiddleware := auth.NewMiddleware(validator, logger)

	llmClient, err := llm.NewFromConfig(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create model client", zap.Error(err))
	}

	tableRepo := repositories.NewTableRepository(db)
	recordRepo := repositories.NewRecordRepository(db)

	jobStore := services.NewJobStore(logger)
	go jobStore.StartSweeper(ctx, cfg.Generation.SweepInterval(), cfg.Generation.JobTimeout())

	intentParser := services.NewIntentParser(llmClient, logger)
	conversationEngine := services.NewConversationEngine(intentParser, cfg.Generation.MaxRowCount, cfg.Generation.DefaultRowCount, logger)
	generationService := services.NewGenerationService(tableRepo, recordRepo, jobStore, llmClient, services.GenerationConfig{
		MaxRowCount: cfg.Generation.MaxRowCount,
		Temperature: cfg.AI.Temperature,
		JobTimeout:  cfg.Generation.JobTimeout(),
	}, logger)
	previewService := services.NewPreviewService(jobStore, recordRepo, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAssistantHandler(conversationEngine, tableRepo, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewJobHandler(generationService, previewService, jobStore, logger).RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		_ = server.Shutdown(context.Background())
	}()

	logger.Info("Starting tably-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a production logger outside local development, where
// a human-readable one is more useful.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
