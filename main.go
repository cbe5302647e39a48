package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dental-receptionist-server/internal/archive"
	"dental-receptionist-server/internal/bridge"
	"dental-receptionist-server/internal/config"
	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/flows"
	"dental-receptionist-server/internal/handlers"
	"dental-receptionist-server/internal/logger"
	"dental-receptionist-server/internal/middleware"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/routes"
)

func main() {
	// A missing .env is fine in containers
	envErr := godotenv.Load()

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logg, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()
	if envErr != nil {
		logg.Info("no .env file loaded", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Logger:          logg,
	})
	if err != nil {
		logg.Fatal("connect to database", zap.Error(err))
	}
	if err := models.Seed(db, cfg.Portal.Username, cfg.Portal.Password); err != nil {
		logg.Fatal("seed database", zap.Error(err))
	}

	publisher, err := events.Open(ctx, cfg.Events, logg)
	if err != nil {
		logg.Fatal("open events publisher", zap.Error(err))
	}
	defer func() { _ = publisher.Close() }()

	store, err := archive.Open(ctx, cfg.Archive, db)
	if err != nil {
		logg.Fatal("open transcript archive", zap.Error(err))
	}

	now := func() time.Time { return time.Now().In(cfg.ClinicLocation) }

	var answerer executors.Answerer
	if cfg.OpenAI.APIKey != "" {
		answerer = executors.NewOpenAIAnswerer(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	} else {
		logg.Warn("OPENAI_API_KEY not set; information answers and intent classification fall back to local rules")
	}
	info := executors.NewInformationExecutor(answerer, executors.LoadRules(cfg.RulesDir, logg), logg)
	ex := executors.NewSet(executors.Deps{DB: db, Log: logg, Events: publisher, Now: now}, info)

	var classifier flows.Classifier
	if answerer != nil {
		classifier = flows.NewLLMClassifier(answerer, logg)
	}
	textFlows := flows.NewRouter(ex, classifier, flows.Clock(now), logg)

	callBridge := bridge.New(bridge.NewDispatcher(ex, logg, now), cfg.Realtime, store, logg)

	// Initialize Gin router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logg))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	sessions := routes.SetupRoutes(router, routes.Dependencies{
		Context: ctx,
		DB:      db,
		Cfg:     cfg,
		Log:     logg,
		Events:  publisher,
		Archive: store,
		Bridge:  callBridge,
		Dial:    handlers.RealtimeDialer(cfg.Realtime.URL, cfg.OpenAI.APIKey),
		Flows:   textFlows,
		Now:     now,
	})

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logg.Info("server running", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server shutdown", zap.Error(err))
	}
	// Hijacked media streams outlive Shutdown; wait for their transcripts.
	if err := sessions.Drain(shutdownCtx); err != nil {
		logg.Error("calls still running at exit", zap.Error(err))
	}
}
