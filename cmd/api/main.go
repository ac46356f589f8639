package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prize-scratch-engine/config"
	httpHandler "prize-scratch-engine/internal/adapter/http/handler"
	"prize-scratch-engine/internal/adapter/http/middleware"
	pgStorage "prize-scratch-engine/internal/adapter/storage/postgres"
	redisStorage "prize-scratch-engine/internal/adapter/storage/redis"
	"prize-scratch-engine/internal/core/ports"
	"prize-scratch-engine/internal/jobs"
	"prize-scratch-engine/internal/service"
	"prize-scratch-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Prize Scratch Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	playerRepo := pgStorage.NewPlayerRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	productRepo := pgStorage.NewProductRepo(pool)
	gameRepo := pgStorage.NewGameRepo(pool)
	licenseRepo := pgStorage.NewLicenseRepo(pool)
	usageRepo := pgStorage.NewUsageRecordRepo(pool)
	depositRepo := pgStorage.NewDepositRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(playerRepo, walletRepo, hashSvc, tokenSvc)
	licenseMeter := service.NewLicenseService(licenseRepo, usageRepo, log)
	gameSvc := service.NewGameService(
		playerRepo,
		walletRepo,
		productRepo,
		gameRepo,
		idempotencyRepo,
		idempotencyCache,
		licenseMeter,
		transactor,
		service.NewOutcomeResolver(service.DefaultBoostPolicy()),
		service.NewDrawSource(),
		cfg.Game.TxTimeout,
		log,
	)
	walletSvc := service.NewWalletService(walletRepo, depositRepo, transactor, log)

	// Background jobs: periodic RTP drift audit against the game ledger.
	scheduler := jobs.NewScheduler(log)
	auditor := jobs.NewRTPAuditor(productRepo, gameRepo, log)
	if err := scheduler.AddJob(cfg.Game.RTPAuditSchedule, "rtp_audit", auditor.Run); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule RTP audit")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:    authSvc,
		GameSvc:    gameSvc,
		WalletSvc:  walletSvc,
		SigSvc:     sigSvc,
		NonceStore: nonceStore,
		TokenSvc:   tokenSvc,
		WebhookAuth: middleware.WebhookAuthConfig{
			Secret:        cfg.Webhook.Secret,
			TimestampSkew: cfg.Webhook.TimestampSkew,
			NonceTTL:      cfg.Webhook.NonceTTL,
		},
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
