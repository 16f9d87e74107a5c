package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efb/signals/signals-backend/internal/config"
	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/handler"
	"github.com/efb/signals/signals-backend/internal/middleware"
	"github.com/efb/signals/signals-backend/internal/registry"
	"github.com/efb/signals/signals-backend/internal/repository/cache"
	"github.com/efb/signals/signals-backend/internal/repository/postgres"
	"github.com/efb/signals/signals-backend/internal/repository/upstream"
	"github.com/efb/signals/signals-backend/internal/service"
	"github.com/efb/signals/signals-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown LOG_LEVEL, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Load(cfg.SourcesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load source registry")
	}
	log.Info().Int("sources", reg.Len()).Msg("Loaded source registry")

	fetcher := upstream.NewHTTPFetcher(upstream.HTTPFetcherConfig{
		Timeout:      cfg.Fetch.Timeout,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		UserAgent:    cfg.Fetch.UserAgent,
	})

	// Series cache is optional; without it every request rebuilds
	var seriesCache domain.SeriesCache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisSeriesCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, serving series without a cache")
		} else {
			defer redisCache.Close()
			seriesCache = redisCache
			log.Info().Msg("Connected to redis")
		}
	}

	// Donation ledger
	var ledger domain.DonationLedger
	switch cfg.Donations.Ledger {
	case config.LedgerPostgres:
		pool, err := pgxpool.New(ctx, cfg.Donations.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping database")
		}
		log.Info().Msg("Connected to database")
		ledger = postgres.NewDonationRepository(pool)
	default:
		ledger = upstream.NewWarehouseLedger(fetcher, upstream.WarehouseConfig{
			URL:      cfg.Donations.WarehouseURL,
			APIKey:   cfg.Donations.WarehouseAPIKey,
			Database: cfg.Donations.WarehouseDatabase,
		})
	}

	// Initialize services
	seriesService := service.NewSeriesService(reg, fetcher, seriesCache, service.SeriesServiceConfig{
		DefaultCacheTTL:  cfg.CacheDefaultTTL,
		BatchConcurrency: cfg.BatchConcurrency,
	})
	donationService := service.NewDonationService(ledger, donationServiceConfig(cfg.Donations))

	// WebSocket hub for refresh notifications
	hub := websocket.NewHub()

	var refreshWorker *service.RefreshWorker
	if cfg.RefreshSchedule != "" {
		workerCfg := service.DefaultRefreshWorkerConfig()
		workerCfg.Schedule = cfg.RefreshSchedule
		refreshWorker, err = service.NewRefreshWorker(seriesService, donationService, hub, log.Logger, workerCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create refresh worker")
		}
		refreshWorker.Start(ctx)
	}

	// Initialize handlers
	seriesHandler := handler.NewSeriesHandler(seriesService)
	donationHandler := handler.NewDonationHandler(donationService)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.CORSOrigins)

	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		MaxAge:       86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(middleware.RequestLogger())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Register routes; the rate limit covers the data endpoints only
	handler.RegisterRoutes(e, seriesHandler, donationHandler, wsHandler, reg.IDs(), middleware.RateLimitMiddleware(rateLimiter))

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	if refreshWorker != nil {
		refreshWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// donationServiceConfig maps donation settings onto the service config
func donationServiceConfig(d config.DonationsConfig) service.DonationServiceConfig {
	cfg := service.DefaultDonationServiceConfig()
	cfg.Status = d.Status
	cfg.Since = d.Since
	cfg.RecencyMonths = d.RecencyMonths
	cfg.RowLimit = d.RowLimit
	if d.Location != nil {
		cfg.Location = d.Location
	}
	if d.YearCorrection != nil {
		cfg.Corrections = []service.YearCorrection{{From: d.YearCorrection.From, To: d.YearCorrection.To}}
	}
	return cfg
}
