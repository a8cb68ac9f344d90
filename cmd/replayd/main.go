package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reviewsync/internal/core/replay"
	"reviewsync/internal/core/services"
	backupinfra "reviewsync/internal/infrastructure/backup"
	httphandlers "reviewsync/internal/handlers/http"
	wshandlers "reviewsync/internal/handlers/ws"
	"reviewsync/internal/infrastructure/media"
	"reviewsync/internal/infrastructure/middleware"
	"reviewsync/internal/infrastructure/monitoring"
	"reviewsync/internal/infrastructure/reliability"
	repositories "reviewsync/internal/infrastructure/repositories"
	"reviewsync/pkg/backup"
	"reviewsync/pkg/circuitbreaker"
	"reviewsync/pkg/config"
	"reviewsync/pkg/logger"
	"reviewsync/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/reviewsync/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerEndpoint,
		Environment: "production",
		SampleRate:  1.0,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	// Initialize repositories
	cachedSessionRepo := repositories.NewCachedSessionRepository(
		repoFactory.CreateSessionRepository(),
		30*time.Second,
	)
	defer cachedSessionRepo.Stop()
	actionRepo := repoFactory.CreateActionRepository()
	strokeRepo := repoFactory.CreateStrokeRepository()

	// Initialize media handles behind a circuit breaker, so a dead media host
	// fails replay starts fast instead of eating the full probe timeout.
	playerFactory := media.NewPlayerFactory(
		cfg.Media.LoadTimeout,
		cfg.Media.LoadRetries,
		cfg.Media.RetryInterval,
		log,
	)
	mediaFactory := reliability.NewMediaFactoryWrapper(playerFactory, circuitbreaker.DefaultConfig(), log)

	// Initialize monitoring
	prometheusCollector := monitoring.NewPrometheusCollector()

	// Initialize replay service
	replayService := services.NewReplayService(
		cachedSessionRepo,
		actionRepo,
		strokeRepo,
		mediaFactory,
		prometheusCollector,
		replay.Config{
			TickInterval:   cfg.Replay.TickInterval,
			DriftTolerance: cfg.Replay.DriftTolerance,
			SettleDelay:    cfg.Replay.SettleDelay,
			MinOpacity:     cfg.Replay.MinOpacity,
		},
		log,
	)

	// Scheduled session archives (optional)
	if cfg.Backup.Enabled {
		backupStorage, err := backup.NewFileStorage(cfg.Backup.Dir)
		if err != nil {
			log.Fatalw("failed to create backup storage", "error", err)
		}
		scheduler := backupinfra.NewScheduler(
			backup.NewBackupService(backupStorage, "1"),
			cachedSessionRepo,
			actionRepo,
			strokeRepo,
			backupinfra.Config{
				Interval:      cfg.Backup.Interval,
				RetentionDays: cfg.Backup.RetentionDays,
			},
			log,
		)
		go scheduler.Start(context.Background())
		defer scheduler.Stop()
		log.Infow("session archiving enabled", "dir", cfg.Backup.Dir, "interval", cfg.Backup.Interval)
	}

	// Initialize handlers
	sessionHandler := httphandlers.NewSessionHandler(replayService)
	feedServer := wshandlers.NewFeedServer(replayService, log)
	feedServer.SetPingInterval(cfg.Feed.PingInterval)
	feedServer.SetPongTimeout(cfg.Feed.PongTimeout)
	feedServer.SetWriteTimeout(cfg.Feed.WriteTimeout)
	feedServer.SetMaxMessageSize(cfg.RateLimiting.WebSocket.MaxMessageSizeBytes)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLoggingMiddleware(zapLogger))
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))

	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	// Global HTTP rate limiting (if enabled)
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	sessionHandler.SetupRoutes(router)
	feedServer.SetupRoutes(router)

	// Health check endpoint
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("storage", func(ctx context.Context) (bool, error) {
		if err := repoFactory.HealthCheck(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, 30*time.Second, 2*time.Second)

	router.GET("/health", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := 200
		if status.Status != "healthy" {
			code = 503
		}
		c.JSON(code, gin.H{
			"status":    status.Status,
			"timestamp": status.Timestamp,
			"uptime":    time.Since(startTime).String(),
			"checks":    status.Checks,
		})
	})

	// Feed endpoint liveness
	router.GET("/health/feed", gin.WrapF(feedServer.HealthCheck))

	// Readiness endpoint checks the storage backend
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := repoFactory.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{
				"status":       "not_ready",
				"timestamp":    time.Now(),
				"dependencies": "unhealthy",
				"error":        err.Error(),
			})
			return
		}

		c.JSON(200, gin.H{
			"status":       "ready",
			"timestamp":    time.Now(),
			"dependencies": "ok",
		})
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting ReviewSync replay server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down ReviewSync replay server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	// Flush tracing spans
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	// Close repository factory
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("ReviewSync replay server stopped")
}
