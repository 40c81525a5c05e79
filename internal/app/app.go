// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garyellow/ptc-frontdesk/internal/archive"
	"github.com/garyellow/ptc-frontdesk/internal/bot"
	"github.com/garyellow/ptc-frontdesk/internal/buildinfo"
	"github.com/garyellow/ptc-frontdesk/internal/config"
	"github.com/garyellow/ptc-frontdesk/internal/intent"
	"github.com/garyellow/ptc-frontdesk/internal/knowledge"
	"github.com/garyellow/ptc-frontdesk/internal/logger"
	"github.com/garyellow/ptc-frontdesk/internal/metrics"
	"github.com/garyellow/ptc-frontdesk/internal/r2client"
	"github.com/garyellow/ptc-frontdesk/internal/ratelimit"
	"github.com/garyellow/ptc-frontdesk/internal/reply"
	"github.com/garyellow/ptc-frontdesk/internal/sentry"
	"github.com/garyellow/ptc-frontdesk/internal/session"
	"github.com/garyellow/ptc-frontdesk/internal/storage"
	"github.com/garyellow/ptc-frontdesk/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	recorder       storage.Recorder
	sessions       session.Store
	memSessions    *session.MemoryStore // nil for the Redis backend
	engine         *bot.Engine
	chatLimiter    *ratelimit.KeyedLimiter
	webhookHandler *webhook.Handler  // nil unless LINE is configured
	archiver       *archive.Archiver // nil unless R2 is configured
	archives       archive.Fetcher   // nil unless R2 is configured
	router         *gin.Engine
	server         *http.Server
	wg             sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken: cfg.BetterStackToken,
	})

	log = log.WithField("service", buildinfo.Service)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context calls get request and session IDs too.
	slog.SetDefault(log.Logger)

	log.WithFields(buildinfo.Fields()).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.Environment,
		Release:     buildinfo.Release(),
	}); err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	if sentry.IsEnabled() {
		log.WithField("environment", cfg.Environment).Info("Error tracking enabled")
	}

	kb, err := knowledge.Load(cfg.KnowledgeFile)
	if err != nil {
		return nil, fmt.Errorf("knowledge: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	recorder, err := openRecorder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	log.WithField("backend", cfg.StatsBackend).WithField("data_dir", cfg.DataDir).Info("Stats store ready")

	sessions, memSessions, err := openSessions(ctx, cfg)
	if err != nil {
		_ = recorder.Close()
		return nil, fmt.Errorf("sessions: %w", err)
	}
	log.WithField("backend", cfg.Session.Backend).WithField("ttl", cfg.Session.TTL.String()).Info("Session store ready")

	app := &Application{
		cfg:         cfg,
		logger:      log,
		metrics:     m,
		registry:    registry,
		recorder:    recorder,
		sessions:    sessions,
		memSessions: memSessions,
		engine: bot.NewEngine(bot.EngineConfig{
			Classifier:       intent.Default(),
			Composer:         reply.NewComposer(kb),
			Sessions:         sessions,
			Recorder:         recorder,
			Logger:           log,
			Metrics:          m,
			LogMaxInputChars: cfg.LogMaxInputChars,
		}),
		chatLimiter: ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Name:          "session",
			Burst:         cfg.Session.RateBurst,
			RefillRate:    cfg.Session.RateRefillPerSec,
			CleanupPeriod: config.RateLimiterCleanupInterval,
			Metrics:       m,
		}),
	}

	if cfg.LineEnabled() {
		app.webhookHandler, err = webhook.NewHandler(webhook.HandlerConfig{
			ChannelSecret: cfg.LineChannelSecret,
			ChannelToken:  cfg.LineChannelToken,
			Responder:     app.engine,
			Logger:        log,
			Metrics:       m,
			Limiter:       app.chatLimiter,
			Timeout:       config.WebhookProcessing,
			MaxInputRunes: cfg.MaxInputLength,
		})
		if err != nil {
			app.closeStores()
			return nil, fmt.Errorf("webhook: %w", err)
		}
		log.Info("LINE webhook enabled")
	}

	if cfg.R2.Enabled() {
		r2, err := r2client.New(ctx, r2client.Config{
			Endpoint:    cfg.R2.Endpoint,
			AccessKeyID: cfg.R2.AccessKeyID,
			SecretKey:   cfg.R2.SecretAccessKey,
			BucketName:  cfg.R2.Bucket,
		})
		if err != nil {
			app.closeStores()
			return nil, fmt.Errorf("r2: %w", err)
		}
		app.archiver = archive.New(archive.Config{
			Store:   r2,
			Source:  recorder,
			Logger:  log,
			Metrics: m,
		})
		app.archives = r2
		log.WithField("bucket", r2.Bucket()).WithField("hour", cfg.R2.ArchiveHour).Info("Interaction log archive enabled")
	}

	gin.SetMode(gin.ReleaseMode)
	app.router = app.newRouter()

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

func openRecorder(ctx context.Context, cfg *config.Config) (storage.Recorder, error) {
	switch cfg.StatsBackend {
	case config.StatsBackendMemory:
		return storage.NewMemoryRecorder(), nil
	case config.StatsBackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return storage.NewSQLiteRecorder(ctx, cfg.SQLitePath(), config.DatabaseBusyTimeout)
	default:
		return storage.NewFileRecorder(cfg.DataDir)
	}
}

func openSessions(ctx context.Context, cfg *config.Config) (session.Store, *session.MemoryStore, error) {
	if cfg.Session.Backend == config.SessionBackendRedis {
		store, err := session.NewRedisStore(ctx, cfg.Session.RedisURL, cfg.Session.TTL)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	mem := session.NewMemoryStore(cfg.Session.TTL)
	return mem, mem, nil
}

// Run starts the HTTP server and background jobs.
//
// Shutdown order: cancel background jobs and wait for them, then stop the
// HTTP server, drain webhook events and close the stores last, so no job
// writes to a closed database.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()

	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.memSessions != nil {
		a.wg.Go(func() {
			a.sessionCleanup(ctx)
		})
	}
	if a.archiver != nil {
		a.wg.Go(func() {
			a.dailyArchive(ctx)
		})
	}
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the HTTP server and closes resources.
// Call it only after background jobs have returned.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.webhookHandler != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
	}

	a.logger.Info("Closing resources...")
	a.closeStores()

	if !sentry.Flush(2 * time.Second) {
		a.logger.Warn("Error events not flushed before shutdown")
	}

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// closeStores releases the limiter, session store and stats store.
func (a *Application) closeStores() {
	if a.chatLimiter != nil {
		a.chatLimiter.Stop()
	}
	if closer, ok := a.sessions.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "sessions").Error("Component close error")
		}
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "stats").Error("Component close error")
		}
	}
}
