package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/castle-blotto/internal/adapter/blottopresenter"
	"github.com/park285/castle-blotto/internal/archive"
	"github.com/park285/castle-blotto/internal/blotto"
	appcfg "github.com/park285/castle-blotto/internal/config"
	"github.com/park285/castle-blotto/internal/eventbus"
	"github.com/park285/castle-blotto/internal/gateway"
	"github.com/park285/castle-blotto/internal/httpapi"
	"github.com/park285/castle-blotto/internal/metrics"
	"github.com/park285/castle-blotto/internal/msgcat"
	"github.com/park285/castle-blotto/internal/obslog"
	"github.com/park285/castle-blotto/internal/service/tournament"
	"github.com/park285/castle-blotto/internal/webhook"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	if err := appcfg.LoadDotenv(); err != nil {
		log.Fatalf("dotenv error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	m := metrics.New()

	// archive: Postgres when configured, in-memory otherwise
	repo := archive.NewMemoryRepository()
	closeRepo := func() error { return nil }
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		repo, closeRepo, err = archive.NewPostgresRepository(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
	}

	deps := tournament.Deps{
		Engine:    blotto.NewEngine(cfg.EngineOptions()),
		Formatter: blottopresenter.NewFormatter(catalog),
		Archive:   repo,
		Metrics:   m,
		Logger:    logger,
	}
	var bus *eventbus.Publisher
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		bus, err = eventbus.New(ctx, cfg.RedisURL, cfg.EventChannel, cfg.SnapshotTTL)
		cancel()
		if err != nil {
			log.Fatalf("event bus init error: %v", err)
		}
		deps.Events = bus
	}
	if cfg.ResultsWebhookURL != "" {
		deps.Reporter = webhook.NewClient(cfg.ResultsWebhookURL, webhook.WithTimeout(cfg.WebhookTimeout))
	}

	svc, err := tournament.NewService(deps, tournament.Config{
		SinkTimeout: cfg.WebhookTimeout,
		AttachImage: deps.Reporter != nil,
	})
	if err != nil {
		log.Fatalf("service init error: %v", err)
	}
	hub := gateway.NewHub(svc, gateway.Options{
		SendQueue:      cfg.SendQueue,
		WriteTimeout:   cfg.WriteTimeout,
		InboundRate:    rate.Limit(cfg.InboundRate),
		InboundBurst:   cfg.InboundBurst,
		OriginPatterns: cfg.AllowedOrigins,
		Metrics:        m,
	})
	svc.SetDeliverer(hub)

	router := httpapi.NewRouter(svc, hub, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		HistoryLimit:   cfg.HistoryLimit,
		Metrics:        m.Handler(),
		Logger:         logger,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server_start",
			zap.String("addr", cfg.Addr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("authority_policy", string(cfg.AuthorityPolicy)),
			zap.Bool("eventbus", bus != nil),
			zap.Bool("postgres", cfg.DatabaseURL != ""),
			zap.Bool("webhook", deps.Reporter != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("server_shutdown", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := hub.Close(ctx); err != nil {
		logger.Warn("hub_close_failed", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	if err := svc.Close(ctx); err != nil {
		logger.Warn("service_close_failed", zap.Error(err))
	}
	if bus != nil {
		_ = bus.Close()
	}
	_ = closeRepo()
}
