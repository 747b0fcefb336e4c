package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	httpapi "invite-tracker-backend/internal/api/http"
	"invite-tracker-backend/internal/config"
	"invite-tracker-backend/internal/jobs"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/metrics"
	"invite-tracker-backend/internal/notify"
	"invite-tracker-backend/internal/scheduler"
	"invite-tracker-backend/internal/security"
	"invite-tracker-backend/internal/service"
	"invite-tracker-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Invite Tracker Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Milestone policy",
		"eligibility_threshold", cfg.Policy.EligibilityThreshold,
		"progress_interval", cfg.Policy.ProgressInterval,
		"reward_per_invite", cfg.Policy.RewardPerInvite,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Storage
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open storage", "type", cfg.Storage.Type, "error", err)
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	// Initialize Services
	svc, err := service.NewInviteTrackingService(store, cfg.Policy, nil)
	if err != nil {
		log.Fatalf("Failed to create invite tracking service: %v", err)
	}

	// Initialize Security
	tokenManager, err := security.NewTokenManager(cfg.Auth.Secret)
	if err != nil {
		log.Fatalf("Failed to create token manager: %v", err)
	}

	// Initialize Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize HTTP API
	handler := httpapi.NewHandler(svc, buildDispatcher(cfg.Notify), m)
	router := httpapi.NewRouter(handler, httpapi.NewAuthMiddleware(tokenManager), metrics.Handler(registry))
	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		ErrorLog:     slog.NewLogLogger(logger.Get().Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Scheduler.Enabled {
		cronScheduler, err := scheduler.NewScheduler(jobs.NewJobRunner(svc, store, cfg))
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		g.Go(func() error {
			cronScheduler.Start()
			<-gctx.Done()
			cronScheduler.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		handler.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

// buildDispatcher wires every configured notification sink.
func buildDispatcher(cfg config.NotifyConfig) notify.Fanout {
	var dispatchers notify.Fanout
	if cfg.Log {
		dispatchers = append(dispatchers, notify.LogDispatcher{})
	}
	if cfg.Webhook.URL != "" {
		logger.Info("Webhook notifications enabled", "url", cfg.Webhook.URL)
		dispatchers = append(dispatchers, notify.NewWebhookDispatcher(
			cfg.Webhook.URL,
			cfg.Webhook.Token,
			cfg.Webhook.Timeout(),
			cfg.Webhook.MaxRetryWait(),
		))
	}
	if cfg.SendGrid.APIKey != "" {
		logger.Info("Operator e-mail enabled", "to", cfg.SendGrid.OperatorEmail)
		dispatchers = append(dispatchers, notify.NewOperatorMailer(
			cfg.SendGrid.APIKey,
			cfg.SendGrid.FromEmail,
			cfg.SendGrid.FromName,
			cfg.SendGrid.OperatorEmail,
		))
	}
	if len(dispatchers) == 0 {
		logger.Warn("No notification sink configured; intents are only returned to callers")
	}
	return dispatchers
}
