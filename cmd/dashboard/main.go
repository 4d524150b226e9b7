// cmd/dashboard/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/equibase/jobdash/internal/api"
	"github.com/equibase/jobdash/internal/availability"
	"github.com/equibase/jobdash/internal/bus"
	"github.com/equibase/jobdash/internal/jobcache"
	"github.com/equibase/jobdash/internal/joblist"
	"github.com/equibase/jobdash/internal/jobsync"
	"github.com/equibase/jobdash/internal/onboarding"
	"github.com/equibase/jobdash/internal/session"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		fatal(logger, "load config", err)
	}
	logger.Info("dashboard starting",
		"api_base_url", cfg.APIBaseURL,
		"sync_mode", cfg.SyncMode,
		"page_limit", cfg.PageLimit,
		"api_timeout_ms", cfg.APITimeoutMS)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var refresher session.Refresher
	if cfg.AuthTokenURL != "" {
		refresher = session.NewHTTPRefresher(cfg.AuthTokenURL, cfg.AuthAPIKey, nil)
	}
	sessions := session.NewStore(refresher, logger)
	if cfg.AccessToken != "" {
		sessions.Set(&session.Session{AccessToken: cfg.AccessToken, RefreshToken: cfg.RefreshToken})
	}
	unsubSession := sessions.OnChange(func(s *session.Session) {
		logger.Info("session updated", "has_session", s != nil)
	})
	defer unsubSession()

	tracker := availability.New(logger)
	tracker.HealthPollInterval = cfg.healthPoll()
	tracker.IdleCheckInterval = cfg.idleCheck()
	tracker.IdleThreshold = cfg.idleThreshold()

	client := api.New(cfg.APIBaseURL, api.Options{
		Timeout: cfg.apiTimeout(),
		Tokens:  sessions,
		Status:  tracker,
		Notify: func(message string) {
			logger.Warn("server notice", "message", message)
		},
		Logger: logger,
	})

	cache := jobcache.New()

	var notifier jobsync.Notifier
	if cfg.SyncMode == "push" {
		nc, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			fatal(logger, "connect to NATS", err, "nats_url", cfg.NATSURL)
		}
		logger.Info("connected to NATS", "nats_url", cfg.NATSURL, "subject", cfg.UpdateSubject)
		defer nc.Close()
		notifier = jobsync.NewPushNotifier(nc, cfg.UpdateSubject, logger)
	} else {
		notifier = jobsync.NewPollNotifier(cfg.jobPoll())
	}

	engine := jobsync.NewEngine(notifier, cache, logger)
	defer engine.Stop()

	statePath := cfg.StatePath
	if statePath == "" {
		statePath, err = onboarding.DefaultPath()
		if err != nil {
			fatal(logger, "resolve state path", err)
		}
	}
	tour, err := onboarding.Load(statePath)
	if err != nil {
		fatal(logger, "load onboarding state", err)
	}
	if !tour.HasSeen() {
		tour.Show()
		logger.Info("onboarding tour open", "state_path", statePath)
	}

	unsubStatus := tracker.Subscribe(func(s availability.Status) {
		logger.Info("availability changed", "status", s)
	})
	defer unsubStatus()

	healthCheck := func(ctx context.Context) error {
		_, err := client.CheckHealth(ctx)
		return err
	}
	go tracker.RunStartupCheck(ctx, healthCheck)
	go tracker.RunIdleChecker(ctx)

	controller := joblist.NewController(client, cache, tracker, engine, joblist.Options{
		Limit:  cfg.PageLimit,
		Logger: logger,
	})
	controller.Start(ctx)
	defer controller.Stop()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
			snap := controller.Snapshot()
			logger.Info("job list",
				"state", snap.State,
				"page", snap.Page,
				"rows", len(snap.Jobs),
				"can_prev", snap.CanPrev,
				"can_next", snap.CanNext,
				"watching", engine.Watching(),
				"availability", tracker.Status())
		}
	}
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
