package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garyohosu/translate-nudge/api"
	"github.com/garyohosu/translate-nudge/browser"
	"github.com/garyohosu/translate-nudge/clock"
	"github.com/garyohosu/translate-nudge/config"
	"github.com/garyohosu/translate-nudge/report"
	"github.com/garyohosu/translate-nudge/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	if cfg.Target.URL == "" {
		slog.Error("NUDGE_TARGET_URL is required")
		os.Exit(1)
	}

	// ── 3. Apply the site profile and validate ──────────────────────
	if err := applyProfile(cfg); err != nil {
		slog.Error("failed to load site profiles", "error", err)
		os.Exit(1)
	}
	if err := cfg.Nudge.Validate(); err != nil {
		slog.Error("invalid nudge configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("translate-nudge starting",
		"target", cfg.Target.URL,
		"attach", cfg.Browser.CDPURL != "",
		"debounce", cfg.Nudge.DebounceDelay,
		"cooldown", cfg.Nudge.Cooldown,
		"selector", cfg.Nudge.CandidateSelector,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 4. Connect to the browser and open the target page ──────────
	sess, err := browser.Connect(cfg.Browser, slog.Default())
	if err != nil {
		slog.Error("failed to initialise browser", "error", err)
		os.Exit(1)
	}
	defer sess.Close()

	page, err := sess.Open(ctx, cfg.Target.URL, cfg.Target.NavigationTimeout)
	if err != nil {
		slog.Error("failed to open target page", "error", err)
		os.Exit(1)
	}

	// ── 5. Build scheduler and action runner ────────────────────────
	var notifier *webhook.Notifier
	if cfg.Webhook.URL != "" {
		notifier = webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret, slog.Default())
		slog.Info("fire notifications enabled", "url", cfg.Webhook.URL)
	}
	p, err := buildPipeline(cfg.Nudge, browser.NewDocument(page), clock.New(), notifier, slog.Default())
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	// ── 6. Pump page signals into the scheduler ─────────────────────
	watcher := browser.NewWatcher(page, p.scheduler, cfg.Nudge.ScrollThreshold, cfg.Nudge.PollInterval, slog.Default())
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := watcher.Run(ctx); err != nil {
			slog.Error("signal watcher stopped", "error", err)
		}
	}()

	// ── 7. Start HTTP control API ───────────────────────────────────
	var srv *http.Server
	if cfg.Server.Enabled {
		router := api.NewRouter(ctx, cfg, api.Deps{
			Scheduler: p.scheduler,
			Runner:    p.runner,
			Seen:      p.seen,
			Renderer:  report.NewRenderer(cfg.Target.URL),
			Target:    cfg.Target.URL,
			StartTime: time.Now(),
		})
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv = &http.Server{
			Addr:    addr,
			Handler: router,
		}

		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server error", "error", err)
				os.Exit(1)
			}
		}()
	}

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case <-watchDone:
		slog.Warn("watcher exited, shutting down")
	}

	p.scheduler.Stop()
	cancel()
	<-watchDone

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
	}

	st := p.scheduler.Stats()
	slog.Info("translate-nudge stopped",
		"fired", st.Fired,
		"suppressedCooldown", st.SuppressedCooldown,
		"suppressedInFlight", st.SuppressedInFlight,
		"processed", p.seen.Len(),
	)
}

// applyProfile overlays the site profile matching the target, if any.
func applyProfile(cfg *config.Config) error {
	if cfg.Target.ProfilesPath == "" {
		return nil
	}
	profiles, err := config.LoadProfiles(cfg.Target.ProfilesPath)
	if err != nil {
		return err
	}
	if sp := profiles.Match(cfg.Target.URL); sp != nil {
		sp.Apply(&cfg.Nudge)
		slog.Info("site profile applied", "host", sp.Host)
	}
	return nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
