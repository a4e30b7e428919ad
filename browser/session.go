// Package browser connects the nudge pipeline to a live Chrome page over the
// DevTools protocol: it opens the target page, exposes it as a
// document.Document, and pumps its scroll and mutation signals into the
// trigger scheduler.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/garyohosu/translate-nudge/config"
	"github.com/garyohosu/translate-nudge/models"
)

// Session owns the browser connection and the watched page.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     config.BrowserConfig
	log     *slog.Logger

	// launched is true when we started the browser process ourselves.
	launched bool
	// created is true when the watched page is a tab we opened.
	created bool
}

// Connect attaches to cfg.CDPURL when set, otherwise launches a browser.
func Connect(cfg config.BrowserConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "browser")

	controlURL := cfg.CDPURL
	launched := false
	if controlURL == "" {
		u, err := newLauncher(cfg).Launch()
		if err != nil {
			return nil, models.NewNudgeError(
				models.OpConnect,
				models.ErrCodeBrowserCrash,
				"failed to launch browser",
				err,
			)
		}
		controlURL = u
		launched = true
		log.Info("browser launched", "controlURL", controlURL)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewNudgeError(
			models.OpConnect,
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	if !launched {
		log.Info("attached to browser", "controlURL", controlURL)
	}

	return &Session{browser: b, cfg: cfg, log: log, launched: launched}, nil
}

// newLauncher builds the Chrome launcher. The built-in translator must stay
// enabled, so TranslateUI is not disabled here.
func newLauncher(cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// Open finds a tab already showing targetURL (attach mode) or opens one and
// navigates to it. The page is bound to the session for later calls.
func (s *Session) Open(ctx context.Context, targetURL string, timeout time.Duration) (*rod.Page, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if !s.launched {
		if p := s.findTab(targetURL); p != nil {
			s.page = p
			s.log.Info("watching existing tab", "url", targetURL)
			return p, nil
		}
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewNudgeError(
			models.OpOpen,
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}
	s.created = true

	if s.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			s.log.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	p := page.Context(ctx)
	if err := p.Navigate(targetURL); err != nil {
		_ = page.Close()
		return nil, categorizeError(models.OpOpen, err, "navigation to target URL failed")
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		s.log.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	s.page = page
	s.log.Info("opened target page", "url", targetURL)
	return page, nil
}

// findTab returns the first open tab whose URL starts with targetURL.
func (s *Session) findTab(targetURL string) *rod.Page {
	pages, err := s.browser.Pages()
	if err != nil {
		s.log.Warn("listing tabs failed", "error", err)
		return nil
	}
	want := strings.TrimSuffix(targetURL, "/")
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.HasPrefix(info.URL, want) {
			return p
		}
	}
	return nil
}

// Page returns the watched page, or nil before Open.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Close releases what the session created. An attached browser and tabs
// the user opened are left running.
func (s *Session) Close() {
	if s.page != nil && s.created && !s.launched {
		if err := s.page.Close(); err != nil {
			s.log.Debug("closing tab failed", "error", err)
		}
	}
	if s.launched {
		s.log.Info("closing browser")
		if err := s.browser.Close(); err != nil {
			s.log.Warn("closing browser failed", "error", err)
		}
	}
}

// categorizeError tags a raw rod error as a failure of op.
func categorizeError(op string, err error, msg string) *models.NudgeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewNudgeError(op, models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewNudgeError(op, models.ErrCodeTimeout, "operation canceled", err)
	default:
		return models.NewNudgeError(op, models.ErrCodeNavigation, msg, err)
	}
}
