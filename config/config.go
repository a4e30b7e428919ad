package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/andybalholm/cascadia"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Target    TargetConfig
	Nudge     NudgeConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the control/status HTTP server.
type ServerConfig struct {
	// Enabled toggles the HTTP API.
	Enabled bool   // default: true
	Host    string // default: "127.0.0.1"
	Port    int    // default: 8787
	Mode    string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how the browser is obtained.
type BrowserConfig struct {
	// CDPURL attaches to an already running Chrome (the one the user reads
	// and translates in) instead of launching a new one.
	CDPURL string

	// Headless controls whether a launched browser runs headless.
	Headless bool // default: false

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for a launched browser.
	Proxy string

	// Stealth masks automation fingerprints on pages we open.
	Stealth bool // default: false
}

// TargetConfig selects the page to watch.
type TargetConfig struct {
	// URL is navigated to (launch mode) or matched against open tabs
	// (attach mode). Required.
	URL string

	// ProfilesPath is an optional YAML file of site profiles.
	ProfilesPath string

	// NavigationTimeout bounds opening the page.
	NavigationTimeout time.Duration // default: 30s
}

// NudgeConfig controls signal thresholds, timing and actions.
type NudgeConfig struct {
	// DebounceDelay is how long signals must stay quiet before a fire.
	DebounceDelay time.Duration // default: 800ms

	// ScrollThreshold is the scroll distance in px that counts as a signal.
	ScrollThreshold float64 // default: 150

	// MutationMinAdded is the minimum number of added elements per batch.
	MutationMinAdded int // default: 1

	// Cooldown is the minimum time between fires.
	Cooldown time.Duration // default: 2s

	// SplitCooldown gives scroll and mutation signals separate cooldowns.
	SplitCooldown bool // default: false

	// ReversalDelay is how long each perturbation lasts.
	ReversalDelay time.Duration // default: 50ms

	// CandidateSelector picks elements that may need re-translation.
	CandidateSelector string // default: `[data-testid="tweetText"], article p, p`

	// SourceScript is the Unicode script of untranslated text.
	SourceScript string // default: "Latin"

	// MinAlphaRun is how many consecutive SourceScript letters make text
	// look untranslated.
	MinAlphaRun int // default: 3

	// ScrollActions / MutationActions are the ordered action profiles.
	ScrollActions   []string // default: ["lang_toggle", "marker"]
	MutationActions []string // default: ["lang_toggle", "marker"]

	// LangAttr, TargetLang, FallbackLang drive the lang_toggle action.
	LangAttr     string // default: "lang"
	TargetLang   string // default: "ja"
	FallbackLang string // default: "en"

	// MaxMarkers caps marker insertions per fire (0 = unlimited).
	MaxMarkers int // default: 20

	// Events are dispatched by the events action.
	Events []string // default: ["resize"]

	// PollInterval is how often the browser signal queue is drained.
	PollInterval time.Duration // default: 200ms

	// OpTimeout bounds one synchronous action dispatch.
	OpTimeout time.Duration // default: 5s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 20

	// Burst is the maximum burst size per API key.
	Burst int // default: 40
}

// WebhookConfig controls fire notifications.
type WebhookConfig struct {
	// URL receives a POST after every fire. Empty disables notifications.
	URL string

	// Secret signs each body with HMAC-SHA256 when set.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled: envBoolOr("NUDGE_HTTP_ENABLED", true),
			Host:    envOr("NUDGE_HOST", "127.0.0.1"),
			Port:    envIntOr("NUDGE_PORT", 8787),
			Mode:    envOr("NUDGE_MODE", "release"),
		},
		Browser: BrowserConfig{
			CDPURL:     os.Getenv("NUDGE_CDP_URL"),
			Headless:   envBoolOr("NUDGE_HEADLESS", false),
			NoSandbox:  envBoolOr("NUDGE_NO_SANDBOX", false),
			BrowserBin: os.Getenv("NUDGE_BROWSER_BIN"),
			Proxy:      os.Getenv("NUDGE_PROXY"),
			Stealth:    envBoolOr("NUDGE_STEALTH", false),
		},
		Target: TargetConfig{
			URL:               os.Getenv("NUDGE_TARGET_URL"),
			ProfilesPath:      os.Getenv("NUDGE_PROFILES"),
			NavigationTimeout: envDurationOr("NUDGE_NAV_TIMEOUT", 30*time.Second),
		},
		Nudge: NudgeConfig{
			DebounceDelay:     envDurationOr("NUDGE_DEBOUNCE", 800*time.Millisecond),
			ScrollThreshold:   envFloatOr("NUDGE_SCROLL_THRESHOLD", 150),
			MutationMinAdded:  envIntOr("NUDGE_MUTATION_MIN_ADDED", 1),
			Cooldown:          envDurationOr("NUDGE_COOLDOWN", 2*time.Second),
			SplitCooldown:     envBoolOr("NUDGE_SPLIT_COOLDOWN", false),
			ReversalDelay:     envDurationOr("NUDGE_REVERSAL_DELAY", 50*time.Millisecond),
			CandidateSelector: envOr("NUDGE_CANDIDATE_SELECTOR", `[data-testid="tweetText"], article p, p`),
			SourceScript:      envOr("NUDGE_SOURCE_SCRIPT", "Latin"),
			MinAlphaRun:       envIntOr("NUDGE_MIN_ALPHA_RUN", 3),
			ScrollActions:     envSliceOr("NUDGE_SCROLL_ACTIONS", []string{"lang_toggle", "marker"}),
			MutationActions:   envSliceOr("NUDGE_MUTATION_ACTIONS", []string{"lang_toggle", "marker"}),
			LangAttr:          envOr("NUDGE_LANG_ATTR", "lang"),
			TargetLang:        envOr("NUDGE_TARGET_LANG", "ja"),
			FallbackLang:      envOr("NUDGE_FALLBACK_LANG", "en"),
			MaxMarkers:        envIntOr("NUDGE_MAX_MARKERS", 20),
			Events:            envSliceOr("NUDGE_EVENTS", []string{"resize"}),
			PollInterval:      envDurationOr("NUDGE_POLL_INTERVAL", 200*time.Millisecond),
			OpTimeout:         envDurationOr("NUDGE_OP_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("NUDGE_AUTH_ENABLED", false),
			APIKeys: envSliceOr("NUDGE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("NUDGE_RATE_RPS", 20),
			Burst:             envIntOr("NUDGE_RATE_BURST", 40),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("NUDGE_WEBHOOK_URL"),
			Secret: os.Getenv("NUDGE_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("NUDGE_LOG_LEVEL", "info"),
			Format: envOr("NUDGE_LOG_FORMAT", "json"),
		},
	}
}

// knownActions mirrors the action package's names; config must not import
// the action layer.
var knownActions = map[string]struct{}{
	"lang_toggle": {},
	"marker":      {},
	"events":      {},
}

// maxAlphaRun is the largest repeat count the content pattern accepts.
const maxAlphaRun = 1000

// Validate reports every invalid setting at once.
func (n *NudgeConfig) Validate() error {
	var errs []error
	if n.DebounceDelay < 0 {
		errs = append(errs, fmt.Errorf("debounce delay must not be negative, got %s", n.DebounceDelay))
	}
	if n.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown must not be negative, got %s", n.Cooldown))
	}
	if n.ReversalDelay <= 0 {
		errs = append(errs, fmt.Errorf("reversal delay must be positive, got %s", n.ReversalDelay))
	}
	if n.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", n.PollInterval))
	}
	if n.ScrollThreshold < 0 {
		errs = append(errs, fmt.Errorf("scroll threshold must not be negative, got %v", n.ScrollThreshold))
	}
	if n.MinAlphaRun < 1 || n.MinAlphaRun > maxAlphaRun {
		errs = append(errs, fmt.Errorf("min alpha run must be in [1, %d], got %d", maxAlphaRun, n.MinAlphaRun))
	}
	if _, ok := unicode.Scripts[n.SourceScript]; !ok {
		errs = append(errs, fmt.Errorf("unknown source script %q", n.SourceScript))
	}
	if strings.TrimSpace(n.CandidateSelector) == "" {
		errs = append(errs, errors.New("candidate selector is required"))
	} else if _, err := cascadia.Compile(n.CandidateSelector); err != nil {
		errs = append(errs, fmt.Errorf("candidate selector %q: %w", n.CandidateSelector, err))
	}
	for _, list := range [][]string{n.ScrollActions, n.MutationActions} {
		for _, a := range list {
			if _, ok := knownActions[a]; !ok {
				errs = append(errs, fmt.Errorf("unknown action %q", a))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
