package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Harvester HarvesterConfig
	Parser    ParserConfig
	Output    OutputConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL for all navigation.
	DefaultProxy string

	// Cookie is an optional raw Cookie header value injected before
	// navigation (e.g. a logged-in SESSDATA); the login flow itself is
	// out of scope.
	Cookie string

	// NavigationTimeout is the max time for a single page navigation.
	NavigationTimeout time.Duration // default: 15s

	// BlockedResourceTypes lists network resource types to block while
	// scrolling. Blocking a request does not strip the element's source
	// attribute, so extraction still sees every URL.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string
}

// HarvesterConfig is the convergence policy for the scroll harvester.
// The thresholds were tuned against real dynamic pages; all of them are
// injectable rather than hardcoded because batch timing varies per account.
type HarvesterConfig struct {
	// BootTimeout bounds the wait for the page to reach readyState
	// "complete" with at least one feed item present.
	BootTimeout time.Duration // default: 15s

	// CheckInterval is the poll period for item count / document height.
	CheckInterval time.Duration // default: 300ms

	// CycleTimeout is the initial per-cycle wait for new content after a
	// scroll. It adapts between MinCycleTimeout and MaxCycleTimeout.
	CycleTimeout    time.Duration // default: 8s
	MinCycleTimeout time.Duration // default: 3s
	MaxCycleTimeout time.Duration // default: 12s

	// StallThreshold is the number of consecutive no-growth cycles after
	// which loading is assumed complete.
	StallThreshold int // default: 3

	// SettleDelay is the fixed wait before the final snapshot capture,
	// letting in-flight rendering finish.
	SettleDelay time.Duration // default: 2s

	// TerminalMarkers are in-page texts that signal end of content
	// unambiguously, short-circuiting the stall heuristic.
	TerminalMarkers []string // default: 你已经到达世界的尽头, 暂无动态
}

// ParserConfig controls record extraction.
type ParserConfig struct {
	// PinnedDate and PinnedText are the two signals that must both match
	// for an entry to classify as pinned. Observed values for one account
	// ship as defaults; override per target.
	PinnedDate string
	PinnedText string

	// SubmitMarker is the time-line text distinguishing a submitted video
	// from a plain video dynamic.
	SubmitMarker string // default: 投稿了视频

	// ExclusionFile is the newline-delimited media-URL exclusion list.
	ExclusionFile string
}

// OutputConfig controls snapshot and report persistence.
type OutputConfig struct {
	// Dir is the directory snapshot and report files are written into.
	Dir string // default: "."
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 2
}

// CacheConfig controls the harvest response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached harvest results.
	MaxEntries int // default: 100
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
			Host: envOr("BILIDYN_HOST", "0.0.0.0"),
			Port: envIntOr("BILIDYN_PORT", 8080),
			Mode: envOr("BILIDYN_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("BILIDYN_HEADLESS", true),
			NoSandbox:         envBoolOr("BILIDYN_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("BILIDYN_BROWSER_BIN"),
			DefaultProxy:      os.Getenv("BILIDYN_PROXY"),
			Cookie:            os.Getenv("BILIDYN_COOKIE"),
			NavigationTimeout: envDurationOr("BILIDYN_NAV_TIMEOUT", 15*time.Second),
			BlockedResourceTypes: envSliceOr("BILIDYN_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
		},
		Harvester: HarvesterConfig{
			BootTimeout:     envDurationOr("BILIDYN_BOOT_TIMEOUT", 15*time.Second),
			CheckInterval:   envDurationOr("BILIDYN_CHECK_INTERVAL", 300*time.Millisecond),
			CycleTimeout:    envDurationOr("BILIDYN_CYCLE_TIMEOUT", 8*time.Second),
			MinCycleTimeout: envDurationOr("BILIDYN_MIN_CYCLE_TIMEOUT", 3*time.Second),
			MaxCycleTimeout: envDurationOr("BILIDYN_MAX_CYCLE_TIMEOUT", 12*time.Second),
			StallThreshold:  envIntOr("BILIDYN_STALL_THRESHOLD", 3),
			SettleDelay:     envDurationOr("BILIDYN_SETTLE_DELAY", 2*time.Second),
			TerminalMarkers: envSliceOr("BILIDYN_TERMINAL_MARKERS", []string{
				"你已经到达世界的尽头",
				"暂无动态",
			}),
		},
		Parser: ParserConfig{
			PinnedDate:    envOr("BILIDYN_PINNED_DATE", "2022年05月14日"),
			PinnedText:    envOr("BILIDYN_PINNED_TEXT", "永远要相信自己 并且坚定的往自己想要去的方向前进 梦想一旦开始就很难停止"),
			SubmitMarker:  envOr("BILIDYN_SUBMIT_MARKER", "投稿了视频"),
			ExclusionFile: envOr("BILIDYN_EXCLUSION_FILE", "excluded_images.txt"),
		},
		Output: OutputConfig{
			Dir: envOr("BILIDYN_OUTPUT_DIR", "."),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("BILIDYN_AUTH_ENABLED", true),
			APIKeys: envSliceOr("BILIDYN_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("BILIDYN_RATE_RPS", 1.0),
			Burst:             envIntOr("BILIDYN_RATE_BURST", 2),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("BILIDYN_CACHE_MAX_ENTRIES", 100),
		},
		Log: LogConfig{
			Level:  envOr("BILIDYN_LOG_LEVEL", "info"),
			Format: envOr("BILIDYN_LOG_FORMAT", "json"),
		},
	}
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
