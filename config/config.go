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
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Scraper   ScraperConfig
	Output    OutputConfig
	Rules     RulesConfig
	Batch     BatchConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication of /api/v1.
type AuthConfig struct {
	// APIKeys lists accepted keys. Empty means open access.
	APIKeys []string
}

// RateLimitConfig controls per-client request limiting of /api/v1.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	// Zero or less disables limiting.
	RequestsPerSecond float64 // default: 5

	Burst int // default: 10
}

// ScraperConfig controls page and image fetching.
type ScraperConfig struct {
	// PageTimeout bounds the initial page fetch. Exceeding it fails the run.
	PageTimeout time.Duration // default: 30s

	// ImageTimeout bounds each image download. Exceeding it skips the image.
	ImageTimeout time.Duration // default: 10s

	// MaxPageBytes caps the page body read.
	MaxPageBytes int64 // default: 10 MiB

	// MaxImageBytes caps each image body read.
	MaxImageBytes int64 // default: 20 MiB

	// Proxy is an optional proxy URL ("http://host:port" or "socks5://host:port").
	Proxy string

	// TLSFingerprint dials HTTPS with a Chrome ClientHello.
	TLSFingerprint bool // default: true

	// TLSFallback retries a fingerprinted fetch once with standard TLS after
	// a transport failure and remembers the host. Off by default, so every
	// fetch is a single attempt.
	TLSFallback bool // default: false

	// UserAgent is sent with every request.
	UserAgent string
}

// OutputConfig controls where accepted images are written.
type OutputConfig struct {
	// Dir is the parent of the per-run folders.
	Dir string // default: "static/scraped_images"

	// PublicPrefix is the URL path under which Dir is served.
	PublicPrefix string // default: "/static/scraped_images"
}

// RulesConfig controls named ruleset presets.
type RulesConfig struct {
	// PresetsFile is an optional YAML file of named rulesets.
	PresetsFile string
}

// BatchConfig controls batch jobs.
type BatchConfig struct {
	// Concurrency is the number of URLs scraped in parallel per batch.
	Concurrency int // default: 4

	// MaxURLs caps the size of one batch.
	MaxURLs int // default: 50
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 500

	// TTL is the hard expiry of an entry regardless of max_age.
	TTL time.Duration // default: 1h
}

// WebhookConfig controls outgoing webhook signing.
type WebhookConfig struct {
	// Secret signs webhook bodies with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent mimics a desktop Chrome; many sites reject Go's default.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("BANNERGRAB_HOST", "0.0.0.0"),
			Port: envIntOr("BANNERGRAB_PORT", 8080),
			Mode: envOr("BANNERGRAB_MODE", "release"),
		},
		Auth: AuthConfig{
			APIKeys: envSliceOr("BANNERGRAB_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("BANNERGRAB_RATE_RPS", 5),
			Burst:             envIntOr("BANNERGRAB_RATE_BURST", 10),
		},
		Scraper: ScraperConfig{
			PageTimeout:    envDurationOr("BANNERGRAB_PAGE_TIMEOUT", 30*time.Second),
			ImageTimeout:   envDurationOr("BANNERGRAB_IMAGE_TIMEOUT", 10*time.Second),
			MaxPageBytes:   envInt64Or("BANNERGRAB_MAX_PAGE_BYTES", 10<<20),
			MaxImageBytes:  envInt64Or("BANNERGRAB_MAX_IMAGE_BYTES", 20<<20),
			Proxy:          os.Getenv("BANNERGRAB_PROXY"),
			TLSFingerprint: envBoolOr("BANNERGRAB_TLS_FINGERPRINT", true),
			TLSFallback:    envBoolOr("BANNERGRAB_TLS_FALLBACK", false),
			UserAgent:      envOr("BANNERGRAB_USER_AGENT", DefaultUserAgent),
		},
		Output: OutputConfig{
			Dir:          envOr("BANNERGRAB_OUTPUT_DIR", "static/scraped_images"),
			PublicPrefix: strings.TrimRight(envOr("BANNERGRAB_PUBLIC_PREFIX", "/static/scraped_images"), "/"),
		},
		Rules: RulesConfig{
			PresetsFile: os.Getenv("BANNERGRAB_PRESETS_FILE"),
		},
		Batch: BatchConfig{
			Concurrency: envIntOr("BANNERGRAB_BATCH_CONCURRENCY", 4),
			MaxURLs:     envIntOr("BANNERGRAB_BATCH_MAX_URLS", 50),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("BANNERGRAB_CACHE_MAX_ENTRIES", 500),
			TTL:        envDurationOr("BANNERGRAB_CACHE_TTL", time.Hour),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("BANNERGRAB_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("BANNERGRAB_LOG_LEVEL", "info"),
			Format: envOr("BANNERGRAB_LOG_FORMAT", "json"),
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

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
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

// envSliceOr splits a comma-separated value, dropping blanks.
func envSliceOr(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
