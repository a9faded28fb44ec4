// Package config loads the gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ClassifierMode selects the contact-capture turn classifier.
type ClassifierMode string

const (
	ClassifierKeyword ClassifierMode = "keyword"
	ClassifierModel   ClassifierMode = "model"
)

// Config is the full gateway configuration. Credentials follow the original
// deployment's names; operational knobs use the LEADBOT_ prefix. A missing
// RedisURL silently selects the in-process store; missing completion/avatar
// credentials are hard errors only on the endpoints that need them.
type Config struct {
	Addr string

	// Upstream credentials and endpoints.
	CompletionAPIKey  string
	CompletionBaseURL string
	CompletionModel   string
	AvatarAPIKey      string
	AvatarBaseURL     string

	// Store and downstream forwarding.
	RedisURL        string
	WebhookURL      string
	SlackWebhookURL string

	// Conversation behavior.
	ClassifierMode ClassifierMode
	SessionIdleTTL time.Duration

	// CORS allowlist; empty disables CORS handling.
	CORSAllowedOrigins map[string]struct{}

	// Request-shape limits.
	MaxBodyBytes int64
	MaxMessages  int

	// Timeouts.
	SSEMaxStreamDuration time.Duration
	ExtractTimeout       time.Duration
	ReadHeaderTimeout    time.Duration
	ReadTimeout          time.Duration
	ShutdownGracePeriod  time.Duration

	DispatchQueueSize int
}

// LoadFromEnv builds a Config from the process environment.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr: envOr("LEADBOT_ADDR", ":8080"),

		CompletionAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		CompletionBaseURL: envOr("LEADBOT_COMPLETION_BASE_URL", ""),
		CompletionModel:   envOr("LEADBOT_COMPLETION_MODEL", ""),
		AvatarAPIKey:      os.Getenv("ANAM_API_KEY"),
		AvatarBaseURL:     envOr("LEADBOT_AVATAR_BASE_URL", ""),

		RedisURL:        os.Getenv("REDIS_URL"),
		WebhookURL:      firstEnv("LEAD_WEBHOOK_URL", "N8N_WEBHOOK_URL", "MAKE_WEBHOOK_URL"),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),

		ClassifierMode: ClassifierMode(envOr("LEADBOT_CLASSIFIER", string(ClassifierKeyword))),
		SessionIdleTTL: envDurOr("LEADBOT_SESSION_IDLE_TTL", 30*time.Minute),

		CORSAllowedOrigins: make(map[string]struct{}),

		MaxBodyBytes: envInt64Or("LEADBOT_MAX_BODY_BYTES", 1<<20), // 1 MiB
		MaxMessages:  envIntOr("LEADBOT_MAX_MESSAGES", 64),

		SSEMaxStreamDuration: envDurOr("LEADBOT_SSE_MAX_STREAM_DURATION", 2*time.Minute),
		ExtractTimeout:       envDurOr("LEADBOT_EXTRACT_TIMEOUT", 30*time.Second),
		ReadHeaderTimeout:    envDurOr("LEADBOT_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:          envDurOr("LEADBOT_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod:  envDurOr("LEADBOT_SHUTDOWN_GRACE", 15*time.Second),

		DispatchQueueSize: envIntOr("LEADBOT_DISPATCH_QUEUE", 64),
	}

	for _, origin := range splitList(os.Getenv("LEADBOT_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	switch cfg.ClassifierMode {
	case ClassifierKeyword, ClassifierModel:
	default:
		return Config{}, fmt.Errorf("invalid LEADBOT_CLASSIFIER %q", cfg.ClassifierMode)
	}

	return cfg, nil
}

// Issues returns configuration problems for the readiness probe. Missing
// credentials are not listed: their endpoints fail with explicit 500s
// instead of blocking readiness.
func (c Config) Issues() []string {
	var issues []string
	if c.MaxBodyBytes <= 0 {
		issues = append(issues, "max_body_bytes must be > 0")
	}
	if c.MaxMessages <= 0 {
		issues = append(issues, "max_messages must be > 0")
	}
	if c.SSEMaxStreamDuration <= 0 {
		issues = append(issues, "sse max stream duration must be > 0")
	}
	if c.ExtractTimeout <= 0 {
		issues = append(issues, "extract timeout must be > 0")
	}
	if c.ReadHeaderTimeout <= 0 || c.ReadTimeout <= 0 {
		issues = append(issues, "timeouts must be > 0")
	}
	if c.SessionIdleTTL <= 0 {
		issues = append(issues, "session idle ttl must be > 0")
	}
	if c.ClassifierMode == ClassifierModel && c.CompletionAPIKey == "" {
		issues = append(issues, "model classifier requires a completion credential")
	}
	return issues
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func envIntOr(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64Or(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurOr(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
