package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"LEADBOT_ADDR", "LEADBOT_CLASSIFIER", "LEADBOT_MAX_MESSAGES", "LEADBOT_SESSION_IDLE_TTL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.ClassifierMode != ClassifierKeyword {
		t.Fatalf("ClassifierMode = %q", cfg.ClassifierMode)
	}
	if cfg.MaxBodyBytes != 1<<20 || cfg.MaxMessages != 64 {
		t.Fatalf("limits = %d %d", cfg.MaxBodyBytes, cfg.MaxMessages)
	}
	if cfg.SessionIdleTTL != 30*time.Minute {
		t.Fatalf("SessionIdleTTL = %v", cfg.SessionIdleTTL)
	}
	if issues := cfg.Issues(); len(issues) != 0 {
		t.Fatalf("default config has issues: %v", issues)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("LEADBOT_ADDR", ":9191")
	t.Setenv("LEADBOT_SESSION_IDLE_TTL", "5m")
	t.Setenv("LEADBOT_MAX_MESSAGES", "12")
	t.Setenv("LEADBOT_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LEADBOT_CLASSIFIER", "model")
	t.Setenv("ANTHROPIC_API_KEY", "key")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":9191" || cfg.SessionIdleTTL != 5*time.Minute || cfg.MaxMessages != 12 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("origins = %v", cfg.CORSAllowedOrigins)
	}
	if _, ok := cfg.CORSAllowedOrigins["https://b.example"]; !ok {
		t.Fatalf("origins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.ClassifierMode != ClassifierModel {
		t.Fatalf("ClassifierMode = %q", cfg.ClassifierMode)
	}
}

func TestLoadFromEnvInvalidClassifier(t *testing.T) {
	t.Setenv("LEADBOT_CLASSIFIER", "psychic")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for invalid classifier mode")
	}
}

func TestWebhookURLPrecedence(t *testing.T) {
	t.Setenv("LEAD_WEBHOOK_URL", "")
	t.Setenv("MAKE_WEBHOOK_URL", "https://make.example/hook")
	t.Setenv("N8N_WEBHOOK_URL", "https://n8n.example/hook")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	// N8N outranks MAKE; LEAD_WEBHOOK_URL outranks both.
	if cfg.WebhookURL != "https://n8n.example/hook" {
		t.Fatalf("WebhookURL = %q", cfg.WebhookURL)
	}

	t.Setenv("LEAD_WEBHOOK_URL", "https://ops.example/hook")
	cfg, _ = LoadFromEnv()
	if cfg.WebhookURL != "https://ops.example/hook" {
		t.Fatalf("WebhookURL = %q", cfg.WebhookURL)
	}
}

func TestIssuesModelClassifierNeedsCredential(t *testing.T) {
	t.Parallel()
	cfg := Config{
		ClassifierMode:       ClassifierModel,
		SessionIdleTTL:       time.Minute,
		MaxBodyBytes:         1,
		MaxMessages:          1,
		SSEMaxStreamDuration: time.Minute,
		ExtractTimeout:       time.Minute,
		ReadHeaderTimeout:    time.Second,
		ReadTimeout:          time.Second,
	}
	if issues := cfg.Issues(); len(issues) != 1 {
		t.Fatalf("issues = %v", issues)
	}
	cfg.CompletionAPIKey = "key"
	if issues := cfg.Issues(); len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
}

func TestEnvHelpersIgnoreMalformedValues(t *testing.T) {
	t.Setenv("LEADBOT_MAX_MESSAGES", "not-a-number")
	t.Setenv("LEADBOT_EXTRACT_TIMEOUT", "soon")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.MaxMessages != 64 {
		t.Fatalf("MaxMessages = %d, want default", cfg.MaxMessages)
	}
	if cfg.ExtractTimeout != 30*time.Second {
		t.Fatalf("ExtractTimeout = %v, want default", cfg.ExtractTimeout)
	}
}
