package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("address = %q", cfg.Server.Address)
	}
	if cfg.Search.TopK != 5 {
		t.Fatalf("topK = %d", cfg.Search.TopK)
	}
	if cfg.OpenAI.Deployment != "gpt-4o-mini" {
		t.Fatalf("deployment = %q", cfg.OpenAI.Deployment)
	}
	if cfg.Telemetry.Lookback != 30*time.Minute {
		t.Fatalf("lookback = %v", cfg.Telemetry.Lookback)
	}
	if cfg.Prompt.MaxBytes != 12000 {
		t.Fatalf("prompt maxBytes = %d", cfg.Prompt.MaxBytes)
	}
	if cfg.Cache.Backend != "memory" {
		t.Fatalf("cache backend = %q", cfg.Cache.Backend)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  address: ":9090"
search:
  endpoint: "https://search.example.com"
  index: "kb-index"
  topK: 3
whitelist:
  path: "custom/whitelist.yaml"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("address = %q", cfg.Server.Address)
	}
	if cfg.Search.Index != "kb-index" || cfg.Search.TopK != 3 {
		t.Fatalf("search = %+v", cfg.Search)
	}
	if cfg.Whitelist.Path != "custom/whitelist.yaml" {
		t.Fatalf("whitelist path = %q", cfg.Whitelist.Path)
	}
	// Untouched sections keep their defaults.
	if cfg.OpenAI.Deployment != "gpt-4o-mini" {
		t.Fatalf("deployment = %q", cfg.OpenAI.Deployment)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOG_ANALYTICS_WORKSPACE_ID", "ws-override")
	t.Setenv("KQL_QUERY", "AppRequests | take 10")
	t.Setenv("SEARCH_ENDPOINT", "https://search.override.example.com")
	t.Setenv("SEARCH_INDEX", "kb-override")
	t.Setenv("OPENAI_ENDPOINT", "https://aoai.override.example.com")
	t.Setenv("OPENAI_API_KEY", "secret")
	t.Setenv("TEAMS_WEBHOOK_URL", "https://hooks.example.com/override")
	t.Setenv("REMEDIATION_URL", "https://remediate.override.example.com")
	t.Setenv("REMEDIATION_KEY", "func-key")
	t.Setenv("AIOPS_AGENT_CACHE_ENABLED", "true")
	t.Setenv("AIOPS_AGENT_CACHE_BACKEND", "valkey")
	t.Setenv("AIOPS_AGENT_VALKEY_ADDR", "cache.internal:6379")
	t.Setenv("AIOPS_AGENT_VALKEY_PASSWORD", "valkey-secret")
	t.Setenv("AIOPS_AGENT_VALKEY_TLS", "1")
	t.Setenv("AIOPS_AGENT_TELEMETRY_LOOKBACK", "45m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry.WorkspaceID != "ws-override" {
		t.Fatalf("workspace = %q", cfg.Telemetry.WorkspaceID)
	}
	if cfg.Telemetry.Query != "AppRequests | take 10" {
		t.Fatalf("query = %q", cfg.Telemetry.Query)
	}
	if cfg.Search.Endpoint != "https://search.override.example.com" || cfg.Search.Index != "kb-override" {
		t.Fatalf("search = %+v", cfg.Search)
	}
	if cfg.OpenAI.Endpoint != "https://aoai.override.example.com" || cfg.OpenAI.APIKey != "secret" {
		t.Fatalf("openai = %+v", cfg.OpenAI)
	}
	if cfg.Notification.WebhookURL != "https://hooks.example.com/override" {
		t.Fatalf("webhook = %q", cfg.Notification.WebhookURL)
	}
	if cfg.Remediation.BaseURL != "https://remediate.override.example.com" || cfg.Remediation.Key != "func-key" {
		t.Fatalf("remediation = %+v", cfg.Remediation)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("cache should be enabled")
	}
	if cfg.Cache.Backend != "valkey" || cfg.Cache.Addr != "cache.internal:6379" {
		t.Fatalf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.Password != "valkey-secret" || !cfg.Cache.TLS {
		t.Fatalf("cache credentials = %+v", cfg.Cache)
	}
	if cfg.Telemetry.Lookback != 45*time.Minute {
		t.Fatalf("lookback = %v", cfg.Telemetry.Lookback)
	}
}

func TestEnvOverridesIgnoreInvalidValues(t *testing.T) {
	t.Setenv("AIOPS_AGENT_TELEMETRY_LOOKBACK", "not-a-duration")
	t.Setenv("AIOPS_AGENT_SEARCH_TOP_K", "-3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry.Lookback != 30*time.Minute {
		t.Fatalf("lookback = %v", cfg.Telemetry.Lookback)
	}
	if cfg.Search.TopK != 5 {
		t.Fatalf("topK = %d", cfg.Search.TopK)
	}
}
