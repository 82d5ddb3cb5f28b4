package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the agent. It is loaded once
// at process start and treated as read-only afterwards.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Search       SearchConfig       `yaml:"search"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	Prompt       PromptConfig       `yaml:"prompt"`
	Remediation  RemediationConfig  `yaml:"remediation"`
	Notification NotificationConfig `yaml:"notification"`
	Whitelist    WhitelistConfig    `yaml:"whitelist"`
	Logging      LoggingConfig      `yaml:"logging"`
	Cache        CacheConfig        `yaml:"cache"`
}

// ServerConfig controls the HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// TelemetryConfig configures the log store sampled for incident context.
type TelemetryConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	WorkspaceID string        `yaml:"workspaceID"`
	Query       string        `yaml:"query"`
	Lookback    time.Duration `yaml:"lookback"`
	MaxRecords  int           `yaml:"maxRecords"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SearchConfig configures the grounding document index. Setting VectorField
// enables hybrid lexical+vector retrieval; leaving it empty keeps retrieval
// lexical-only.
type SearchConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Index       string        `yaml:"index"`
	APIKey      string        `yaml:"apiKey"`
	APIVersion  string        `yaml:"apiVersion"`
	TopK        int           `yaml:"topK"`
	VectorField string        `yaml:"vectorField"`
	Timeout     time.Duration `yaml:"timeout"`
}

// OpenAIConfig configures the model-inference endpoint.
type OpenAIConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"apiKey"`
	Deployment string        `yaml:"deployment"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PromptConfig bounds the size of the generation request.
type PromptConfig struct {
	MaxBytes            int `yaml:"maxBytes"`
	MaxDocChars         int `yaml:"maxDocChars"`
	MaxTelemetryRecords int `yaml:"maxTelemetryRecords"`
}

// RemediationConfig configures the separately-authorized executor endpoint.
type RemediationConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Key     string        `yaml:"key"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotificationConfig configures the summary-card webhook.
type NotificationConfig struct {
	WebhookURL string        `yaml:"webhookURL"`
	Timeout    time.Duration `yaml:"timeout"`
}

// WhitelistConfig points at the action whitelist file.
type WhitelistConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls caching of grounding retrieval results. Backend
// selects between the in-process cache and a Valkey server.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Backend      string        `yaml:"backend"`
	RetrievalTTL time.Duration `yaml:"retrievalTTL"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AIOPS_AGENT_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Endpoint:   "https://api.loganalytics.io",
			Query:      "AppTraces | where Timestamp > ago(30m) | take 100",
			Lookback:   30 * time.Minute,
			MaxRecords: 100,
			Timeout:    10 * time.Second,
		},
		Search: SearchConfig{
			APIVersion: "2024-07-01",
			TopK:       5,
			Timeout:    5 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Deployment: "gpt-4o-mini",
			Timeout:    60 * time.Second,
		},
		Prompt: PromptConfig{
			MaxBytes:            12000,
			MaxDocChars:         1000,
			MaxTelemetryRecords: 20,
		},
		Remediation: RemediationConfig{
			Timeout: 20 * time.Second,
		},
		Notification: NotificationConfig{
			Timeout: 15 * time.Second,
		},
		Whitelist: WhitelistConfig{Path: "configs/whitelist.yaml"},
		Logging:   LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			Backend:      "memory",
			RetrievalTTL: 2 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AIOPS_AGENT_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("AIOPS_AGENT_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("LOG_ANALYTICS_ENDPOINT"); v != "" {
		cfg.Telemetry.Endpoint = v
	}
	if v := os.Getenv("LOG_ANALYTICS_WORKSPACE_ID"); v != "" {
		cfg.Telemetry.WorkspaceID = v
	}
	if v := os.Getenv("KQL_QUERY"); v != "" {
		cfg.Telemetry.Query = v
	}
	if v := os.Getenv("AIOPS_AGENT_TELEMETRY_LOOKBACK"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Telemetry.Lookback = d
		}
	}
	if v := os.Getenv("AIOPS_AGENT_TELEMETRY_MAX_RECORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Telemetry.MaxRecords = n
		}
	}
	if v := os.Getenv("SEARCH_ENDPOINT"); v != "" {
		cfg.Search.Endpoint = v
	}
	if v := os.Getenv("SEARCH_INDEX"); v != "" {
		cfg.Search.Index = v
	}
	if v := os.Getenv("SEARCH_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv("SEARCH_VECTOR_FIELD"); v != "" {
		cfg.Search.VectorField = v
	}
	if v := os.Getenv("AIOPS_AGENT_SEARCH_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Search.TopK = n
		}
	}
	if v := os.Getenv("OPENAI_ENDPOINT"); v != "" {
		cfg.OpenAI.Endpoint = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_DEPLOYMENT"); v != "" {
		cfg.OpenAI.Deployment = v
	}
	if v := os.Getenv("REMEDIATION_URL"); v != "" {
		cfg.Remediation.BaseURL = v
	}
	if v := os.Getenv("REMEDIATION_KEY"); v != "" {
		cfg.Remediation.Key = v
	}
	if v := os.Getenv("TEAMS_WEBHOOK_URL"); v != "" {
		cfg.Notification.WebhookURL = v
	}
	if v := os.Getenv("AIOPS_AGENT_WHITELIST_PATH"); v != "" {
		cfg.Whitelist.Path = v
	}
	if v := os.Getenv("AIOPS_AGENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AIOPS_AGENT_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("AIOPS_AGENT_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("AIOPS_AGENT_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("AIOPS_AGENT_VALKEY_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("AIOPS_AGENT_VALKEY_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("AIOPS_AGENT_VALKEY_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("AIOPS_AGENT_VALKEY_TLS"); v != "" {
		cfg.Cache.TLS = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("AIOPS_AGENT_CACHE_RETRIEVAL_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.RetrievalTTL = d
		}
	}
}
