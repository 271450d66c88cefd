package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the orchestrator service.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Auth         AuthConfig         `yaml:"auth"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Storage      StorageConfig      `yaml:"storage"`
	Snapshot     SnapshotConfig     `yaml:"snapshot"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	Enabled      bool   `yaml:"enabled"`
	APIKey       string `yaml:"api_key"`
	JWTSecret    string `yaml:"jwt_secret"`
	TokenHours   int    `yaml:"token_hours"`
	RefreshHours int    `yaml:"refresh_hours"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// OrchestratorConfig controls routing, guardrails and retry behavior.
type OrchestratorConfig struct {
	Guardrails   GuardrailConfig    `yaml:"guardrails"`
	Routing      RoutingConfig      `yaml:"routing"`
	Retry        RetryConfig        `yaml:"retry"`
	DispatchRate DispatchRateConfig `yaml:"dispatch_rate"`
}

type GuardrailConfig struct {
	MinValueScore    float64 `yaml:"min_value_score"`
	MaxCostPerCall   float64 `yaml:"max_cost_per_call"`
	MaxTokensPerCall int     `yaml:"max_tokens_per_call"`
}

type RoutingConfig struct {
	ComplexityThreshold float64 `yaml:"complexity_threshold"`
	PreferLocal         bool    `yaml:"prefer_local"`
}

type RetryConfig struct {
	Attempts         int `yaml:"attempts"`
	BaseDelayMS      int `yaml:"base_delay_ms"`
	RateLimitDelayMS int `yaml:"rate_limit_delay_ms"`
}

// DispatchRateConfig throttles outbound provider calls when enabled.
type DispatchRateConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type ProvidersConfig struct {
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Ollama    OllamaConfig    `yaml:"ollama"`
}

type OpenAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type AnthropicConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type GeminiConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

type OllamaConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type StorageConfig struct {
	UsageFile   string `yaml:"usage_file"`
	FossilDir   string `yaml:"fossil_dir"`
	SnapshotDir string `yaml:"snapshot_dir"`
}

// SnapshotConfig controls the scheduled export of usage and fossil data.
type SnapshotConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Time         string `yaml:"time"`   // HH:MM, local server time
	Format       string `yaml:"format"` // json, yaml, csv
	WindowDays   int    `yaml:"window_days"`
	WorkdaysOnly bool   `yaml:"workdays_only"`
	Region       string `yaml:"region"` // holiday calendar region, e.g. US, CN
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8088,
			Mode: "debug",
		},
		Log: LogConfig{Level: "info"},
		Auth: AuthConfig{
			Enabled:      false,
			JWTSecret:    "change-me-in-production",
			TokenHours:   24,
			RefreshHours: 720,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/orchestrator.db",
		},
		Orchestrator: OrchestratorConfig{
			Guardrails: GuardrailConfig{
				MinValueScore:    0.1,
				MaxCostPerCall:   0.05,
				MaxTokensPerCall: 8000,
			},
			Routing: RoutingConfig{
				ComplexityThreshold: 0.4,
				PreferLocal:         true,
			},
			Retry: RetryConfig{
				Attempts:         3,
				BaseDelayMS:      1000,
				RateLimitDelayMS: 5000,
			},
			DispatchRate: DispatchRateConfig{
				Enabled: false,
				RPS:     5,
				Burst:   10,
			},
		},
		Providers: ProvidersConfig{
			OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
			Anthropic: AnthropicConfig{Model: "claude-3-5-haiku-latest", MaxTokens: 1024},
			Gemini:    GeminiConfig{Model: "gemini-2.0-flash"},
			Ollama: OllamaConfig{
				Enabled:        true,
				BaseURL:        "http://localhost:11434",
				Model:          "llama3.2",
				TimeoutSeconds: 120,
			},
		},
		Storage: StorageConfig{
			UsageFile:   "data/usage.json",
			FossilDir:   "data/fossils",
			SnapshotDir: "data/snapshots",
		},
		Snapshot: SnapshotConfig{
			Enabled:      true,
			Time:         "18:00",
			Format:       "json",
			WindowDays:   1,
			WorkdaysOnly: false,
			Region:       "US",
		},
	}
}

// Load reads the configuration from the given path. A missing file is not an
// error: defaults are used and environment overrides still apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.overrideFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the effective configuration to the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// overrideFromEnv applies environment variable overrides on top of the file
// configuration, following the 12-factor convention.
func (c *Config) overrideFromEnv() {
	setString(&c.Server.Host, "SERVER_HOST")
	setInt(&c.Server.Port, "SERVER_PORT")
	setString(&c.Server.Mode, "SERVER_MODE")
	setString(&c.Log.Level, "LOG_LEVEL")

	setBool(&c.Auth.Enabled, "AUTH_ENABLED")
	setString(&c.Auth.APIKey, "AUTH_API_KEY")
	setString(&c.Auth.JWTSecret, "AUTH_JWT_SECRET")

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DB_DSN")

	setBool(&c.Redis.Enabled, "REDIS_ENABLED")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")
	if c.Redis.Addr != "" {
		c.Redis.Enabled = true
	}

	setString(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.Providers.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Providers.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.Providers.Anthropic.Model, "ANTHROPIC_MODEL")
	setString(&c.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Providers.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Providers.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&c.Providers.Ollama.Model, "OLLAMA_MODEL")

	setString(&c.Storage.UsageFile, "USAGE_FILE")
	setString(&c.Storage.FossilDir, "FOSSIL_DIR")
	setString(&c.Storage.SnapshotDir, "SNAPSHOT_DIR")

	// Cloud provider keys imply the provider is usable even when the file
	// forgot to flip the flag.
	if c.Providers.OpenAI.APIKey != "" {
		c.Providers.OpenAI.Enabled = true
	}
	if c.Providers.Anthropic.APIKey != "" {
		c.Providers.Anthropic.Enabled = true
	}
	if c.Providers.Gemini.APIKey != "" {
		c.Providers.Gemini.Enabled = true
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Snapshot.Format {
	case "json", "yaml", "csv":
	default:
		return fmt.Errorf("unsupported snapshot format: %s", c.Snapshot.Format)
	}
	if c.Orchestrator.Retry.Attempts < 1 {
		c.Orchestrator.Retry.Attempts = 1
	}
	if c.Snapshot.WindowDays < 1 {
		c.Snapshot.WindowDays = 1
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
