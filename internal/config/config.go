package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	AI        AI        `mapstructure:"ai"`
	Search    Search    `mapstructure:"search"`
	Images    Images    `mapstructure:"images"`
	Publish   Publish   `mapstructure:"publish"`
	Server    Server    `mapstructure:"server"`
	Autopilot Autopilot `mapstructure:"autopilot"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// Search holds search provider configuration
type Search struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	MaxResults      int             `mapstructure:"max_results"`
	Timeout         string          `mapstructure:"timeout"`
	Providers       SearchProviders `mapstructure:"providers"`
}

// SearchProviders holds configuration for all search providers
type SearchProviders struct {
	Google  GoogleSearchConfig `mapstructure:"google"`
	SerpAPI SerpAPIConfig      `mapstructure:"serpapi"`
}

// GoogleSearchConfig holds Google Custom Search configuration
type GoogleSearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	SearchID string `mapstructure:"search_id"`
}

// SerpAPIConfig holds SerpAPI configuration
type SerpAPIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Images holds stock-image provider configuration
type Images struct {
	Provider  string `mapstructure:"provider"` // "pexels", "mock", or "" to disable
	APIKey    string `mapstructure:"api_key"`
	MaxImages int    `mapstructure:"max_images"`
	Timeout   string `mapstructure:"timeout"`
}

// Publish holds content-sink configuration
type Publish struct {
	Endpoint string `mapstructure:"endpoint"` // CMS webhook URL; empty disables publishing
	Token    string `mapstructure:"token"`    // Bearer token for the sink
	Timeout  string `mapstructure:"timeout"`
}

// Server holds HTTP trigger-surface configuration
type Server struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	TriggerToken string `mapstructure:"trigger_token"` // Shared secret for the run endpoint
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	CORS         CORS   `mapstructure:"cors"`
}

// CORS holds CORS configuration for the HTTP server
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Autopilot holds run-orchestration tuning
type Autopilot struct {
	ItemPause           string `mapstructure:"item_pause"`            // Pause between items in a project
	RefillCap           int    `mapstructure:"refill_cap"`            // Max new ideas per research refill
	StageTimeout        string `mapstructure:"stage_timeout"`         // Default per-stage timeout
	ResearchTimeout     string `mapstructure:"research_timeout"`      // Keyword/competitive research stage timeout
	MaxParallelProjects int    `mapstructure:"max_parallel_projects"` // Bound on concurrent project processing
	StaleJobCutoff      string `mapstructure:"stale_job_cutoff"`      // Age past which non-terminal jobs are reaped
}

var globalConfig *Config

// Load reads configuration from file, environment, and defaults.
// Priority: explicit file > ./autopress.yaml > $HOME/.autopress.yaml, with
// environment variables overriding file values.
func Load(cfgFile string) (*Config, error) {
	// .env is optional; ignore a missing file
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("autopress")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("AUTOPRESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; unreadable config is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvironmentVariables()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.App.ConfigFile = viper.ConfigFileUsed()
	if err := postProcessConfig(&cfg); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return globalConfig, nil
}

// Get returns the loaded configuration, loading defaults if Load was never
// called (tests and one-off tooling).
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			// Fall back to pure defaults so callers always get a value
			viper.Reset()
			setDefaults()
			var c Config
			_ = viper.Unmarshal(&c)
			globalConfig = &c
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".autopress")

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "90s")
	viper.SetDefault("ai.gemini.max_tokens", 8192)
	viper.SetDefault("ai.gemini.temperature", 0.7)

	viper.SetDefault("search.default_provider", "")
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.timeout", "30s")

	viper.SetDefault("images.provider", "")
	viper.SetDefault("images.max_images", 3)
	viper.SetDefault("images.timeout", "30s")

	viper.SetDefault("publish.timeout", "60s")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "10m")
	viper.SetDefault("server.cors.enabled", false)

	viper.SetDefault("autopilot.item_pause", "5s")
	viper.SetDefault("autopilot.refill_cap", 10)
	viper.SetDefault("autopilot.stage_timeout", "90s")
	viper.SetDefault("autopilot.research_timeout", "2m")
	viper.SetDefault("autopilot.max_parallel_projects", 4)
	viper.SetDefault("autopilot.stale_job_cutoff", "1h")
}

// bindEnvironmentVariables maps well-known environment variable names onto
// viper keys, first match wins.
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})
	bindEnvKeys("search.providers.google.api_key", []string{
		"GOOGLE_CUSTOM_SEARCH_API_KEY",
		"GOOGLE_CSE_API_KEY",
	})
	bindEnvKeys("search.providers.google.search_id", []string{
		"GOOGLE_CUSTOM_SEARCH_ID",
		"GOOGLE_CSE_ID",
	})
	bindEnvKeys("search.providers.serpapi.api_key", []string{
		"SERPAPI_API_KEY",
		"SERPAPI_KEY",
	})
	bindEnvKeys("images.api_key", []string{
		"PEXELS_API_KEY",
	})
	bindEnvKeys("publish.endpoint", []string{
		"CONTENT_SINK_URL",
	})
	bindEnvKeys("publish.token", []string{
		"CONTENT_SINK_TOKEN",
	})
	bindEnvKeys("server.trigger_token", []string{
		"AUTOPILOT_TRIGGER_TOKEN",
	})
	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"AUTOPRESS_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig expands paths and validates every duration field.
func postProcessConfig(cfg *Config) error {
	if cfg.App.DataDir != "" {
		cfg.App.DataDir = expandPath(cfg.App.DataDir)
	}

	durations := map[string]string{
		"ai.gemini.timeout":          cfg.AI.Gemini.Timeout,
		"search.timeout":             cfg.Search.Timeout,
		"images.timeout":             cfg.Images.Timeout,
		"publish.timeout":            cfg.Publish.Timeout,
		"server.read_timeout":        cfg.Server.ReadTimeout,
		"server.write_timeout":       cfg.Server.WriteTimeout,
		"autopilot.item_pause":       cfg.Autopilot.ItemPause,
		"autopilot.stage_timeout":    cfg.Autopilot.StageTimeout,
		"autopilot.research_timeout": cfg.Autopilot.ResearchTimeout,
		"autopilot.stale_job_cutoff": cfg.Autopilot.StaleJobCutoff,
	}
	for key, d := range durations {
		if d != "" {
			if _, err := time.ParseDuration(d); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, d)
			}
		}
	}
	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// Duration parses a duration config value, falling back when unset or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// Convenience getters for commonly used configuration values
func GetApp() App             { return Get().App }
func GetAI() AI               { return Get().AI }
func GetSearch() Search       { return Get().Search }
func GetImages() Images       { return Get().Images }
func GetPublish() Publish     { return Get().Publish }
func GetServer() Server       { return Get().Server }
func GetAutopilot() Autopilot { return Get().Autopilot }

func GetGeminiAPIKey() string   { return Get().AI.Gemini.APIKey }
func GetGeminiModel() string    { return Get().AI.Gemini.Model }
func GetSearchProvider() string { return Get().Search.DefaultProvider }
func GetDataDir() string        { return Get().App.DataDir }
func IsDebugMode() bool         { return Get().App.Debug }

// GetSearchProviderConfig returns credentials for creating a search provider
func GetSearchProviderConfig(providerType string) map[string]string {
	cfg := Get()
	switch providerType {
	case "google":
		return map[string]string{
			"api_key":   cfg.Search.Providers.Google.APIKey,
			"search_id": cfg.Search.Providers.Google.SearchID,
		}
	case "serpapi":
		return map[string]string{
			"api_key": cfg.Search.Providers.SerpAPI.APIKey,
		}
	default:
		return map[string]string{}
	}
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
