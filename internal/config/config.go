package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Vision    VisionConfig    `yaml:"vision" mapstructure:"vision"`
	CostAPI   CostAPIConfig   `yaml:"cost_api" mapstructure:"cost_api"`
	Compose   ComposeConfig   `yaml:"compose" mapstructure:"compose"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Estimate  EstimateConfig  `yaml:"estimate" mapstructure:"estimate"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Uploads   UploadsConfig   `yaml:"uploads" mapstructure:"uploads"`
}

// StoreConfig configures the quote store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port         int      `yaml:"port" mapstructure:"port"`
	AllowOrigins []string `yaml:"allow_origins" mapstructure:"allow_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// VisionConfig configures the vision collaborator.
type VisionConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CostAPIConfig configures the cost-baseline collaborator.
type CostAPIConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ComposeConfig configures the reasoning/compose collaborator.
type ComposeConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ProvidersConfig holds AI provider credentials and model ids. A provider
// is a selector candidate only when its key is present at startup.
type ProvidersConfig struct {
	GoogleKey       string  `yaml:"google_key" mapstructure:"google_key"`
	OpenAIKey       string  `yaml:"openai_key" mapstructure:"openai_key"`
	AnthropicKey    string  `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	OpenRouterKey   string  `yaml:"openrouter_key" mapstructure:"openrouter_key"`
	GeminiModel     string  `yaml:"gemini_model" mapstructure:"gemini_model"`
	GPT4VModel      string  `yaml:"gpt4v_model" mapstructure:"gpt4v_model"`
	ClaudeModel     string  `yaml:"claude_model" mapstructure:"claude_model"`
	OpenRouterModel string  `yaml:"openrouter_model" mapstructure:"openrouter_model"`
	Preferred       string  `yaml:"preferred" mapstructure:"preferred"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec      float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst       int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// PricingConfig configures the optional remote pricing backend.
type PricingConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	Key         string `yaml:"key" mapstructure:"key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CatalogConfig configures external price-list files and hot reload.
type CatalogConfig struct {
	PriceListFile      string   `yaml:"price_list_file" mapstructure:"price_list_file"`
	PriceListFiles     []string `yaml:"price_list_files" mapstructure:"price_list_files"`
	ReloadIntervalSecs int      `yaml:"reload_interval_secs" mapstructure:"reload_interval_secs"`
	Watch              bool     `yaml:"watch" mapstructure:"watch"`
}

// Files returns the merged single-file + multi-file price list paths.
func (c CatalogConfig) Files() []string {
	var files []string
	if c.PriceListFile != "" {
		files = append(files, c.PriceListFile)
	}
	for _, f := range c.PriceListFiles {
		f = strings.TrimSpace(f)
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// EstimateConfig holds the heuristic calculator constants. The exponent
// and multipliers are preserved from field tuning, not derived; treat
// them as knobs.
type EstimateConfig struct {
	AreaExponent     float64 `yaml:"area_exponent" mapstructure:"area_exponent"`
	AreaFactorMin    float64 `yaml:"area_factor_min" mapstructure:"area_factor_min"`
	AreaFactorMax    float64 `yaml:"area_factor_max" mapstructure:"area_factor_max"`
	RoofMultiplier   float64 `yaml:"roof_multiplier" mapstructure:"roof_multiplier"`
	DefaultUnitPrice float64 `yaml:"default_unit_price" mapstructure:"default_unit_price"`
	DefaultLaborHrs  float64 `yaml:"default_labor_hours" mapstructure:"default_labor_hours"`
}

// PipelineConfig bounds the background pipeline run.
type PipelineConfig struct {
	OverallTimeoutSecs int `yaml:"overall_timeout_secs" mapstructure:"overall_timeout_secs"`
}

// BatchConfig configures CSV batch processing.
type BatchConfig struct {
	MaxConcurrentQuotes int `yaml:"max_concurrent_quotes" mapstructure:"max_concurrent_quotes"`
}

// UploadsConfig configures image upload storage.
type UploadsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("QUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "quotes.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000", "http://localhost:8080"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("vision.timeout_secs", 15)
	v.SetDefault("cost_api.timeout_secs", 15)
	v.SetDefault("compose.timeout_secs", 45)
	v.SetDefault("compose.model", "default")
	v.SetDefault("providers.gemini_model", "gemini-2.0-flash-exp")
	v.SetDefault("providers.gpt4v_model", "gpt-4o")
	v.SetDefault("providers.claude_model", "claude-3-5-sonnet-20241022")
	v.SetDefault("providers.openrouter_model", "openai/gpt-oss-20b")
	v.SetDefault("providers.preferred", "auto")
	v.SetDefault("providers.timeout_secs", 60)
	v.SetDefault("providers.rate_per_sec", 2.0)
	v.SetDefault("providers.rate_burst", 4)
	v.SetDefault("pricing.timeout_secs", 5)
	v.SetDefault("catalog.reload_interval_secs", 10)
	v.SetDefault("estimate.area_exponent", 0.7)
	v.SetDefault("estimate.area_factor_min", 0.6)
	v.SetDefault("estimate.area_factor_max", 3.0)
	v.SetDefault("estimate.roof_multiplier", 1.6)
	v.SetDefault("estimate.default_unit_price", 10.0)
	v.SetDefault("estimate.default_labor_hours", 16.0)
	v.SetDefault("pipeline.overall_timeout_secs", 180)
	v.SetDefault("batch.max_concurrent_quotes", 5)
	v.SetDefault("uploads.dir", "uploads")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
