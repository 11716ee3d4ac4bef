package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"insightedge/internal/dataset"
	"insightedge/internal/logging"
)

// EnvPrefix scopes every environment override, e.g. INSIGHTEDGE_SERVER_PORT.
const EnvPrefix = "INSIGHTEDGE"

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Model     ModelConfig     `mapstructure:"model"`
	Narrative NarrativeConfig `mapstructure:"narrative"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatasetConfig selects the record source.
type DatasetConfig struct {
	Source       string        `mapstructure:"source"`
	Path         string        `mapstructure:"path"`
	DSN          string        `mapstructure:"dsn"`
	Table        string        `mapstructure:"table"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	MaxConns     int           `mapstructure:"max_conns"`
}

// Options converts the section into loader options.
func (d DatasetConfig) Options() dataset.Options {
	return dataset.Options{
		Source:       d.Source,
		Path:         d.Path,
		DSN:          d.DSN,
		Table:        d.Table,
		QueryTimeout: d.QueryTimeout,
		MaxConns:     d.MaxConns,
	}
}

// ModelConfig locates the classifier artifact.
type ModelConfig struct {
	Path string `mapstructure:"path"`
	// Threshold overrides the artifact threshold when positive.
	Threshold float64 `mapstructure:"threshold"`
}

// NarrativeConfig covers the hosted text-generation service.
type NarrativeConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float64       `mapstructure:"temperature"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	FailViewOnError bool          `mapstructure:"fail_view_on_error"`
}

// ServerConfig configures the HTTP dashboard.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ExportConfig sets chart dimensions for the server and the export command.
type ExportConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindSecrets(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// bindSecrets lets credentials come from the environment only. COHERE_API_KEY
// is accepted for deployments that already export it.
func bindSecrets(v *viper.Viper) error {
	if err := v.BindEnv("narrative.api_key", EnvPrefix+"_NARRATIVE_API_KEY", "COHERE_API_KEY"); err != nil {
		return fmt.Errorf("bind narrative.api_key: %w", err)
	}
	if err := v.BindEnv("dataset.dsn", EnvPrefix+"_DATASET_DSN"); err != nil {
		return fmt.Errorf("bind dataset.dsn: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "insightedge")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("dataset.source", "")
	v.SetDefault("dataset.path", "final_df.csv")
	v.SetDefault("dataset.table", "market_features")
	v.SetDefault("dataset.query_timeout", "30s")
	v.SetDefault("dataset.max_conns", 2)

	v.SetDefault("model.path", "xgboost_model.json")
	v.SetDefault("model.threshold", 0.0)

	v.SetDefault("narrative.base_url", "https://api.cohere.ai/v1")
	v.SetDefault("narrative.model", "command-r-plus")
	v.SetDefault("narrative.max_tokens", 300)
	v.SetDefault("narrative.temperature", 0.6)
	v.SetDefault("narrative.timeout", "30s")
	v.SetDefault("narrative.user_agent", "")
	v.SetDefault("narrative.fail_view_on_error", false)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", gin.ReleaseMode)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("export.width", 1000)
	v.SetDefault("export.height", 400)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Dataset.Source) {
	case "", dataset.SourceCSV, dataset.SourceParquet:
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset.path must be set")
		}
	case dataset.SourcePostgres:
		if c.Dataset.DSN == "" {
			return fmt.Errorf("dataset.dsn 必须配置 (postgres source)")
		}
	default:
		return fmt.Errorf("dataset.source %q is not one of csv, parquet, postgres", c.Dataset.Source)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model.path must be set")
	}
	if c.Model.Threshold < 0 || c.Model.Threshold >= 1 {
		return fmt.Errorf("model.threshold must be within [0, 1)")
	}
	if c.Narrative.MaxTokens <= 0 {
		return fmt.Errorf("narrative.max_tokens must be greater than zero")
	}
	if c.Narrative.Temperature < 0 || c.Narrative.Temperature > 5 {
		return fmt.Errorf("narrative.temperature must be within [0, 5]")
	}
	if c.Narrative.Timeout <= 0 {
		return fmt.Errorf("narrative.timeout must be greater than zero")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be within 1-65535")
	}
	switch c.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("server.mode %q is not one of debug, release, test", c.Server.Mode)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	if c.Export.Width <= 0 || c.Export.Height <= 0 {
		return fmt.Errorf("export.width and export.height must be greater than zero")
	}
	return nil
}

// HasNarrativeKey reports whether a credential was supplied.
func (c *Config) HasNarrativeKey() bool {
	return strings.TrimSpace(c.Narrative.APIKey) != ""
}
