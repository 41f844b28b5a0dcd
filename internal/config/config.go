package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ApolloConfig holds the data provider API credentials.
type ApolloConfig struct {
	APIKey  string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// SearchConfig tunes the paginated search pipeline.
type SearchConfig struct {
	PageSize          int `yaml:"page_size" mapstructure:"page_size"`
	MaxPagesPerCall   int `yaml:"max_pages_per_call" mapstructure:"max_pages_per_call"`
	OrgChunkSize      int `yaml:"org_chunk_size" mapstructure:"org_chunk_size"`
	DefaultMaxResults int `yaml:"default_max_results" mapstructure:"default_max_results"`
}

// EnrichConfig configures the enrichment dispatcher and webhook reconciler.
type EnrichConfig struct {
	Secret            string `yaml:"secret" mapstructure:"secret"`
	CallbackBaseURL   string `yaml:"callback_base_url" mapstructure:"callback_base_url"`
	RowCheckAttempts  int    `yaml:"row_check_attempts" mapstructure:"row_check_attempts"`
	RowCheckDelaySecs int    `yaml:"row_check_delay_secs" mapstructure:"row_check_delay_secs"`
	MaxUpdateAttempts int    `yaml:"max_update_attempts" mapstructure:"max_update_attempts"`
	MatchRetries      int    `yaml:"match_retries" mapstructure:"match_retries"`
}

// RowCheckDelay returns the wait between row-existence checks.
func (c EnrichConfig) RowCheckDelay() time.Duration {
	return time.Duration(c.RowCheckDelaySecs) * time.Second
}

// SalesforceConfig holds optional CRM push settings. The push is enabled
// only when Username is set.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
	Object   string `yaml:"object" mapstructure:"object"`
}

// Enabled reports whether CRM push is configured.
func (c SalesforceConfig) Enabled() bool {
	return c.Username != ""
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("apollo.base_url", "https://api.apollo.io/api")
	v.SetDefault("apollo.rps", 5)
	v.SetDefault("search.page_size", 100)
	v.SetDefault("search.max_pages_per_call", 5)
	v.SetDefault("search.org_chunk_size", 25)
	v.SetDefault("search.default_max_results", 100)
	v.SetDefault("enrich.row_check_attempts", 5)
	v.SetDefault("enrich.row_check_delay_secs", 2)
	v.SetDefault("enrich.max_update_attempts", 10)
	v.SetDefault("enrich.match_retries", 3)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.object", "Contact")

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
