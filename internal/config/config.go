// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Index      IndexConfig      `yaml:"index" mapstructure:"index"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" mapstructure:"embeddings"`
	Market     MarketConfig     `yaml:"market" mapstructure:"market"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// IndexConfig configures the document index backend.
type IndexConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EmbeddingsConfig holds embeddings API settings.
type EmbeddingsConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// MarketConfig holds market data provider settings.
type MarketConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PipelineConfig configures the answering pipeline.
type PipelineConfig struct {
	MaxRetries          int     `yaml:"max_retries" mapstructure:"max_retries"`
	TopK                int     `yaml:"top_k" mapstructure:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	Concurrency  int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("FINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("index.driver", "sqlite")
	v.SetDefault("index.sqlite_path", "finsight.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("embeddings.base_url", "https://api.openai.com/v1")
	v.SetDefault("embeddings.model", "text-embedding-3-large")
	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.top_k", 10)
	v.SetDefault("pipeline.similarity_threshold", 0.1)
	v.SetDefault("ingest.chunk_size", 1200)
	v.SetDefault("ingest.chunk_overlap", 200)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that required credentials are present for the given
// command scope.
func (c *Config) Validate(scope string) error {
	switch scope {
	case "query":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required (FINSIGHT_ANTHROPIC_KEY)")
		}
		fallthrough
	case "ingest":
		if c.Embeddings.Key == "" {
			return eris.New("config: embeddings.key is required (FINSIGHT_EMBEDDINGS_KEY)")
		}
		if c.Index.Driver == "postgres" && c.Index.DatabaseURL == "" {
			return eris.New("config: index.database_url is required for the postgres driver")
		}
	}
	return nil
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
