package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/parser-bench/internal/adapter"
	"github.com/sells-group/parser-bench/internal/bench"
	"github.com/sells-group/parser-bench/internal/gtruth"
	"github.com/sells-group/parser-bench/internal/metrics"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig            `yaml:"store" mapstructure:"store"`
	Cache       CacheConfig            `yaml:"cache" mapstructure:"cache"`
	GroundTruth GroundTruthConfig      `yaml:"ground_truth" mapstructure:"ground_truth"`
	Manifest    ManifestConfig         `yaml:"manifest" mapstructure:"manifest"`
	Scoring     metrics.ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Validator   gtruth.ValidatorConfig `yaml:"validator" mapstructure:"validator"`
	Bench       bench.Config           `yaml:"bench" mapstructure:"bench"`
	Claude      adapter.ClaudeConfig   `yaml:"claude" mapstructure:"claude"`
	Parsers     []MarkdownParserConfig `yaml:"parsers" mapstructure:"parsers"`
	Retry       RetryConfig            `yaml:"retry" mapstructure:"retry"`
	Log         LogConfig              `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run record database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures the artifact cache.
type CacheConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// GroundTruthConfig locates the verified ground-truth corpus.
type GroundTruthConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// ManifestConfig locates the document manifest.
type ManifestConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MarkdownParserConfig registers one external parser whose per-page
// Markdown output sits under Root.
type MarkdownParserConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	Root string `yaml:"root" mapstructure:"root"`
}

// RetryConfig configures adapter retry behavior.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
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
	v.SetEnvPrefix("PARSERBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "parser-bench.db")
	v.SetDefault("cache.dir", ".parser-bench-cache")
	v.SetDefault("ground_truth.root", "gtruth")
	v.SetDefault("manifest.path", "manifest.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("bench.phase", "pilot")
	v.SetDefault("bench.trials", 1)
	v.SetDefault("bench.concurrency", 4)
	v.SetDefault("bench.adapter_timeout", "5m")
	v.SetDefault("scoring.version", metrics.DefaultScoringConfig().Version)
	v.SetDefault("scoring.text_weight", 0.40)
	v.SetDefault("scoring.structure_weight", 0.60)
	v.SetDefault("scoring.bleu_order", 4)
	v.SetDefault("scoring.heading_similarity_threshold", 0.8)
	v.SetDefault("scoring.winner_tolerance_band", 0.02)
	v.SetDefault("validator.max_label_jump", 3)
	v.SetDefault("claude.model", "claude-sonnet-4-5")
	v.SetDefault("claude.max_tokens", 8192)
	v.SetDefault("claude.requests_per_minute", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", "500ms")
	v.SetDefault("retry.max_backoff", "30s")
	v.SetDefault("retry.backoff_multiplier", 2.0)

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

	if err := cfg.Scoring.Validate(); err != nil {
		return nil, eris.Wrap(err, "config: scoring")
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
