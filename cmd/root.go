package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parser-bench/internal/adapter"
	"github.com/sells-group/parser-bench/internal/cache"
	"github.com/sells-group/parser-bench/internal/config"
	"github.com/sells-group/parser-bench/internal/resilience"
	"github.com/sells-group/parser-bench/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "parser-bench",
	Short: "PDF parser benchmark harness",
	Long:  "Runs candidate PDF parsers over a document corpus, scores their output against verified ground truth, and ranks them on a weighted leaderboard.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the run record database and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func openCache() (*cache.Store, error) {
	return cache.New(cfg.Cache.Dir)
}

func retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		Multiplier:     cfg.Retry.BackoffMultiplier,
	}
}

// buildRegistry wires every configured parser. The Claude adapter joins
// only when an API key is configured; Markdown-directory parsers come
// straight from config.
func buildRegistry() (*adapter.Registry, error) {
	reg := adapter.NewRegistry()
	for _, p := range cfg.Parsers {
		if err := reg.Register(adapter.NewMarkdownDir(p.Name, p.Root)); err != nil {
			return nil, err
		}
	}
	if cfg.Claude.APIKey != "" {
		claude, err := adapter.NewClaude(cfg.Claude, retryConfig())
		if err != nil {
			return nil, err
		}
		if err := reg.Register(claude); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
