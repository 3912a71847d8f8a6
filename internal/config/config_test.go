package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "parser-bench.db", cfg.Store.Path)
	assert.Equal(t, ".parser-bench-cache", cfg.Cache.Dir)
	assert.Equal(t, "gtruth", cfg.GroundTruth.Root)
	assert.Equal(t, "manifest.yaml", cfg.Manifest.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "pilot", cfg.Bench.Phase)
	assert.Equal(t, 1, cfg.Bench.Trials)
	assert.Equal(t, 4, cfg.Bench.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Bench.AdapterTimeout)
	assert.InDelta(t, 0.40, cfg.Scoring.TextWeight, 0.001)
	assert.InDelta(t, 0.60, cfg.Scoring.StructureWeight, 0.001)
	assert.Equal(t, 4, cfg.Scoring.BLEUOrder)
	assert.InDelta(t, 0.8, cfg.Scoring.HeadingSimilarityThreshold, 0.001)
	assert.InDelta(t, 0.02, cfg.Scoring.WinnerToleranceBand, 0.001)
	assert.Equal(t, 3, cfg.Validator.MaxLabelJump)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Claude.Model)
	assert.Equal(t, int64(8192), cfg.Claude.MaxTokens)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialBackoff)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  path: /tmp/bench.db
log:
  level: debug
  format: console
bench:
  phase: full
  trials: 3
parsers:
  - name: marker
    root: /data/marker-out
  - name: nougat
    root: /data/nougat-out
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bench.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "full", cfg.Bench.Phase)
	assert.Equal(t, 3, cfg.Bench.Trials)
	require.Len(t, cfg.Parsers, 2)
	assert.Equal(t, "marker", cfg.Parsers[0].Name)
	assert.Equal(t, "/data/nougat-out", cfg.Parsers[1].Root)
	// Untouched keys keep defaults.
	assert.Equal(t, 4, cfg.Bench.Concurrency)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("PARSERBENCH_LOG_LEVEL", "warn")
	t.Setenv("PARSERBENCH_BENCH_CONCURRENCY", "16")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 16, cfg.Bench.Concurrency)
}

func TestLoadRejectsBadScoringWeights(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
scoring:
  text_weight: 0.7
  structure_weight: 0.7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
