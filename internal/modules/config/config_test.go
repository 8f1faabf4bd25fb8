package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Scoring.Threshold)
	assert.Equal(t, MaxBatchSize, cfg.Scoring.BatchSize)
	assert.Equal(t, 3, cfg.Jobs.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Jobs.BaseDelay)
	assert.Equal(t, 300*time.Second, cfg.Jobs.MaxDelay)
	assert.Equal(t, 24*time.Hour, cfg.Capability.TTL)
	assert.Equal(t, "category", cfg.Scoring.Algorithm)
}

func TestLoadFileAndClamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")
	body := `
service:
  port: 9090
scoring:
  algorithm: directive
  threshold: 140
  batch_size: 500
capability:
  ttl: 1h
jobs:
  base_delay: 5s
symbols: [AAPL, MSFT]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "directive", cfg.Scoring.Algorithm)
	assert.Equal(t, 100, cfg.Scoring.Threshold)
	assert.Equal(t, MaxBatchSize, cfg.Scoring.BatchSize)
	assert.Equal(t, time.Hour, cfg.Capability.TTL)
	assert.Equal(t, 5*time.Second, cfg.Jobs.BaseDelay)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Symbols)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(databaseDSN, "postgres://localhost/scoring")
	t.Setenv(kafkaBrokersENV, "k1:9092,k2:9092")
	t.Setenv(dataModeENV, "simulation")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "simulation", cfg.Scoring.Mode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
