package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"notebase/internal/config"
)

func TestLoadConfig(t *testing.T) {
	// Set env var directly to test envconfig logic
	os.Setenv("DB_HOST", "test-host")
	defer os.Unsetenv("DB_HOST")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "test-host", cfg.DBHost)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	content := []byte("DB_HOST=loaded-from-file")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "loaded-from-file", cfg.DBHost)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 30, cfg.EmbedTimeoutSeconds)
	assert.Equal(t, 60, cfg.SweepIntervalSeconds)
	assert.Equal(t, 50, cfg.SweepBatchSize)
	assert.Equal(t, 4, cfg.SweepConcurrency)
}

func TestLoadConfig_SweepKnobs(t *testing.T) {
	os.Setenv("SWEEP_INTERVAL_SECONDS", "5")
	os.Setenv("SWEEP_BATCH_SIZE", "10")
	os.Setenv("RETRY_MAX_ATTEMPTS", "7")
	defer os.Unsetenv("SWEEP_INTERVAL_SECONDS")
	defer os.Unsetenv("SWEEP_BATCH_SIZE")
	defer os.Unsetenv("RETRY_MAX_ATTEMPTS")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 5, cfg.SweepIntervalSeconds)
	assert.Equal(t, 10, cfg.SweepBatchSize)
	assert.Equal(t, 7, cfg.RetryMaxAttempts)
}
