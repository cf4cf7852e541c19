package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CREDENTIALS_KEY", "unit-test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 30, cfg.Pipeline.StatementTimeoutSeconds)
	assert.Equal(t, 1000, cfg.Pipeline.MaxRows)
	assert.Equal(t, 60, cfg.Pipeline.ConfidenceThreshold)
	assert.Equal(t, 100, cfg.Pipeline.RenderMaxRows)
	assert.Equal(t, 5, cfg.Pipeline.HistoryWindow)
}

func TestLoadRequiresCredentialsKey(t *testing.T) {
	t.Setenv("CREDENTIALS_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREDENTIALS_KEY")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CREDENTIALS_KEY", "unit-test-key")
	t.Setenv("PIPELINE_MAX_ROWS", "50")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_MODEL", "claude-sonnet-4-20250514")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Pipeline.MaxRows)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.Model)
}

func TestConnectionString(t *testing.T) {
	dc := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=require", dc.ConnectionString())
}
