package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/internal/errors"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "GIN_MODE", "DATABASE_DRIVER", "DATABASE_URL", "LLM_API_KEY", "LLM_MODEL",
		"LLM_BASE_URL", "LLM_TEMPERATURE", "LLM_MAX_TOKENS", "LLM_TIMEOUT", "MAX_ROWS",
		"MAX_CONCURRENT_ANALYSES", "MAX_UPLOAD_MB", "PLAN_ADVANCED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.URL)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, DefaultMaxRows, cfg.Limits.MaxRows)
	assert.Equal(t, DefaultMaxConcurrentAnalyses, cfg.Limits.MaxConcurrentAnalyses)
	assert.Equal(t, int64(DefaultMaxUploadMB)<<20, cfg.Limits.MaxUploadBytes())
	assert.False(t, cfg.Plan.Advanced)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("MAX_ROWS", "100")
	t.Setenv("PLAN_ADVANCED", "true")
	t.Setenv("MAX_CONCURRENT_ANALYSES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 100, cfg.Limits.MaxRows)
	assert.Equal(t, DefaultMaxConcurrentAnalyses, cfg.Limits.MaxConcurrentAnalyses)
	assert.True(t, cfg.Plan.Advanced)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"DATABASE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mysql"}},
		{"zero rows", map[string]string{"MAX_ROWS": "0"}},
		{"negative concurrency", map[string]string{"MAX_CONCURRENT_ANALYSES": "-1"}},
		{"temperature out of range", map[string]string{"LLM_TEMPERATURE": "3.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
