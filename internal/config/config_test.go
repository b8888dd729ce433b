package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("MAX_QUESTIONS", "")
	t.Setenv("MIN_QUESTIONS", "")
	t.Setenv("LEDGER_TIMEZONE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 8, cfg.MaxQuestions)
	assert.Equal(t, 5, cfg.MinQuestions)
	assert.Equal(t, 1, cfg.FreeDailyLimit)
	assert.Equal(t, 30*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.RetryWindow)
	assert.Less(t, cfg.CollaboratorBudget(), cfg.RequestTimeout)
	assert.Equal(t, "Asia/Shanghai", cfg.Location.String())
	assert.True(t, cfg.FallbackQuestions)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("MAX_QUESTIONS", "10")
	t.Setenv("SCORING_TIMEOUT", "2s")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 10, cfg.MaxQuestions)
	assert.Equal(t, 2*time.Second, cfg.ScoringTimeout)
	assert.True(t, cfg.AuthRequired)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoadConfig_UnsupportedProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "unknown")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"MAX_QUESTIONS":       "many",
		"SCORING_TIMEOUT":     "soon",
		"LEDGER_TIMEZONE":     "Mars/Olympus",
		"LOCK_BACKEND":        "redis",
		"DB_DRIVER":           "mysql",
		"MIN_QUESTIONS":       "20",
		"GENERATION_ATTEMPTS": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("REDIS_ADDR", "")
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_CollaboratorBudgetMustFitRequest(t *testing.T) {
	t.Setenv("SCORING_TIMEOUT", "15s")
	t.Setenv("GENERATION_ATTEMPTS", "2")
	t.Setenv("GENERATION_TIMEOUT", "30s")
	t.Setenv("REQUEST_TIMEOUT", "60s")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")

	t.Setenv("REQUEST_TIMEOUT", "90s")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 75*time.Second, cfg.CollaboratorBudget())
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("UNIT_TEST_ENV", "value")
	assert.Equal(t, "value", getEnvOrDefault("UNIT_TEST_ENV", "fallback"))

	t.Setenv("UNIT_TEST_ENV", "")
	assert.Equal(t, "fallback", getEnvOrDefault("UNIT_TEST_ENV", "fallback"))
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", User: "u", Password: "p", DBName: "n", Port: "5432", SSLMode: "disable"}.DSN()
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable", dsn)
}
