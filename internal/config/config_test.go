package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/internal/config"
)

func envMap(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

const minimalYAML = `
mite:
  account: ${MITE_ACCOUNT}
  api_key: ${MITE_API_KEY}
alphaflow:
  dvelop_api_key: ${DVELOP_API_KEY}
  project_blacklist: ["4711", " 42 "]
`

func TestSubstituteEnv(t *testing.T) {
	t.Run("replaces references", func(t *testing.T) {
		out, err := config.SubstituteEnv("key: ${A}-${B}", envMap(map[string]string{"A": "x", "B": "y"}))
		require.NoError(t, err)
		assert.Equal(t, "key: x-y", out)
	})

	t.Run("reports all missing variables sorted", func(t *testing.T) {
		_, err := config.SubstituteEnv("a: ${ZED}\nb: ${ALPHA}\nc: ${ZED}", envMap(nil))
		require.ErrorIs(t, err, config.ErrMissingEnvVar)
		assert.Contains(t, err.Error(), "ALPHA, ZED")
	})

	t.Run("comment lines are left alone", func(t *testing.T) {
		out, err := config.SubstituteEnv("# uses ${UNSET}\nkey: value", envMap(nil))
		require.NoError(t, err)
		assert.Equal(t, "# uses ${UNSET}\nkey: value", out)
	})

	t.Run("empty value counts as set", func(t *testing.T) {
		out, err := config.SubstituteEnv("key: '${EMPTY}'", envMap(map[string]string{"EMPTY": ""}))
		require.NoError(t, err)
		assert.Equal(t, "key: ''", out)
	})
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(minimalYAML), envMap(map[string]string{
		"MITE_ACCOUNT":   "acme",
		"MITE_API_KEY":   "mite-secret",
		"DVELOP_API_KEY": "dvelop-secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Mite.Account)
	assert.Equal(t, 5.0, cfg.Mite.RequestsPerSecond)
	assert.Equal(t, "https://alphaflow-test.d-velop.cloud", cfg.Alphaflow.DvelopBaseURL)
	assert.Equal(t, 190.0, cfg.Alphaflow.DefaultHourlyRate)
	assert.Equal(t, 19.0, cfg.Alphaflow.DefaultVATRate)
	assert.Equal(t, 30, cfg.Alphaflow.DefaultDueDays)
	assert.Equal(t, "EUR", cfg.Alphaflow.DefaultCurrency)
	assert.Equal(t, "5f438d2fc40da20fc4efc338", cfg.Alphaflow.DefaultTradingPartnerID)
	assert.Equal(t, 3, cfg.Alphaflow.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Alphaflow.Retry.InitialDelay)
	assert.Equal(t, 2.0, cfg.Alphaflow.Retry.Multiplier)
	assert.Equal(t, "609bb93bd152c934f2d7a0b3", cfg.Alphaflow.DocumentGeneration.DocTemplate)
	assert.Equal(t, "Dienstleistungsnachweis.pdf", cfg.Alphaflow.DocumentGeneration.AttachmentFilename)
	assert.True(t, cfg.Alphaflow.DocumentGeneration.StoreToDMS)
	assert.Equal(t, 1, cfg.Lock.Concurrency)
	assert.Equal(t, "invoicer.db", cfg.Journal.Path)
	assert.Equal(t, "Ausgangsrechnungen", cfg.Sheets.Worksheet)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
}

func TestParseMissingEnvVar(t *testing.T) {
	_, err := config.Parse([]byte(minimalYAML), envMap(map[string]string{"MITE_ACCOUNT": "acme"}))
	require.ErrorIs(t, err, config.ErrMissingEnvVar)
	assert.Contains(t, err.Error(), "DVELOP_API_KEY")
	assert.Contains(t, err.Error(), "MITE_API_KEY")
}

func TestParseValidation(t *testing.T) {
	env := envMap(map[string]string{
		"MITE_ACCOUNT":   "acme",
		"MITE_API_KEY":   "k",
		"DVELOP_API_KEY": "d",
	})

	tests := []struct {
		name  string
		extra string
		want  string
	}{
		{"non-positive hourly rate", "  default_hourly_rate: 0\n", "default_hourly_rate"},
		{"vat rate out of range", "  default_vat_rate: 120\n", "default_vat_rate"},
		{"non-positive due days", "  default_due_days: 0\n", "default_due_days"},
		{"empty organization", "  organization_id: \"\"\n", "organization_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(minimalYAML+tt.extra), env)
			require.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("unknown log level", func(t *testing.T) {
		_, err := config.Parse([]byte(minimalYAML+"logging:\n  level: chatty\n"), env)
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestLogLevelEnvOverride(t *testing.T) {
	cfg, err := config.Parse([]byte(minimalYAML), envMap(map[string]string{
		"MITE_ACCOUNT":   "acme",
		"MITE_API_KEY":   "k",
		"DVELOP_API_KEY": "d",
		"LOG_LEVEL":      "debug",
	}))
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "DEBUG", cfg.GetLoggerConfig().Level)
}

func TestBlacklistAndOverrides(t *testing.T) {
	cfg, err := config.Parse([]byte(minimalYAML), envMap(map[string]string{
		"MITE_ACCOUNT":   "acme",
		"MITE_API_KEY":   "mite-secret",
		"DVELOP_API_KEY": "dvelop-secret",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProjectBlacklisted("4711"))
	assert.True(t, cfg.IsProjectBlacklisted("42"))
	assert.False(t, cfg.IsProjectBlacklisted("1"))

	override := cfg.WithTradingPartner("tp-1")
	assert.Equal(t, "tp-1", override.Alphaflow.DefaultTradingPartnerID)
	assert.Equal(t, "5f438d2fc40da20fc4efc338", cfg.Alphaflow.DefaultTradingPartnerID)

	redacted := cfg.Redacted()
	assert.NotContains(t, redacted.Mite.APIKey, "secret")
	assert.NotContains(t, redacted.Alphaflow.DvelopAPIKey, "secret")
	assert.Equal(t, "mite-secret", cfg.Mite.APIKey)
}
