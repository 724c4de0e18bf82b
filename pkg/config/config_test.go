package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"VALIDATION_MODE", "THRESHOLD_VALUE", "PRICE_PRECISION", "DATABASE_ENABLED",
		"DATABASE_URL", "BATCH_WORKERS", "BATCH_FILE_TIMEOUT", "LOG_LEVEL", "PUSH_TOKENS",
		"RESEND_API_KEY", "ALERT_EMAILS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, invoice.ModePartsBased, cfg.Validation.Mode)
	assert.True(t, cfg.Validation.ThresholdValue.Equal(invoice.DefaultThreshold))
	assert.Equal(t, int32(4), cfg.Validation.PricePrecision)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Batch.FileTimeout)
	assert.Equal(t, 90, cfg.Discovery.RetentionDays)
	assert.Equal(t, slog.LevelInfo, cfg.Logging.SlogLevel())
	assert.Empty(t, cfg.Push.Tokens)
	assert.Empty(t, cfg.Push.ResendAPIKey)
	assert.Empty(t, cfg.Push.EmailTo)

	vc := cfg.Validation.Configuration()
	assert.Nil(t, vc.ThresholdValue)
	_, err = vc.Strategy()
	assert.NoError(t, err)
}

func TestLoad_ThresholdMode(t *testing.T) {
	t.Setenv("VALIDATION_MODE", "Threshold_Based")
	t.Setenv("THRESHOLD_VALUE", "0.45")
	t.Setenv("PRICE_PRECISION", "2")
	t.Setenv("BATCH_FILE_TIMEOUT", "30s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PUSH_TOKENS", "ExpoPushToken[a], ,ExpoPushToken[b]")
	t.Setenv("ALERT_EMAILS", "ap@example.com, audit@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Batch.FileTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.SlogLevel())
	assert.Equal(t, []string{"ExpoPushToken[a]", "ExpoPushToken[b]"}, cfg.Push.Tokens)
	assert.Equal(t, []string{"ap@example.com", "audit@example.com"}, cfg.Push.EmailTo)

	strategy, err := cfg.Validation.Configuration().Strategy()
	require.NoError(t, err)
	threshold, ok := strategy.(invoice.ThresholdBased)
	require.True(t, ok)
	assert.Equal(t, "0.45", threshold.Threshold.String())
	assert.Equal(t, int32(2), cfg.Validation.Configuration().Precision())
}

func TestLoad_ZeroPrecision(t *testing.T) {
	t.Setenv("VALIDATION_MODE", "")
	t.Setenv("PRICE_PRECISION", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int32(0), cfg.Validation.Configuration().Precision())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown mode", map[string]string{"VALIDATION_MODE": "fuzzy"}},
		{"bad threshold", map[string]string{"VALIDATION_MODE": "threshold_based", "THRESHOLD_VALUE": "thirty"}},
		{"negative threshold", map[string]string{"VALIDATION_MODE": "threshold_based", "THRESHOLD_VALUE": "-1"}},
		{"negative precision", map[string]string{"PRICE_PRECISION": "-2"}},
		{"negative retention", map[string]string{"DISCOVERY_RETENTION_DAYS": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "audit", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=audit sslmode=disable", c.DSN())

	c.URL = "postgres://u:p@db/audit"
	assert.Equal(t, "postgres://u:p@db/audit", c.DSN())
}
