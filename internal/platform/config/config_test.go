package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RAILALERT_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TWILIO_ACCOUNT_SID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 200, cfg.Alerts.AuditCapacity)
	assert.Equal(t, 1, cfg.Alerts.DispatchConcurrency)
	assert.Equal(t, "https://api.twilio.com", cfg.Twilio.BaseURL)
	assert.False(t, cfg.Twilio.Enabled())
	assert.Empty(t, cfg.Postgres.URL)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.Breaker.Cooldown)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RAILALERT_ADDR", ":9090")
	t.Setenv("ADMIN_KEY", "s3cret")
	t.Setenv("AUDIT_CAPACITY", "50")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_FROM_NUMBER", "whatsapp:+14155238886")
	t.Setenv("REDIS_DIAL_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "s3cret", cfg.AdminKey)
	assert.Equal(t, 50, cfg.Alerts.AuditCapacity)
	assert.True(t, cfg.Twilio.Enabled())
	assert.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
}

func TestValidate(t *testing.T) {
	t.Run("rejects non-positive audit capacity", func(t *testing.T) {
		t.Setenv("AUDIT_CAPACITY", "0")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AUDIT_CAPACITY")
	})

	t.Run("rejects partial twilio credentials", func(t *testing.T) {
		t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
		t.Setenv("TWILIO_AUTH_TOKEN", "")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestWarnings(t *testing.T) {
	t.Run("unset admin key and operator address", func(t *testing.T) {
		warnings := Server{}.Warnings()
		require.Len(t, warnings, 2)
		assert.Contains(t, warnings[0], "ADMIN_KEY")
		assert.Contains(t, warnings[1], "OPERATOR_TEST_RECIPIENT")
	})

	t.Run("fully configured", func(t *testing.T) {
		cfg := Server{AdminKey: "k", Alerts: AlertsConfig{TestRecipient: "+6580000000"}}
		assert.Empty(t, cfg.Warnings())
	})
}
