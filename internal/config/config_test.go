package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("TWILIO_ACCOUNT_SID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.SMS.RateLimit)
	assert.Equal(t, 60*time.Second, cfg.SMS.Cooldown)
	assert.Equal(t, 300*time.Second, cfg.SMS.CodeTTL)
	assert.Equal(t, 3, cfg.SMS.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.SMS.MinResendInterval)
	assert.Equal(t, "1", cfg.SMS.DefaultCountry)
	assert.Equal(t, "memory", cfg.SMS.Store)
	assert.True(t, cfg.SMS.ExposeMockCode, "в development mock-код показывается")
	assert.False(t, cfg.SMS.TwilioConfigured())
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("SMS_RATE_LIMIT", "5")
	t.Setenv("SMS_COOLDOWN", "120")
	t.Setenv("VERIFICATION_CODE_EXPIRY", "600")
	t.Setenv("SMS_DEFAULT_COUNTRY_CODE", "+7")
	t.Setenv("SMS_STORE", "Redis")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://corent.app, https://admin.corent.app")
	t.Setenv("PUBLIC_BASE_URL", "https://api.corent.app/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.SMS.RateLimit)
	assert.Equal(t, 2*time.Minute, cfg.SMS.Cooldown)
	assert.Equal(t, 10*time.Minute, cfg.SMS.CodeTTL)
	assert.Equal(t, "7", cfg.SMS.DefaultCountry)
	assert.Equal(t, "redis", cfg.SMS.Store)
	assert.False(t, cfg.SMS.ExposeMockCode)
	assert.Equal(t, []string{"https://corent.app", "https://admin.corent.app"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://api.corent.app", cfg.PublicBaseURL)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://corent.app")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_InvalidStore(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SMS_STORE", "memcached")

	_, err := Load()
	assert.Error(t, err)
}

func TestSMSConfig_TwilioConfigured(t *testing.T) {
	assert.True(t, SMSConfig{AccountSID: "AC123", AuthToken: "token", FromNumber: "+15550001111"}.TwilioConfigured())
	assert.False(t, SMSConfig{AccountSID: "AC123", AuthToken: "token"}.TwilioConfigured())
	assert.False(t, SMSConfig{
		AccountSID: "your-twilio-account-sid",
		AuthToken:  "your-twilio-auth-token",
		FromNumber: "your-twilio-phone-number",
	}.TwilioConfigured())
}
