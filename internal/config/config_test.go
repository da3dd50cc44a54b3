package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir изолирует тест от .env и config.yaml рабочей директории
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8000", cfg.AppPort)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "primary", cfg.GoogleCalendarID)
	assert.Equal(t, "America/Mexico_City", cfg.DefaultTimezone)
	assert.Equal(t, 9, cfg.BusinessStartHour)
	assert.Equal(t, 18, cfg.BusinessEndHour)
	assert.Equal(t, time.Hour, cfg.AppointmentDuration())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "@every 1m", cfg.HealthCheckSchedule)
	assert.Equal(t, "America/Mexico_City", cfg.Location().String())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("BACKEND", "Memory")
	t.Setenv("BUSINESS_START_HOUR", "8")
	t.Setenv("BUSINESS_END_HOUR", "20")
	t.Setenv("DEFAULT_APPOINTMENT_DURATION", "30")
	t.Setenv("DEFAULT_TIMEZONE", "Europe/Moscow")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "-100123")
	t.Setenv("PUBLIC_BASE_URL", "https://example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, 8, cfg.BusinessStartHour)
	assert.Equal(t, 20, cfg.BusinessEndHour)
	assert.Equal(t, 30*time.Minute, cfg.AppointmentDuration())
	assert.Equal(t, "Europe/Moscow", cfg.DefaultTimezone)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, int64(-100123), cfg.TelegramAdminChatID)
	assert.Equal(t, "https://example.com", cfg.PublicBaseURL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BUSINESS_NAME=Dental Clinic\n"), 0o600))
	t.Setenv("BACKEND", "memory")
	// godotenv не перезаписывает существующие переменные; t.Setenv вернёт значение после теста
	t.Setenv("BUSINESS_NAME", "")
	require.NoError(t, os.Unsetenv("BUSINESS_NAME"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Dental Clinic", cfg.BusinessName)
}

func TestLoad_GoogleRequiresCredentials(t *testing.T) {
	dir := inTempDir(t)
	t.Setenv("BACKEND", "google")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(dir, "missing.json"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service account file")

	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte("{}"), 0o600))
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", creds)

	_, err = Load()
	assert.NoError(t, err)
}

func validConfig() Config {
	return Config{
		Backend:                    BackendMemory,
		DefaultTimezone:            "America/Mexico_City",
		BusinessStartHour:          9,
		BusinessEndHour:            18,
		DefaultAppointmentDuration: 60,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Backend = "sqlite" }, "unknown BACKEND"},
		{"postgres without dsn", func(c *Config) { c.Backend = BackendPostgres }, "DB_DSN"},
		{"start after end", func(c *Config) { c.BusinessStartHour = 18; c.BusinessEndHour = 9 }, "must be before"},
		{"start equals end", func(c *Config) { c.BusinessStartHour = 12; c.BusinessEndHour = 12 }, "must be before"},
		{"end out of range", func(c *Config) { c.BusinessEndHour = 25 }, "BUSINESS_END_HOUR"},
		{"negative start", func(c *Config) { c.BusinessStartHour = -1 }, "BUSINESS_START_HOUR"},
		{"zero duration", func(c *Config) { c.DefaultAppointmentDuration = 0 }, "DEFAULT_APPOINTMENT_DURATION"},
		{"bad timezone", func(c *Config) { c.DefaultTimezone = "Mars/Base" }, "DEFAULT_TIMEZONE"},
		{"trusted proxies", func(c *Config) { c.TrustedProxies = "10.0.0.1, 172.16.0.0/12" }, ""},
		{"bad trusted proxy", func(c *Config) { c.TrustedProxies = "10.0.0.1,proxy.local" }, "TRUSTED_PROXIES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestTrustedProxyList(t *testing.T) {
	cfg := validConfig()
	assert.Empty(t, cfg.TrustedProxyList())

	cfg.TrustedProxies = " 10.0.0.1 ,,172.16.0.0/12,"
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.TrustedProxyList())
}

func TestString_HidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.BusinessName = "My Business"
	cfg.TelegramToken = "123:secret-token"
	cfg.RedisPassword = "hunter2"

	s := cfg.String()
	assert.Contains(t, s, "My Business")
	assert.Contains(t, s, "09:00 - 18:00")
	assert.Contains(t, s, "Telegram bot: enabled")
	assert.NotContains(t, s, "secret-token")
	assert.NotContains(t, s, "hunter2")
}
