package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendGoogle   = "google"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Environment string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	AppPort     string `mapstructure:"APP_PORT"`

	Backend                  string `mapstructure:"BACKEND"`
	GoogleServiceAccountFile string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleCalendarID         string `mapstructure:"GOOGLE_CALENDAR_ID"`

	BusinessName               string `mapstructure:"BUSINESS_NAME"`
	DefaultTimezone            string `mapstructure:"DEFAULT_TIMEZONE"`
	BusinessStartHour          int    `mapstructure:"BUSINESS_START_HOUR"`
	BusinessEndHour            int    `mapstructure:"BUSINESS_END_HOUR"`
	DefaultAppointmentDuration int    `mapstructure:"DEFAULT_APPOINTMENT_DURATION"` // минуты

	DBDSN         string `mapstructure:"DB_DSN"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	TelegramToken       string `mapstructure:"TELEGRAM_TOKEN"`
	TelegramAdminChatID int64  `mapstructure:"TELEGRAM_ADMIN_CHAT_ID"`

	HealthCheckSchedule string        `mapstructure:"HEALTH_CHECK_SCHEDULE"`
	RateLimitPerMin     int           `mapstructure:"RATE_LIMIT_PER_MIN"`
	TrustedProxies      string        `mapstructure:"TRUSTED_PROXIES"` // через запятую
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var defaults = map[string]any{
	"ENV":                          "development",
	"LOG_LEVEL":                    "info",
	"APP_PORT":                     "8000",
	"BACKEND":                      BackendGoogle,
	"GOOGLE_SERVICE_ACCOUNT_FILE":  "credentials.json",
	"GOOGLE_CALENDAR_ID":           "primary",
	"BUSINESS_NAME":                "My Business",
	"DEFAULT_TIMEZONE":             "America/Mexico_City",
	"BUSINESS_START_HOUR":          9,
	"BUSINESS_END_HOUR":            18,
	"DEFAULT_APPOINTMENT_DURATION": 60,
	"DB_DSN":                       "",
	"MIGRATIONS_DIR":               "migrations",
	"PUBLIC_BASE_URL":              "http://127.0.0.1:8000",
	"REDIS_ADDR":                   "",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"CACHE_TTL":                    "30s",
	"TELEGRAM_TOKEN":               "",
	"TELEGRAM_ADMIN_CHAT_ID":       0,
	"HEALTH_CHECK_SCHEDULE":        "@every 1m",
	"RATE_LIMIT_PER_MIN":           120,
	"TRUSTED_PROXIES":              "",
	"REQUEST_TIMEOUT":              "15s",
}

// Load читает .env (если есть), config.yaml (если есть) и переменные окружения.
// Переменные окружения имеют приоритет над файлами
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGoogle:
		if _, err := os.Stat(c.GoogleServiceAccountFile); err != nil {
			return fmt.Errorf("service account file %q not found: %w", c.GoogleServiceAccountFile, err)
		}
		if c.GoogleCalendarID == "" {
			return errors.New("GOOGLE_CALENDAR_ID is required")
		}
	case BackendPostgres:
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required for postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown BACKEND %q", c.Backend)
	}

	if c.BusinessStartHour < 0 || c.BusinessStartHour > 23 {
		return fmt.Errorf("BUSINESS_START_HOUR must be within 0..23, got %d", c.BusinessStartHour)
	}
	if c.BusinessEndHour < 1 || c.BusinessEndHour > 24 {
		return fmt.Errorf("BUSINESS_END_HOUR must be within 1..24, got %d", c.BusinessEndHour)
	}
	if c.BusinessStartHour >= c.BusinessEndHour {
		return fmt.Errorf("BUSINESS_START_HOUR (%d) must be before BUSINESS_END_HOUR (%d)", c.BusinessStartHour, c.BusinessEndHour)
	}
	if c.DefaultAppointmentDuration <= 0 {
		return fmt.Errorf("DEFAULT_APPOINTMENT_DURATION must be positive, got %d", c.DefaultAppointmentDuration)
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}
	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must not be negative, got %d", c.RateLimitPerMin)
	}
	for _, proxy := range c.TrustedProxyList() {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", proxy)
		}
	}

	return nil
}

// Location - таймзона бизнеса. Валидность проверена в Validate
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TrustedProxyList - TRUSTED_PROXIES списком, без пустых элементов
func (c *Config) TrustedProxyList() []string {
	var proxies []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	return proxies
}

// AppointmentDuration - длительность слота по умолчанию
func (c *Config) AppointmentDuration() time.Duration {
	return time.Duration(c.DefaultAppointmentDuration) * time.Minute
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// String - сводка настроек без секретов
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s\n", c.BusinessName)
	fmt.Fprintf(&b, "Environment: %s\n", c.Environment)
	fmt.Fprintf(&b, "Backend: %s\n", c.Backend)
	if c.Backend == BackendGoogle {
		fmt.Fprintf(&b, "Calendar ID: %s\n", c.GoogleCalendarID)
	}
	fmt.Fprintf(&b, "Timezone: %s\n", c.DefaultTimezone)
	fmt.Fprintf(&b, "Business hours: %02d:00 - %02d:00\n", c.BusinessStartHour, c.BusinessEndHour)
	fmt.Fprintf(&b, "Default duration: %d minutes\n", c.DefaultAppointmentDuration)
	fmt.Fprintf(&b, "Cache: %s\n", enabled(c.RedisAddr != ""))
	fmt.Fprintf(&b, "Telegram bot: %s", enabled(c.TelegramToken != ""))
	return b.String()
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
