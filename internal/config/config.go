package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth. JWT is optional: without a secret every request acts as DefaultUserID.
	JWTSecret        string
	OAuthStateSecret string

	// Google OAuth + Calendar
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	CalendarTimeZone   string
	SyncWindowDays     int

	// Google Sheets
	SheetsAPIKey string
	SheetsID     string
	SheetsRange  string

	// Credential storage
	TokenEncryptionKey string
	RedisAddr          string
	CredentialCacheTTL time.Duration

	// Logging
	LogFile          string
	LogMaxSizeMB     int
	LogMaxBackups    int
	LogMaxAgeDays    int
	LogRetentionDays int

	// Server
	Port        string
	CORSOrigins string
	SentryDSN   string
	AppEnv      string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBPath:     getEnv("DB_PATH", "ops.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "ops_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		OAuthStateSecret: getEnv("OAUTH_STATE_SECRET", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/calendar/callback"),
		CalendarTimeZone:   getEnv("GOOGLE_CALENDAR_TIMEZONE", "Europe/Paris"),
		SyncWindowDays:     parseInt(getEnv("SYNC_WINDOW_DAYS", "90"), 90),

		SheetsAPIKey: getEnv("GOOGLE_SHEETS_API_KEY", ""),
		SheetsID:     getEnv("GOOGLE_SHEETS_ID", ""),
		SheetsRange:  getEnv("GOOGLE_SHEETS_RANGE", "Stock!A:Z"),

		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		CredentialCacheTTL: parseDuration(getEnv("CREDENTIAL_CACHE_TTL", "5m")),

		LogFile:          getEnv("LOG_FILE", ""),
		LogMaxSizeMB:     parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		LogMaxBackups:    parseInt(getEnv("LOG_MAX_BACKUPS", "5"), 5),
		LogMaxAgeDays:    parseInt(getEnv("LOG_MAX_AGE_DAYS", "28"), 28),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
		AppEnv:      getEnv("APP_ENV", "development"),
	}
}

func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// GoogleOAuthConfigured reports whether both OAuth client credentials are set.
func (c *Config) GoogleOAuthConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
