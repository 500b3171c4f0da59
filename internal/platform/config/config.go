package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Addr                    string
	DatabaseURL             string
	StoreDriver             string
	JWTSecret               string
	DataEncryptionKey       string
	TokenTTL                time.Duration
	Environment             string
	LogLevel                string
	SeedAdminName           string
	SeedAdminEmail          string
	SeedAdminPassword       string
	RunMigrations           bool
	RunSeed                 bool
	MigrationsDir           string
	UploadsDir              string
	MaxUploadBytes          int64
	MaxBodyBytes            int64
	RateLimitPerMinute      int
	CORSAllowedOrigins      []string
	Timezone                string
	LeaveTypes              []string
	LeaveAdvanceNotice      time.Duration
	LeaveMaxConsecutiveDays int
	LeaveAnnualQuota        int
	ReportOnTimeCutoff      string
	ReportLateFineCutoff    string
	ReportHalfDayCutoff     string
	MetricsEnabled          bool
	MaintenanceInterval     time.Duration
	IdempotencyTTL          time.Duration
	AuditRetentionDays      int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv load failed", "err", err)
	}

	return Config{
		Addr:                    getEnv("APP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		StoreDriver:             strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		DataEncryptionKey:       getEnv("DATA_ENCRYPTION_KEY", ""),
		TokenTTL:                getEnvDuration("TOKEN_TTL", 24*time.Hour),
		Environment:             getEnv("APP_ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		SeedAdminName:           getEnv("SEED_ADMIN_NAME", "Super Admin"),
		SeedAdminEmail:          getEnv("SEED_ADMIN_EMAIL", "admin@system.com"),
		SeedAdminPassword:       getEnv("SEED_ADMIN_PASSWORD", ""),
		RunMigrations:           getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:                 getEnvBool("RUN_SEED", true),
		MigrationsDir:           getEnv("MIGRATIONS_DIR", "migrations"),
		UploadsDir:              getEnv("UPLOADS_DIR", "uploads"),
		MaxUploadBytes:          int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		MaxBodyBytes:            int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:      getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins:      getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Timezone:                getEnv("APP_TIMEZONE", "UTC"),
		LeaveTypes:              getEnvList("LEAVE_TYPES", []string{"AL", "SL", "CL", "UPL", "HML", "HEL"}),
		LeaveAdvanceNotice:      getEnvDuration("LEAVE_ADVANCE_NOTICE", 48*time.Hour),
		LeaveMaxConsecutiveDays: getEnvInt("LEAVE_MAX_CONSECUTIVE_DAYS", 2),
		LeaveAnnualQuota:        getEnvInt("LEAVE_ANNUAL_QUOTA", 6),
		ReportOnTimeCutoff:      getEnv("REPORT_ON_TIME_CUTOFF", "09:30"),
		ReportLateFineCutoff:    getEnv("REPORT_LATE_FINE_CUTOFF", "10:00"),
		ReportHalfDayCutoff:     getEnv("REPORT_HALF_DAY_CUTOFF", "12:30"),
		MetricsEnabled:          getEnvBool("METRICS_ENABLED", true),
		MaintenanceInterval:     getEnvDuration("MAINTENANCE_INTERVAL", time.Hour),
		IdempotencyTTL:          getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		AuditRetentionDays:      getEnvInt("AUDIT_RETENTION_DAYS", 0),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
		if c.Environment == "production" {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Environment == "production" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.Environment == "production" && c.DataEncryptionKey == "" {
		return fmt.Errorf("DATA_ENCRYPTION_KEY is required in production")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE is invalid: %w", err)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.LeaveAnnualQuota < 0 || c.LeaveMaxConsecutiveDays <= 0 {
		return fmt.Errorf("leave policy limits must be positive")
	}
	if c.AuditRetentionDays < 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must not be negative")
	}
	if len(c.LeaveTypes) == 0 {
		return fmt.Errorf("LEAVE_TYPES must not be empty")
	}
	return nil
}
