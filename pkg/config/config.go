package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig
	Parts         PartsConfig
	Validation    ValidationConfig
	Batch         BatchConfig
	Discovery     DiscoveryConfig
	Observability ObservabilityConfig
	Logging       LoggingConfig
	Report        ReportConfig
	Push          PushConfig
}

type DatabaseConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type PartsConfig struct {
	CSVPath string
}

type ValidationConfig struct {
	Mode           invoice.ValidationMode
	ThresholdValue decimal.Decimal
	PricePrecision int32
}

type BatchConfig struct {
	InputDir    string
	Workers     int
	FileTimeout time.Duration
	KeepRunning bool
}

type DiscoveryConfig struct {
	RetentionDays   int
	CleanupSchedule string
	Suggestions     bool
	SuggestionLimit int
	ExportName      string // Written next to the report
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ReportConfig struct {
	OutputPath string
}

type PushConfig struct {
	Endpoint string
	Tokens   []string

	ResendAPIKey string
	EmailFrom    string
	EmailTo      []string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment values win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DATABASE_ENABLED", false),
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "invoice_audit"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Parts: PartsConfig{
			CSVPath: getEnv("PARTS_CSV", ""),
		},
		Batch: BatchConfig{
			InputDir:    getEnv("INPUT_DIR", "./invoices"),
			Workers:     getEnvAsInt("BATCH_WORKERS", 0),
			FileTimeout: getEnvAsDuration("BATCH_FILE_TIMEOUT", 2*time.Minute),
			KeepRunning: getEnvAsBool("KEEP_RUNNING", false),
		},
		Discovery: DiscoveryConfig{
			RetentionDays:   getEnvAsInt("DISCOVERY_RETENTION_DAYS", 90),
			CleanupSchedule: getEnv("DISCOVERY_CLEANUP_SCHEDULE", "0 3 * * *"),
			Suggestions:     getEnvAsBool("DISCOVERY_SUGGESTIONS", true),
			SuggestionLimit: getEnvAsInt("DISCOVERY_SUGGESTION_LIMIT", 3),
			ExportName:      getEnv("DISCOVERY_EXPORT_NAME", "discovery_log.csv"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", false),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
		Report: ReportConfig{
			OutputPath: getEnv("REPORT_OUTPUT_PATH", "invoice_review.xlsx"),
		},
		Push: PushConfig{
			Endpoint: getEnv("PUSH_ENDPOINT", ""),
			Tokens:   getEnvAsList("PUSH_TOKENS"),

			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			EmailFrom:    getEnv("RESEND_FROM_EMAIL", ""),
			EmailTo:      getEnvAsList("ALERT_EMAILS"),
		},
	}

	mode, err := invoice.ParseValidationMode(getEnv("VALIDATION_MODE", string(invoice.ModePartsBased)))
	if err != nil {
		return nil, err
	}
	cfg.Validation.Mode = mode

	cfg.Validation.ThresholdValue = invoice.DefaultThreshold
	if raw := os.Getenv("THRESHOLD_VALUE"); raw != "" {
		threshold, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("THRESHOLD_VALUE: %w", err)
		}
		cfg.Validation.ThresholdValue = threshold
	}
	cfg.Validation.PricePrecision = int32(getEnvAsInt("PRICE_PRECISION", invoice.DefaultPricePrecision))

	if _, err := cfg.Validation.Configuration().Strategy(); err != nil {
		return nil, err
	}
	if cfg.Discovery.RetentionDays < 0 {
		return nil, fmt.Errorf("DISCOVERY_RETENTION_DAYS must not be negative, got %d", cfg.Discovery.RetentionDays)
	}

	return cfg, nil
}

// Configuration returns the validation settings for the engine.
func (c ValidationConfig) Configuration() invoice.ValidationConfiguration {
	cfg := invoice.ValidationConfiguration{
		Mode:           c.Mode,
		PricePrecision: c.PricePrecision,
	}
	if c.Mode == invoice.ModeThresholdBased {
		threshold := c.ThresholdValue
		cfg.ThresholdValue = &threshold
	}
	return cfg
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// SlogLevel maps Level onto a slog level, defaulting to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
