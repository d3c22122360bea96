package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"squares/database"

	"github.com/xo/dburl"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers          string // NATS server addresses (comma-separated)
	OperatorAlertSubject string // Subject operator alerts are sent to

	// Discord operator alerts; disabled when either value is empty
	DiscordToken             string
	DiscordOperatorChannelID string

	// Ledger rules
	AutoApprovalThreshold   int64  // Purchases at or below this amount are credited immediately
	MinimumWithdrawal       int64  // Smallest accepted withdrawal request
	DailyWithdrawalLimit    int64  // Cap on pending+completed withdrawals per account per day
	WithdrawalLimitTimezone string // IANA zone whose midnight starts a withdrawal day

	// Assignment rules
	AssignmentLeadTime time.Duration // Numbers may be drawn this long before kickoff
	AssignmentSchedule string        // Cron spec (with seconds) for the due-game sweep

	// Prize pool accounting
	PlatformFeePercent int64

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// DiscordAlertsEnabled reports whether operator alerts also go to Discord
func (c *Config) DiscordAlertsEnabled() bool {
	return c.DiscordToken != "" && c.DiscordOperatorChannelID != ""
}

// WithdrawalLocation resolves the zone used for daily withdrawal windows.
// An unknown zone name falls back to UTC.
func (c *Config) WithdrawalLocation() *time.Location {
	if c.WithdrawalLimitTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.WithdrawalLimitTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// load loads configuration from environment variables. A variable that is
// set but cannot be parsed is an error, never a silent default.
func load() (*Config, error) {
	env := &envReader{}
	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		NATSServers:          getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),
		OperatorAlertSubject: getEnvWithDefault("OPERATOR_ALERT_SUBJECT", "squares.operator.alerts"),

		DiscordToken:             os.Getenv("DISCORD_TOKEN"),
		DiscordOperatorChannelID: os.Getenv("DISCORD_OPERATOR_CHANNEL_ID"),

		AutoApprovalThreshold:   env.integer("AUTO_APPROVAL_THRESHOLD", 100),
		MinimumWithdrawal:       env.integer("MINIMUM_WITHDRAWAL", 25),
		DailyWithdrawalLimit:    env.integer("DAILY_WITHDRAWAL_LIMIT", 500),
		WithdrawalLimitTimezone: getEnvWithDefault("WITHDRAWAL_LIMIT_TIMEZONE", "UTC"),

		AssignmentLeadTime: env.duration("ASSIGNMENT_LEAD_TIME", 10*time.Minute),
		AssignmentSchedule: getEnvWithDefault("ASSIGNMENT_SCHEDULE", "0 * * * * *"),

		PlatformFeePercent: env.integer("PLATFORM_FEE_PERCENT", 10),

		OTelEnabled:              env.flag("OTEL_ENABLED", false),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "squares"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: int(env.integer("OTEL_EXPORT_INTERVAL_MILLIS", 60000)),

		Environment: os.Getenv("ENVIRONMENT"),
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	if config.OTelExportIntervalMillis <= 0 {
		return nil, fmt.Errorf("OTEL_EXPORT_INTERVAL_MILLIS must be positive, got %d", config.OTelExportIntervalMillis)
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if err := validateDatabaseURL(config.DatabaseURL); err != nil {
			return nil, err
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the ledger and scheduling rules for internal consistency
func (c *Config) Validate() error {
	if c.AutoApprovalThreshold < 0 {
		return fmt.Errorf("AUTO_APPROVAL_THRESHOLD must not be negative, got %d", c.AutoApprovalThreshold)
	}
	if c.MinimumWithdrawal <= 0 {
		return fmt.Errorf("MINIMUM_WITHDRAWAL must be positive, got %d", c.MinimumWithdrawal)
	}
	if c.DailyWithdrawalLimit < c.MinimumWithdrawal {
		return fmt.Errorf("DAILY_WITHDRAWAL_LIMIT (%d) is below MINIMUM_WITHDRAWAL (%d)", c.DailyWithdrawalLimit, c.MinimumWithdrawal)
	}
	if c.PlatformFeePercent < 0 || c.PlatformFeePercent > 100 {
		return fmt.Errorf("PLATFORM_FEE_PERCENT must be within 0..100, got %d", c.PlatformFeePercent)
	}
	if c.AssignmentLeadTime < 0 {
		return fmt.Errorf("ASSIGNMENT_LEAD_TIME must not be negative, got %s", c.AssignmentLeadTime)
	}
	if _, err := time.LoadLocation(c.WithdrawalLimitTimezone); err != nil {
		return fmt.Errorf("invalid WITHDRAWAL_LIMIT_TIMEZONE %q: %w", c.WithdrawalLimitTimezone, err)
	}
	return nil
}

// validateDatabaseURL rejects URLs that do not point at a PostgreSQL server
func validateDatabaseURL(raw string) error {
	u, err := dburl.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if u.Driver != "postgres" && u.Driver != "pgx" {
		return fmt.Errorf("DATABASE_URL must use a postgres scheme, got driver %q", u.Driver)
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables, remembering every malformed one
type envReader struct {
	errs []error
}

func (r *envReader) integer(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s %q: must be a whole number", key, value))
		return defaultValue
	}
	return parsed
}

func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
		return defaultValue
	}
	return parsed
}

func (r *envReader) flag(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s %q: must be true or false", key, value))
		return defaultValue
	}
	return parsed
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:             "test",
		NATSServers:             "nats://localhost:4222",
		OperatorAlertSubject:    "squares.operator.alerts",
		AutoApprovalThreshold:   100,
		MinimumWithdrawal:       25,
		DailyWithdrawalLimit:    500,
		WithdrawalLimitTimezone: "UTC",
		AssignmentLeadTime:      10 * time.Minute,
		AssignmentSchedule:      "0 * * * * *",
		PlatformFeePercent:      10,
		OTelExporterType:        "none",
	}
}
