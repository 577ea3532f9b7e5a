// Package config builds runtime configuration from environment variables so
// main stays lean. Every recognized option has a default suitable for local
// development; production deployments override via the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "gdpgate/pkg/platform/strings"
)

// Config is the full runtime configuration.
type Config struct {
	Addr        string
	Environment string

	// PostgresURL enables the Postgres-backed stores when set; empty keeps
	// the in-memory stores (dev/test).
	PostgresURL string
	// DatabaseMigrate applies the embedded schema on startup.
	DatabaseMigrate bool
	// RedisURL enables the Redis rate-limit bucket store when set.
	RedisURL string
	// KafkaBrokers enables the audit outbox relay when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	Auth      AuthConfig
	Override  OverrideConfig
	Degrade   DegradeConfig
	RateLimit RateLimitConfig
	Notify    NotifyConfig
}

// AuthConfig governs bearer token verification.
type AuthConfig struct {
	// JWTSecret signs and verifies actor tokens. Required outside
	// development.
	JWTSecret string
	Issuer    string
}

// OverrideConfig governs the override approval workflow.
type OverrideConfig struct {
	// ApproverRoles are the roles allowed to approve or reject.
	ApproverRoles []string
	// RequireJustification enforces MinJustificationLen on submission.
	RequireJustification bool
	MinJustificationLen  int
	// MaxOverrideAge expires pending requests; zero disables auto-expiry.
	MaxOverrideAge time.Duration
	// DualApprovalCriticalCodes lists violation codes requiring two distinct
	// approvals.
	DualApprovalCriticalCodes []string
	// EligibleCodes lists violation codes that may proceed via override at
	// all. Codes outside this set always yield an invalid verdict.
	EligibleCodes []string
	// SweepInterval is the cadence of the auto-expiry sweeper.
	SweepInterval time.Duration
}

// DegradeConfig governs the service degradation gate.
type DegradeConfig struct {
	ProbePeriod       time.Duration
	ProbeInitialDelay time.Duration
	// RetryAfter is the hint returned with SERVICE_DEGRADED responses.
	RetryAfter time.Duration
	// ERPHealthURL is probed for ERP availability; empty skips the probe and
	// reports the ERP healthy.
	ERPHealthURL string
}

// RateLimitConfig governs admission throttling.
type RateLimitConfig struct {
	Disabled          bool
	RequestsPerWindow int
	Window            time.Duration
}

// NotifyConfig governs override workflow notifications.
type NotifyConfig struct {
	OnApproval  bool
	OnRejection bool
	Recipients  []string
}

// FromEnv reads configuration from the environment, validating numeric and
// duration values. It fails fast on unparseable input rather than running
// with silently wrong limits.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:            getEnv("GDPGATE_ADDR", ":8080"),
		Environment:     getEnv("GDPGATE_ENV", "development"),
		PostgresURL:     getEnv("DATABASE_URL", ""),
		DatabaseMigrate: getEnvBool("DATABASE_MIGRATE", true),
		RedisURL:        getEnv("REDIS_URL", ""),
		KafkaTopic:      getEnv("KAFKA_AUDIT_TOPIC", "gdpgate.audit"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
	}

	cfg.Auth = AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", ""),
		Issuer:    getEnv("JWT_ISSUER", ""),
	}
	if cfg.Auth.JWTSecret == "" && cfg.Environment != "development" {
		return nil, fmt.Errorf("JWT_SECRET is required when GDPGATE_ENV=%s", cfg.Environment)
	}

	var err error
	cfg.Override, err = overrideFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Degrade, err = degradeFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.RateLimit, err = rateLimitFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Notify = NotifyConfig{
		OnApproval:  getEnvBool("NOTIFY_ON_APPROVAL", true),
		OnRejection: getEnvBool("NOTIFY_ON_REJECTION", true),
		Recipients:  platformstrings.DedupeAndTrim(splitList(getEnv("NOTIFY_RECIPIENTS", ""))),
	}
	return cfg, nil
}

func overrideFromEnv() (OverrideConfig, error) {
	cfg := OverrideConfig{
		ApproverRoles:             platformstrings.DedupeAndTrimLower(splitList(getEnv("OVERRIDE_APPROVER_ROLES", "compliance_manager,qa_manager"))),
		RequireJustification:      getEnvBool("OVERRIDE_REQUIRE_JUSTIFICATION", true),
		DualApprovalCriticalCodes: splitList(getEnv("OVERRIDE_CRITICAL_CODES", "THRESHOLD_EXCEEDED")),
		EligibleCodes:             splitList(getEnv("OVERRIDE_ELIGIBLE_CODES", "THRESHOLD_EXCEEDED")),
	}
	var err error
	if cfg.MinJustificationLen, err = getEnvInt("OVERRIDE_MIN_JUSTIFICATION_LEN", 20); err != nil {
		return cfg, err
	}
	maxAgeHours, err := getEnvInt("OVERRIDE_MAX_AGE_HOURS", 72)
	if err != nil {
		return cfg, err
	}
	cfg.MaxOverrideAge = time.Duration(maxAgeHours) * time.Hour
	if cfg.SweepInterval, err = getEnvDuration("OVERRIDE_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func degradeFromEnv() (DegradeConfig, error) {
	cfg := DegradeConfig{
		ERPHealthURL: getEnv("ERP_HEALTH_URL", ""),
	}
	var err error
	if cfg.ProbePeriod, err = getEnvDuration("HEALTH_PROBE_PERIOD", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.ProbeInitialDelay, err = getEnvDuration("HEALTH_PROBE_INITIAL_DELAY", 5*time.Second); err != nil {
		return cfg, err
	}
	retryAfter, err := getEnvInt("DEGRADED_RETRY_AFTER_SECONDS", 300)
	if err != nil {
		return cfg, err
	}
	cfg.RetryAfter = time.Duration(retryAfter) * time.Second
	return cfg, nil
}

func rateLimitFromEnv() (RateLimitConfig, error) {
	cfg := RateLimitConfig{
		Disabled: getEnvBool("RATE_LIMIT_DISABLED", false),
	}
	var err error
	if cfg.RequestsPerWindow, err = getEnvInt("RATE_LIMIT_REQUESTS", 100); err != nil {
		return cfg, err
	}
	if cfg.Window, err = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// IsDevelopment reports whether verbose error detail may be exposed.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return value == "true" || value == "1"
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
