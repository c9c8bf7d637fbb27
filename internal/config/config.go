package config

import (
	"fmt"
	"strings"
	"time"

	"pharmacy_pos_backend/pkg/utils"

	"github.com/joho/godotenv"
)

// Usage limit policies.
const (
	LimitPolicyWarn  = "warn"
	LimitPolicyBlock = "block"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	ApplySchema  bool
	MaxOpenConns int
	MaxIdleConns int
}

// DSN renders a lib/pq key/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Config is the process configuration.
type Config struct {
	Port               string
	Database           DatabaseConfig
	JWTSecret          string
	JWTExpiration      time.Duration
	CORSAllowedOrigins []string
	LogLevel           string
	LogPretty          bool
	SweepSchedule      string
	LimitPolicy        string
	InvoicePrefix      string
	PlanCacheTTL       time.Duration
	PlanCacheSize      int
}

// Load reads a .env file if one exists, then the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port: utils.Getenv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:         utils.Getenv("DB_HOST", "localhost"),
			Port:         utils.Getenv("DB_PORT", "5432"),
			User:         utils.Getenv("DB_USER", "pharmacy_user"),
			Password:     utils.Getenv("DB_PASSWORD", "pharmacy_password"),
			Name:         utils.Getenv("DB_NAME", "pharmacy_pos_db"),
			SSLMode:      utils.Getenv("DB_SSLMODE", "disable"),
			ApplySchema:  utils.GetenvBool("DB_APPLY_SCHEMA", true),
			MaxOpenConns: utils.GetenvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: utils.GetenvInt("DB_MAX_IDLE_CONNS", 5),
		},
		JWTSecret:     utils.Getenv("JWT_SECRET", ""),
		JWTExpiration: utils.GetenvDuration("JWT_EXPIRATION", 72*time.Hour),
		LogLevel:      utils.Getenv("LOG_LEVEL", "info"),
		LogPretty:     utils.GetenvBool("LOG_PRETTY", true),
		SweepSchedule: utils.Getenv("SUBSCRIPTION_SWEEP_SCHEDULE", "@every 1h"),
		LimitPolicy:   strings.ToLower(utils.Getenv("USAGE_LIMIT_POLICY", LimitPolicyWarn)),
		InvoicePrefix: utils.Getenv("INVOICE_PREFIX", "INV"),
		PlanCacheTTL:  utils.GetenvDuration("PLAN_CACHE_TTL", 5*time.Minute),
		PlanCacheSize: utils.GetenvInt("PLAN_CACHE_SIZE", 64),
	}

	origins := utils.Getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	switch c.LimitPolicy {
	case LimitPolicyWarn, LimitPolicyBlock:
	default:
		return fmt.Errorf("USAGE_LIMIT_POLICY must be %q or %q, got %q", LimitPolicyWarn, LimitPolicyBlock, c.LimitPolicy)
	}
	return nil
}
