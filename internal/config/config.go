package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	Payment   PaymentConfig   `koanf:"payment"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Janitor   JanitorConfig   `koanf:"janitor"`
	Admin     AdminConfig     `koanf:"admin"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	// PublicURL is the storefront origin used for checkout return URLs.
	PublicURL string `koanf:"public_url"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// RedisConfig is optional; without a URL rate limiting stays in-process.
type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Audience  string `koanf:"audience"`
}

type PaymentConfig struct {
	Provider            string `koanf:"provider"` // stripe or mock
	StripeSecretKey     string `koanf:"stripe_secret_key"`
	StripeWebhookSecret string `koanf:"stripe_webhook_secret"`
	MockSecret          string `koanf:"mock_secret"`
	// MockBaseURL is where this server is reachable from the browser; mock
	// checkout sessions redirect to its /dev/pay page.
	MockBaseURL         string `koanf:"mock_base_url"`
	WebhookMaxBytes     int64  `koanf:"webhook_max_bytes"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type RateLimitConfig struct {
	Requests       int           `koanf:"requests"`
	Window         time.Duration `koanf:"window"`
	Burst          int           `koanf:"burst"`
	StrictRequests int           `koanf:"strict_requests"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// JanitorConfig controls the sweep that fails orders never linked to a checkout session.
type JanitorConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Schedule     string        `koanf:"schedule"`
	AbandonAfter time.Duration `koanf:"abandon_after"`
}

type AdminConfig struct {
	Emails []string `koanf:"emails"`
}

// Load reads defaults, then the optional YAML file at configPath, then environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKeyValue), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "chavepix-backend",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             4001,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",

		"database.max_conns":          10,
		"database.min_conns":          2,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 2,

		"auth.audience": "authenticated",

		"payment.provider":          "stripe",
		"payment.webhook_max_bytes": 65536,

		"cors.allowed_origins":   []string{"http://localhost:3000", "http://localhost:5173"},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"rate_limit.requests":        1200,
		"rate_limit.window":          "1m",
		"rate_limit.burst":           40,
		"rate_limit.strict_requests": 30,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "chavepix-backend",

		"janitor.enabled":       false,
		"janitor.schedule":      "@every 10m",
		"janitor.abandon_after": "1h",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

var envKeyMap = map[string]string{
	"ENVIRONMENT":                 "app.environment",
	"PUBLIC_URL":                  "app.public_url",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"DATABASE_URL":                "database.url",
	"DATABASE_MAX_CONNS":          "database.max_conns",
	"REDIS_URL":                   "redis.url",
	"AUTH_JWT_SECRET":             "auth.jwt_secret",
	"SUPABASE_JWT_SECRET":         "auth.jwt_secret",
	"AUTH_AUDIENCE":               "auth.audience",
	"PAYMENT_PROVIDER":            "payment.provider",
	"STRIPE_SECRET_KEY":           "payment.stripe_secret_key",
	"STRIPE_WEBHOOK_SECRET":       "payment.stripe_webhook_secret",
	"MOCK_PAYMENT_SECRET":         "payment.mock_secret",
	"MOCK_PAYMENT_BASE_URL":       "payment.mock_base_url",
	"CORS_ORIGINS":                "cors.allowed_origins",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"JANITOR_ENABLED":             "janitor.enabled",
	"JANITOR_SCHEDULE":            "janitor.schedule",
	"JANITOR_ABANDON_AFTER":       "janitor.abandon_after",
	"ADMIN_EMAILS":                "admin.emails",
}

// listKeys are comma separated when read from the environment.
var listKeys = map[string]bool{
	"cors.allowed_origins": true,
	"admin.emails":         true,
}

func envKeyValue(key, value string) (string, any) {
	mapped, ok := envKeyMap[key]
	if !ok {
		return "", nil
	}
	if listKeys[mapped] {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return mapped, out
	}
	return mapped, value
}

func (c *Config) normalize() {
	c.App.PublicURL = strings.TrimRight(strings.TrimSpace(c.App.PublicURL), "/")
	c.Payment.Provider = strings.ToLower(strings.TrimSpace(c.Payment.Provider))
	for i := range c.CORS.AllowedOrigins {
		c.CORS.AllowedOrigins[i] = strings.TrimSpace(c.CORS.AllowedOrigins[i])
	}
	for i := range c.Admin.Emails {
		c.Admin.Emails[i] = strings.ToLower(strings.TrimSpace(c.Admin.Emails[i]))
	}
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}

	switch c.Payment.Provider {
	case "stripe":
		if c.Payment.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required")
		}
		if c.Payment.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
		}
	case "mock":
		if c.IsProduction() {
			return fmt.Errorf("mock payment provider cannot be used in production")
		}
		if c.Payment.MockSecret == "" {
			return fmt.Errorf("MOCK_PAYMENT_SECRET is required for the mock provider")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", c.Payment.Provider)
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS wildcard '*' cannot be used with AllowCredentials")
			}
		}
	}

	if c.Janitor.Enabled && c.Janitor.AbandonAfter <= 0 {
		return fmt.Errorf("janitor.abandon_after must be positive")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsAdmin reports whether email belongs to a configured operator.
func (a AdminConfig) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, e := range a.Emails {
		if e == email {
			return true
		}
	}
	return false
}

// ConfigPath returns the YAML path from CONFIG_PATH, defaulting to config.yaml.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
