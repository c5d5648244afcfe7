// Package config provides application configuration loaded from environment
// variables (and, optionally, a YAML/JSON/TOML file named by CONFIG_FILE) with
// defaults and validation. It centralizes server, storage, provider and
// intake settings so the rest of the service receives a single value.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS  bool
	HSTSMaxAge  time.Duration
	ReviewToken string // REVIEW_TOKEN, bearer token for /ws/review; empty disables the feed
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	Environment string  // OTEL_DEPLOYMENT_ENVIRONMENT
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// OpenAIConfig configures the classification model.
type OpenAIConfig struct {
	APIKey      string  // OPENAI_API_KEY; empty disables the model and every message falls back to review
	BaseURL     string  // OPENAI_BASE_URL; empty means the public API
	Model       string  // OPENAI_MODEL
	Temperature float32 // OPENAI_TEMPERATURE in [0..2]
	MaxTokens   int     // OPENAI_MAX_TOKENS
}

// TwilioConfig configures the WhatsApp provider.
type TwilioConfig struct {
	AccountSID      string // TWILIO_ACCOUNT_SID
	AuthToken       string // TWILIO_AUTH_TOKEN
	Edge            string // TWILIO_EDGE, e.g. "sao-paulo"; empty uses the default edge
	WhatsAppFrom    string // TWILIO_WHATSAPP_FROM, used when a building has no number
	VerifySignature bool   // TWILIO_VERIFY_SIGNATURE
	PublicURL       string // PUBLIC_URL, the externally visible origin signed by the provider
}

// AWSConfig configures SES email and SNS SMS.
type AWSConfig struct {
	Region        string // AWS_REGION
	SESFrom       string // SES_FROM_EMAIL; empty disables email notices
	FallbackEmail string // NOTIFY_FALLBACK_EMAIL
	SMSEnabled    bool   // SNS_SMS_ENABLED
	SMSSenderID   string // SNS_SMS_SENDER_ID
}

// IntakeConfig bounds the intake pipeline.
type IntakeConfig struct {
	MaxTextRunes        int           // MAX_TEXT_RUNES
	ClassifyTimeout     time.Duration // CLASSIFY_TIMEOUT
	DispatchStepTimeout time.Duration // DISPATCH_STEP_TIMEOUT
	MaxBodyBytes        int64         // MAX_BODY_BYTES
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBDriver         string        // sqlite|postgres
	DBPath           string        // SQLite path
	DatabaseURL      string        // PostgreSQL DSN
	RedisURL         string        // empty disables the building cache
	BuildingCacheTTL time.Duration // how long a building config stays cached
	SeedPath         string        // optional YAML fixtures loaded at startup

	// Providers
	OpenAI OpenAIConfig
	Twilio TwilioConfig
	AWS    AWSConfig

	// Intake
	Intake IntakeConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from the environment (and CONFIG_FILE when set),
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read CONFIG_FILE: %w", err)
		}
	}
	e := env{v: v}

	token := e.str("TWILIO_AUTH_TOKEN", "")
	cfg := Config{
		// Server
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.bool("LOG_PRETTY", false),
		SwaggerEnabled: e.bool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api/v1")),

		// Storage
		DBDriver:         strings.ToLower(e.str("DB_DRIVER", DriverSQLite)),
		DBPath:           e.str("DB_PATH", "condo.db"),
		DatabaseURL:      e.str("DATABASE_URL", ""),
		RedisURL:         e.str("REDIS_URL", ""),
		BuildingCacheTTL: e.dur("BUILDING_CACHE_TTL", 5*time.Minute),
		SeedPath:         e.str("SEED_PATH", ""),

		OpenAI: OpenAIConfig{
			APIKey:      e.str("OPENAI_API_KEY", ""),
			BaseURL:     e.str("OPENAI_BASE_URL", ""),
			Model:       e.str("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: float32(e.float("OPENAI_TEMPERATURE", 0.2)),
			MaxTokens:   e.int("OPENAI_MAX_TOKENS", 500),
		},
		Twilio: TwilioConfig{
			AccountSID:      e.str("TWILIO_ACCOUNT_SID", ""),
			AuthToken:       token,
			Edge:            e.str("TWILIO_EDGE", ""),
			WhatsAppFrom:    e.str("TWILIO_WHATSAPP_FROM", ""),
			VerifySignature: e.bool("TWILIO_VERIFY_SIGNATURE", token != ""),
			PublicURL:       strings.TrimRight(e.str("PUBLIC_URL", ""), "/"),
		},
		AWS: AWSConfig{
			Region:        e.str("AWS_REGION", "us-east-1"),
			SESFrom:       e.str("SES_FROM_EMAIL", ""),
			FallbackEmail: e.str("NOTIFY_FALLBACK_EMAIL", ""),
			SMSEnabled:    e.bool("SNS_SMS_ENABLED", false),
			SMSSenderID:   e.str("SNS_SMS_SENDER_ID", ""),
		},

		Intake: IntakeConfig{
			MaxTextRunes:        e.int("MAX_TEXT_RUNES", 4000),
			ClassifyTimeout:     e.dur("CLASSIFY_TIMEOUT", 15*time.Second),
			DispatchStepTimeout: e.dur("DISPATCH_STEP_TIMEOUT", 10*time.Second),
			MaxBodyBytes:        int64(e.int("MAX_BODY_BYTES", 1<<20)),
		},

		// Rate limiting
		RateRPS:   e.float("RATE_RPS", 5.0),
		RateBurst: e.int("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS:  e.bool("ENABLE_HSTS", false),
			HSTSMaxAge:  e.dur("HSTS_MAX_AGE", 180*24*time.Hour),
			ReviewToken: e.str("REVIEW_TOKEN", ""),
		},

		// Idempotency
		IdempotencyTTL: e.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     e.bool("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "condo-backend"),
			Environment: e.str("OTEL_DEPLOYMENT_ENVIRONMENT", "development"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = DriverPostgres
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if cfg.BuildingCacheTTL <= 0 {
		return cfg, errors.New("BUILDING_CACHE_TTL must be > 0")
	}
	if cfg.OpenAI.Temperature < 0 || cfg.OpenAI.Temperature > 2 {
		return cfg, errors.New("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	if cfg.OpenAI.MaxTokens <= 0 {
		return cfg, errors.New("OPENAI_MAX_TOKENS must be > 0")
	}
	if cfg.Twilio.VerifySignature && cfg.Twilio.AuthToken == "" {
		return cfg, errors.New("TWILIO_VERIFY_SIGNATURE requires TWILIO_AUTH_TOKEN")
	}
	if cfg.Intake.MaxTextRunes <= 0 {
		return cfg, errors.New("MAX_TEXT_RUNES must be > 0")
	}
	if cfg.Intake.ClassifyTimeout <= 0 || cfg.Intake.DispatchStepTimeout <= 0 {
		return cfg, errors.New("CLASSIFY_TIMEOUT and DISPATCH_STEP_TIMEOUT must be > 0")
	}
	if cfg.Intake.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// DSN returns the data source for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == DriverPostgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

// ---- helpers ----

// env reads keys through viper so a value may come from the process
// environment or the config file. Unparsable values fall back to def.
type env struct{ v *viper.Viper }

func (e env) raw(k string) string { return strings.TrimSpace(e.v.GetString(k)) }

func (e env) str(k, def string) string {
	if s := e.v.GetString(k); s != "" {
		return s
	}
	return def
}

func (e env) float(k string, def float64) float64 {
	if f, err := strconv.ParseFloat(e.raw(k), 64); err == nil {
		return f
	}
	return def
}

func (e env) int(k string, def int) int {
	if i, err := strconv.Atoi(e.raw(k)); err == nil {
		return i
	}
	return def
}

func (e env) bool(k string, def bool) bool {
	switch strings.ToLower(e.raw(k)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func (e env) dur(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(e.raw(k)); err == nil {
		return d
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
