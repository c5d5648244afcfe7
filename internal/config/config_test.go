package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DBDriver != DriverSQLite || cfg.DSN() != "condo.db" {
		t.Fatalf("storage defaults unexpected: driver=%q dsn=%q", cfg.DBDriver, cfg.DSN())
	}
	if cfg.RedisURL != "" || cfg.BuildingCacheTTL != 5*time.Minute {
		t.Fatalf("cache defaults unexpected: %q %v", cfg.RedisURL, cfg.BuildingCacheTTL)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" || cfg.OpenAI.MaxTokens != 500 || cfg.OpenAI.Temperature != 0.2 {
		t.Fatalf("openai defaults unexpected: %+v", cfg.OpenAI)
	}
	if cfg.Twilio.VerifySignature {
		t.Fatalf("signature verification must be off without an auth token")
	}
	if cfg.Intake.MaxTextRunes != 4000 || cfg.Intake.ClassifyTimeout != 15*time.Second || cfg.Intake.DispatchStepTimeout != 10*time.Second {
		t.Fatalf("intake defaults unexpected: %+v", cfg.Intake)
	}
	if cfg.OTEL.ServiceName != "condo-backend" {
		t.Fatalf("otel service name default unexpected: %q", cfg.OTEL.ServiceName)
	}
}

func TestLoad_Success_Overrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v1/")

	// Storage
	t.Setenv("DB_DRIVER", "PostgreSQL")
	t.Setenv("DATABASE_URL", "postgres://condo@db/condo")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("BUILDING_CACHE_TTL", "90s")

	// Providers
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_TEMPERATURE", "0")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("PUBLIC_URL", "https://condo.example.com/")
	t.Setenv("SNS_SMS_ENABLED", "true")
	t.Setenv("SES_FROM_EMAIL", "no-reply@condo.example.com")

	// Intake
	t.Setenv("MAX_TEXT_RUNES", "2000")
	t.Setenv("CLASSIFY_TIMEOUT", "bogus") // -> default 15s

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DBDriver != DriverPostgres || cfg.DSN() != "postgres://condo@db/condo" {
		t.Fatalf("storage unexpected: driver=%q dsn=%q", cfg.DBDriver, cfg.DSN())
	}
	if cfg.RedisURL != "redis://cache:6379/0" || cfg.BuildingCacheTTL != 90*time.Second {
		t.Fatalf("cache unexpected: %q %v", cfg.RedisURL, cfg.BuildingCacheTTL)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Temperature != 0 {
		t.Fatalf("openai unexpected: %+v", cfg.OpenAI)
	}
	if !cfg.Twilio.VerifySignature || cfg.Twilio.PublicURL != "https://condo.example.com" {
		t.Fatalf("twilio unexpected: %+v", cfg.Twilio)
	}
	if !cfg.AWS.SMSEnabled || cfg.AWS.SESFrom != "no-reply@condo.example.com" || cfg.AWS.Region != "us-east-1" {
		t.Fatalf("aws unexpected: %+v", cfg.AWS)
	}
	if cfg.Intake.MaxTextRunes != 2000 || cfg.Intake.ClassifyTimeout != 15*time.Second {
		t.Fatalf("intake unexpected: %+v", cfg.Intake)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "condo.yaml")
	body := "port: \"9090\"\nopenai_model: gpt-4o\nmax_text_runes: \"1200\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini") // env wins over file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "9090" || cfg.Intake.MaxTextRunes != 1200 {
		t.Fatalf("file values not applied: port=%q runes=%d", cfg.Port, cfg.Intake.MaxTextRunes)
	}
	if cfg.OpenAI.Model != "gpt-4.1-mini" {
		t.Fatalf("env should override file, got %q", cfg.OpenAI.Model)
	}
}

func TestLoad_ConfigFileMissing(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil || !containsErr(err, "CONFIG_FILE") {
		t.Fatalf("expected CONFIG_FILE error, got: %v", err)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes <= 0", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"cache ttl", map[string]string{"BUILDING_CACHE_TTL": "0s"}, "BUILDING_CACHE_TTL"},
		{"temperature", map[string]string{"OPENAI_TEMPERATURE": "2.5"}, "OPENAI_TEMPERATURE"},
		{"max tokens", map[string]string{"OPENAI_MAX_TOKENS": "0"}, "OPENAI_MAX_TOKENS"},
		{"verify without token", map[string]string{"TWILIO_VERIFY_SIGNATURE": "true"}, "TWILIO_AUTH_TOKEN"},
		{"max text runes", map[string]string{"MAX_TEXT_RUNES": "0"}, "MAX_TEXT_RUNES"},
		{"dispatch timeout", map[string]string{"DISPATCH_STEP_TIMEOUT": "-1s"}, "DISPATCH_STEP_TIMEOUT"},
		{"max body bytes", map[string]string{"MAX_BODY_BYTES": "0"}, "MAX_BODY_BYTES"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl non-positive", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"otel sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

// --- helpers ---

func TestEnv_Parsing(t *testing.T) {
	v := viper.New()
	v.AutomaticEnv()
	e := env{v: v}

	t.Setenv("X_EMPTY", "")
	if e.str("X_EMPTY", "d") != "d" {
		t.Fatalf("str should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if e.str("X_SET", "d") != "val" {
		t.Fatalf("str should read set value")
	}

	t.Setenv("F_VALID", "3.14")
	t.Setenv("F_BAD", "nope")
	if e.float("F_VALID", 0) != 3.14 || e.float("F_BAD", 1.23) != 1.23 {
		t.Fatalf("float parsing unexpected")
	}

	t.Setenv("I_VALID", "42")
	t.Setenv("I_BAD", "x")
	if e.int("I_VALID", 0) != 42 || e.int("I_BAD", 7) != 7 {
		t.Fatalf("int parsing unexpected")
	}

	t.Setenv("D_VALID", "150ms")
	t.Setenv("D_BAD", "zzz")
	if e.dur("D_VALID", time.Second) != 150*time.Millisecond || e.dur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("dur parsing unexpected")
	}
}

func TestEnv_Bool(t *testing.T) {
	v := viper.New()
	v.AutomaticEnv()
	e := env{v: v}

	for _, val := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		t.Setenv("B_FLAG", val)
		if !e.bool("B_FLAG", false) {
			t.Fatalf("bool(%q) = false; want true", val)
		}
	}
	for _, val := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		t.Setenv("B_FLAG", val)
		if e.bool("B_FLAG", true) {
			t.Fatalf("bool(%q) = true; want false", val)
		}
	}
	t.Setenv("B_FLAG", "maybe")
	if !e.bool("B_FLAG", true) || e.bool("B_FLAG", false) {
		t.Fatalf("bool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV mismatch: got %#v", got)
	}

	for in, want := range map[string]string{"": "/", "v1": "/v1", "/v1/": "/v1", " / ": "/"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
