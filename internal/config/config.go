package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const minSecretLength = 32

type Config struct {
	Env             string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":7000"`
	FrontendURL     string        `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	DatabaseURL         string        `env:"DATABASE_URL"`
	DatabaseMaxConns    int           `env:"DATABASE_MAX_CONNS" envDefault:"20"`
	DatabaseConnIdle    time.Duration `env:"DATABASE_CONN_MAX_IDLE" envDefault:"5m"`
	DatabaseAutoMigrate bool          `env:"DATABASE_AUTO_MIGRATE" envDefault:"false"`

	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`

	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"dashboard-auth"`
	JWTAudience   string        `env:"JWT_AUDIENCE" envDefault:"dashboard"`
	AccessSecret  string        `env:"ACCESS_SECRET"`
	RefreshSecret string        `env:"REFRESH_SECRET"`
	ResetSecret   string        `env:"RESET_SECRET"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"720h"`
	ResetTTL      time.Duration `env:"JWT_RESET_TTL" envDefault:"15m"`

	OTPTTL                  time.Duration `env:"OTP_TTL" envDefault:"5m"`
	OTPMaxAttempts          int64         `env:"OTP_MAX_ATTEMPTS" envDefault:"3"`
	ResetGrantTTL           time.Duration `env:"RESET_GRANT_TTL" envDefault:"15m"`
	ResetRevealUnknownEmail bool          `env:"RESET_REVEAL_UNKNOWN_EMAIL" envDefault:"false"`

	Argon2MemoryKB    uint32 `env:"ARGON2_MEMORY_KB" envDefault:"65536"`
	Argon2Time        uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Argon2Parallelism uint8  `env:"ARGON2_PARALLELISM" envDefault:"2"`
	HashConcurrency   int64  `env:"HASH_CONCURRENCY" envDefault:"4"`

	AuthGoogleEnabled  bool   `env:"AUTH_GOOGLE_ENABLED" envDefault:"false"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL" envDefault:"http://localhost:7000/api/v1/auth/google/callback"`

	SMTPHost        string        `env:"SMTP_HOST"`
	SMTPPort        int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername    string        `env:"SMTP_USERNAME"`
	SMTPPassword    string        `env:"SMTP_PASSWORD"`
	SMTPFrom        string        `env:"SMTP_FROM" envDefault:"no-reply@localhost"`
	MailSendTimeout time.Duration `env:"MAIL_SEND_TIMEOUT" envDefault:"20s"`

	SnowflakeNode        int64         `env:"SNOWFLAKE_NODE" envDefault:"1"`
	AuthRateLimitRPM     int           `env:"AUTH_RATE_LIMIT_RPM" envDefault:"60"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`

	LogLevel                  string        `env:"LOG_LEVEL" envDefault:"info"`
	OTELServiceName           string        `env:"OTEL_SERVICE_NAME" envDefault:"dashboard-auth"`
	OTELEnvironment           string        `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	OTELExporterOTLPEndpoint  string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELExporterOTLPInsecure  bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELMetricsEnabled        bool          `env:"OTEL_METRICS_ENABLED" envDefault:"false"`
	OTELTracingEnabled        bool          `env:"OTEL_TRACING_ENABLED" envDefault:"false"`
	OTELLogsEnabled           bool          `env:"OTEL_LOGS_ENABLED" envDefault:"false"`
	OTELMetricsExportInterval time.Duration `env:"OTEL_METRICS_EXPORT_INTERVAL" envDefault:"15s"`
	OTELTraceSamplingRatio    float64       `env:"OTEL_TRACE_SAMPLING_RATIO" envDefault:"1.0"`
}

// Load reads optional dotenv files (missing files are ignored, existing
// environment variables win) and parses the environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := load(envFiles)
	profile := "unknown"
	if cfg != nil {
		profile = cfg.Env
	}
	recordConfigValidationEvent(context.Background(), profile, err)
	return cfg, err
}

func load(envFiles []string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, atStage(stageEnvFile, fmt.Errorf("load env file %s: %w", file, err))
		}
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, atStage(stageParse, fmt.Errorf("parse environment: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return &cfg, atStage(stageValidate, fmt.Errorf("validate config: %w", err))
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	secrets := map[string]string{
		"ACCESS_SECRET":  c.AccessSecret,
		"REFRESH_SECRET": c.RefreshSecret,
		"RESET_SECRET":   c.ResetSecret,
	}
	for _, name := range []string{"ACCESS_SECRET", "REFRESH_SECRET", "RESET_SECRET"} {
		if len(secrets[name]) < minSecretLength {
			errs = append(errs, fmt.Errorf("%s must be at least %d bytes", name, minSecretLength))
		}
	}
	if c.AccessSecret != "" && (c.AccessSecret == c.RefreshSecret || c.AccessSecret == c.ResetSecret) ||
		c.RefreshSecret != "" && c.RefreshSecret == c.ResetSecret {
		errs = append(errs, errors.New("token signing secrets must differ between access, refresh and reset"))
	}
	for name, d := range map[string]time.Duration{
		"JWT_ACCESS_TTL":  c.AccessTTL,
		"JWT_REFRESH_TTL": c.RefreshTTL,
		"JWT_RESET_TTL":   c.ResetTTL,
		"OTP_TTL":         c.OTPTTL,
		"RESET_GRANT_TTL": c.ResetGrantTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.OTPMaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Argon2MemoryKB == 0 || c.Argon2Time == 0 || c.Argon2Parallelism == 0 {
		errs = append(errs, errors.New("ARGON2_* parameters must be positive"))
	}
	if c.HashConcurrency < 1 {
		errs = append(errs, errors.New("HASH_CONCURRENCY must be at least 1"))
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		errs = append(errs, errors.New("SNOWFLAKE_NODE must be within 0..1023"))
	}
	if c.AuthGoogleEnabled && (c.GoogleClientID == "" || c.GoogleClientSecret == "" || c.GoogleCallbackURL == "") {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_CALLBACK_URL are required when AUTH_GOOGLE_ENABLED"))
	}
	if strings.TrimSpace(c.FrontendURL) == "" {
		errs = append(errs, errors.New("FRONTEND_URL is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}
