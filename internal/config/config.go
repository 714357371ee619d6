// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups the service configuration. Values come from environment
// variables, optionally from a .env file in the working directory.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	DB        DBConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
	Lending   LendingConfig
	Integrity IntegrityConfig
}

type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

type HTTPConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	Driver string // postgres | memory
}

// DBConfig describes the Postgres connection. DatabaseURL wins when set.
type DBConfig struct {
	DatabaseURL  string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	Migrate      bool
}

// ConnectionString returns DATABASE_URL when defined, otherwise a DSN built from the parts.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type AuthConfig struct {
	LoginRatePerMinute int
	LoginBurst         int
	BootstrapUsername  string
	BootstrapEmail     string
	BootstrapPassword  string
}

type TelemetryConfig struct {
	OTLPEndpoint string // empty disables trace export
	ServiceName  string
}

type LendingConfig struct {
	LoanPeriodDays int
}

type IntegrityConfig struct {
	Schedule string // cron spec, empty disables the scheduled audit
}

// Load reads the configuration. Environment variables take precedence over the
// optional .env file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // missing file is fine

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		HTTP: HTTPConfig{
			Host:            v.GetString("HTTP_HOST"),
			Port:            v.GetInt("HTTP_PORT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		},
		DB: DBConfig{
			DatabaseURL:  v.GetString("DATABASE_URL"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			Migrate:      v.GetBool("DB_MIGRATE"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Issuer:     v.GetString("JWT_ISSUER"),
			Expiration: time.Duration(v.GetInt("JWT_EXPIRATION_MINUTES")) * time.Minute,
		},
		Auth: AuthConfig{
			LoginRatePerMinute: v.GetInt("LOGIN_RATE_PER_MINUTE"),
			LoginBurst:         v.GetInt("LOGIN_BURST"),
			BootstrapUsername:  v.GetString("BOOTSTRAP_ADMIN_USERNAME"),
			BootstrapEmail:     v.GetString("BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapPassword:  v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		},
		Lending: LendingConfig{
			LoanPeriodDays: v.GetInt("LOAN_PERIOD_DAYS"),
		},
		Integrity: IntegrityConfig{
			Schedule: v.GetString("INTEGRITY_SCHEDULE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "libranexus")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("STORAGE_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "libranexus")
	v.SetDefault("DB_PASSWORD", "dev_password_change_in_prod")
	v.SetDefault("DB_NAME", "libranexus")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("JWT_ISSUER", "libranexus")
	v.SetDefault("JWT_EXPIRATION_MINUTES", 60)
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 30)
	v.SetDefault("LOGIN_BURST", 5)
	v.SetDefault("OTEL_SERVICE_NAME", "libranexus")
	v.SetDefault("LOAN_PERIOD_DAYS", 14)
	v.SetDefault("INTEGRITY_SCHEDULE", "@every 1h")
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Lending.LoanPeriodDays <= 0 {
		return fmt.Errorf("config: LOAN_PERIOD_DAYS must be positive, got %d", c.Lending.LoanPeriodDays)
	}
	return nil
}
