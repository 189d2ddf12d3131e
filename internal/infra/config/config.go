package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	OTP       OTPSettings       `mapstructure:"otp"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Retention RetentionSettings `mapstructure:"retention"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	DB             int    `mapstructure:"db"`
	Password       string `mapstructure:"password"`
	TLSEnabled     bool   `mapstructure:"tls_enabled"`
	DenylistPrefix string `mapstructure:"denylist_prefix"`
}

// KafkaSettings configures the Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// JWTSettings configures credential issuing
type JWTSettings struct {
	Secret          string        `mapstructure:"secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// OTPSettings configures the challenge engine
type OTPSettings struct {
	CodeTTL          time.Duration `mapstructure:"code_ttl"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	ResendCooldown   time.Duration `mapstructure:"resend_cooldown"`
	DispatchAttempts int           `mapstructure:"dispatch_attempts"`
	DispatchBackoff  time.Duration `mapstructure:"dispatch_backoff"`
	DispatchWorkers  int           `mapstructure:"dispatch_workers"`
}

// RateLimitSettings configures sliding-window limits per endpoint
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	RequestOTPMaxAttempts    int           `mapstructure:"request_otp_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
}

// RetentionSettings configures the out-of-band sweeps
type RetentionSettings struct {
	ChallengeWindow time.Duration `mapstructure:"challenge_window"`
	SessionWindow   time.Duration `mapstructure:"session_window"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	Enabled      bool    `mapstructure:"enabled"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("DRIVER")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.denylist_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.secret",
		"jwt.access_token_ttl",
		"jwt.refresh_token_ttl",
		"otp.code_ttl",
		"otp.max_attempts",
		"otp.resend_cooldown",
		"otp.dispatch_attempts",
		"otp.dispatch_backoff",
		"otp.dispatch_workers",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.request_otp_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"retention.challenge_window",
		"retention.session_window",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"telemetry.enabled",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "driver-app-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "driver")
	v.SetDefault("postgres.password", "driver_password")
	v.SetDefault("postgres.database", "driver")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.denylist_prefix", "driver:token-denylist")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "driver")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_ttl", "168h")
	v.SetDefault("jwt.refresh_token_ttl", "720h")

	v.SetDefault("otp.code_ttl", "10m")
	v.SetDefault("otp.max_attempts", 3)
	v.SetDefault("otp.resend_cooldown", "60s")
	v.SetDefault("otp.dispatch_attempts", 3)
	v.SetDefault("otp.dispatch_backoff", "1s")
	v.SetDefault("otp.dispatch_workers", 4)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.request_otp_max_attempts", 5)
	v.SetDefault("rate_limit.password_reset_max_attempts", 3)

	v.SetDefault("retention.challenge_window", "720h")
	v.SetDefault("retention.session_window", "720h")

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "driver-app-backend")
	v.SetDefault("telemetry.sampling_rate", 1.0)
	v.SetDefault("telemetry.enabled", false)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "DRIVER_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
