package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server captures process level configuration.
type Server struct {
	Addr           string        `env:"RAILALERT_ADDR" envDefault:":8080"`
	AdminKey       string        `env:"ADMIN_KEY"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"json"`

	Postgres PostgresConfig
	Redis    RedisConfig
	Twilio   TwilioConfig
	Alerts   AlertsConfig
	Breaker  BreakerConfig
}

// PostgresConfig is optional; an empty URL selects the in-memory store.
type PostgresConfig struct {
	URL            string        `env:"DATABASE_URL"`
	MaxConns       int32         `env:"PG_MAX_CONNS" envDefault:"10"`
	MinConns       int32         `env:"PG_MIN_CONNS" envDefault:"2"`
	ConnectTimeout time.Duration `env:"PG_CONNECT_TIMEOUT" envDefault:"10s"`
	MigrateOnStart bool          `env:"PG_MIGRATE_ON_START" envDefault:"true"`
}

// RedisConfig is optional; an empty URL selects the in-memory cache.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	KeyPrefix    string        `env:"REDIS_KEY_PREFIX" envDefault:"railalert:subs"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// TwilioConfig holds delivery gateway credentials. Without an account SID
// messages are only logged.
type TwilioConfig struct {
	AccountSID string        `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string        `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string        `env:"TWILIO_FROM_NUMBER"`
	BaseURL    string        `env:"TWILIO_BASE_URL" envDefault:"https://api.twilio.com"`
	Timeout    time.Duration `env:"TWILIO_TIMEOUT" envDefault:"15s"`
}

// Enabled reports whether real delivery is configured.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

// AlertsConfig tunes the broadcast engine.
type AlertsConfig struct {
	TestRecipient       string `env:"OPERATOR_TEST_RECIPIENT"`
	AuditCapacity       int    `env:"AUDIT_CAPACITY" envDefault:"200"`
	DispatchConcurrency int    `env:"DISPATCH_CONCURRENCY" envDefault:"1"`
}

// BreakerConfig tunes the circuit breaker in front of subscription store reads.
type BreakerConfig struct {
	FailureThreshold int           `env:"STORE_BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	SuccessThreshold int           `env:"STORE_BREAKER_SUCCESS_THRESHOLD" envDefault:"2"`
	Cooldown         time.Duration `env:"STORE_BREAKER_COOLDOWN" envDefault:"10s"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Server, error) {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Server]()
	if err != nil {
		return Server{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// FromEnv builds a Server config from environment variables so main stays lean.
// It panics on malformed values.
func FromEnv() Server {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks cross-field constraints the tags cannot express.
func (s Server) Validate() error {
	if s.Alerts.AuditCapacity <= 0 {
		return fmt.Errorf("AUDIT_CAPACITY must be positive, got %d", s.Alerts.AuditCapacity)
	}
	if s.Alerts.DispatchConcurrency <= 0 {
		return fmt.Errorf("DISPATCH_CONCURRENCY must be positive, got %d", s.Alerts.DispatchConcurrency)
	}
	if s.Twilio.AccountSID != "" && !s.Twilio.Enabled() {
		return fmt.Errorf("TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required when TWILIO_ACCOUNT_SID is set")
	}
	return nil
}

// Warnings lists settings that leave part of the service inert. None of them
// stops startup.
func (s Server) Warnings() []string {
	var out []string
	if s.AdminKey == "" {
		out = append(out, "ADMIN_KEY not set, admin API will reject every request")
	}
	if s.Alerts.TestRecipient == "" {
		out = append(out, "OPERATOR_TEST_RECIPIENT not set, test-mode alerts will be rejected with no_recipients")
	}
	return out
}
