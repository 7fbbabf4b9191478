package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"playgate/cmd/internal/play/session"
)

// EnvPrefix namespaces every variable read by LoadConfig.
const EnvPrefix = "PLAYGATE_"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`

	// Store selects the session backend: memory, postgres or redis.
	Store string `env:"STORE" envDefault:"memory"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"0"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AwaitingTTL    time.Duration `env:"AWAITING_TTL" envDefault:"30s"`
	GameTTL        time.Duration `env:"GAME_TTL" envDefault:"1h"`
	StartWindow    time.Duration `env:"START_WINDOW" envDefault:"10m"`
	CompleteWindow time.Duration `env:"COMPLETE_WINDOW" envDefault:"1h"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	EntropyBytes int   `env:"ENTROPY_BYTES" envDefault:"32"`
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"262144"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	TrustProxy     bool    `env:"TRUST_PROXY" envDefault:"false"`

	// AuditEnabled writes protocol outcomes to Postgres when a database is configured.
	AuditEnabled bool `env:"AUDIT_ENABLED" envDefault:"true"`

	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	WSOriginRequired bool     `env:"WS_ORIGIN_REQUIRED" envDefault:"true"`
	WSAllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost,http://127.0.0.1"`
	WSDevInsecure    bool     `env:"WS_DEV_INSECURE" envDefault:"false"`
}

// LoadConfig loads Config from the process environment.
func LoadConfig() (Config, error) {
	return loadConfig(env.Options{Prefix: EnvPrefix})
}

// LoadConfigFrom loads Config from an explicit variable map (keys include the prefix).
func LoadConfigFrom(environ map[string]string) (Config, error) {
	return loadConfig(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func loadConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Policy returns the session windows.
func (c Config) Policy() session.Policy {
	return session.Policy{
		AwaitingTTL:    c.AwaitingTTL,
		GameTTL:        c.GameTTL,
		StartWindow:    c.StartWindow,
		CompleteWindow: c.CompleteWindow,
	}
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("config: PLAYGATE_STORE=postgres requires PLAYGATE_DATABASE_URL"))
		}
	case StoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("config: PLAYGATE_STORE=redis requires PLAYGATE_REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown PLAYGATE_STORE %q", c.Store))
	}

	if err := c.Policy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("config: PLAYGATE_SWEEP_INTERVAL must be > 0"))
	}
	if err := ValidateSecurityConfig(c); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
