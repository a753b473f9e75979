package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	Currency            string `env:"LEDGER_CURRENCY" envDefault:"BRL"`
	DefaultCreditLimit  string `env:"DEFAULT_CREDIT_LIMIT" envDefault:"0"`
	StatementWindowDays int    `env:"STATEMENT_WINDOW_DAYS" envDefault:"30"`
	ReplayMaxRetries    uint64 `env:"REPLAY_MAX_RETRIES" envDefault:"5"`

	// StorageBackend memory keeps the ledger in process; it is lost on exit.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	MigrationsDir  string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	AutoMigrate    bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	LockBackend   string `env:"LOCK_BACKEND" envDefault:"memory"`
	LockExpiryS   int    `env:"LOCK_EXPIRY_S" envDefault:"10"`
	LockTries     int    `env:"LOCK_TRIES" envDefault:"64"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	EventSink    string `env:"EVENT_SINK" envDefault:"log"`
	EventChannel string `env:"EVENT_CHANNEL" envDefault:"ledger.events"`
	EventBuffer  int    `env:"EVENT_BUFFER" envDefault:"1024"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
	DBConnectTimeoutS  int `env:"DB_CONNECT_TIMEOUT_S" envDefault:"30"`
}

// Load reads an optional .env file, then the environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) StatementWindow() time.Duration {
	return time.Duration(c.StatementWindowDays) * 24 * time.Hour
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage backend")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be postgres or memory, got %q", c.StorageBackend)
	}
	switch c.LockBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("LOCK_BACKEND must be memory or redis, got %q", c.LockBackend)
	}
	switch c.EventSink {
	case "log", "redis":
	default:
		return fmt.Errorf("EVENT_SINK must be log or redis, got %q", c.EventSink)
	}
	if c.StatementWindowDays <= 0 {
		return fmt.Errorf("STATEMENT_WINDOW_DAYS must be positive")
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("EVENT_BUFFER must be positive")
	}
	return nil
}

func (c *Config) UsesRedis() bool {
	return c.LockBackend == "redis" || c.EventSink == "redis"
}
