package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	APIURL         string        `env:"OPTIFLOW_API_URL,          default=http://localhost:8000"`
	HTTPTimeout    time.Duration `env:"OPTIFLOW_HTTP_TIMEOUT,     default=10s"`
	AdminUsers     string        `env:"OPTIFLOW_ADMIN_USERS"`
	RevokeOnLogout bool          `env:"OPTIFLOW_REVOKE_ON_LOGOUT, default=false"`
	MetricsFile    string        `env:"OPTIFLOW_METRICS_FILE"`
	LogLevel       string        `env:"LOG_LEVEL,                 default=warn"`
	LogPretty      bool          `env:"LOG_PRETTY,                default=true"`

	Token TokenConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type TokenConfig struct {
	Store     string `env:"OPTIFLOW_TOKEN_STORE, default=file"`
	Key       string `env:"OPTIFLOW_TOKEN_KEY,   default=of_token"`
	File      string `env:"OPTIFLOW_TOKEN_FILE"`
	SQLiteDSN string `env:"SQLITE_DSN,           default=optiflow.db"`

	// Timeout bounds connecting to and each call on the redis and mongo stores.
	Timeout time.Duration `env:"OPTIFLOW_TOKEN_STORE_TIMEOUT, default=5s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=optiflow"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

var tokenStores = map[string]bool{
	"file": true, "memory": true, "redis": true, "mongo": true, "sqlite": true,
}

// Load reads an optional .env file from the working directory and then the
// process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith resolves the configuration from l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if !tokenStores[cfg.Token.Store] {
		return nil, fmt.Errorf("config: unknown token store %q", cfg.Token.Store)
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("config: OPTIFLOW_HTTP_TIMEOUT must be positive")
	}
	if cfg.Token.Timeout <= 0 {
		return nil, fmt.Errorf("config: OPTIFLOW_TOKEN_STORE_TIMEOUT must be positive")
	}
	if cfg.Token.File == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: locate home directory: %w", err)
		}
		cfg.Token.File = filepath.Join(home, ".optiflow", "session.json")
	}
	return &cfg, nil
}
