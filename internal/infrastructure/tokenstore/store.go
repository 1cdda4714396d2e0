// Package tokenstore selects where the session token lives.
package tokenstore

import (
	"context"
	"fmt"

	"github.com/optiflow/optiflow/internal/core/ports"
	mongodb "github.com/optiflow/optiflow/internal/infrastructure/db/mongo"
	redisdb "github.com/optiflow/optiflow/internal/infrastructure/db/redis"
	"github.com/optiflow/optiflow/internal/infrastructure/db/sqlite"
)

// Driver identifiers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Store is a token repository that owns a connection.
type Store interface {
	ports.TokenRepository
	Close() error
}

// Config describes the driver selection.
type Config struct {
	Driver    string
	Key       string
	File      string
	Redis     redisdb.Config
	Mongo     mongodb.Config
	SQLiteDSN string
}

// Open builds the store for cfg.Driver, connecting to it when it is remote.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFile
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		if cfg.File == "" {
			return nil, fmt.Errorf("file driver requires a path")
		}
		return NewFile(cfg.File, cfg.Key), nil
	case DriverRedis:
		repo, err := redisdb.Open(ctx, cfg.Redis, cfg.Key)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case DriverMongo:
		repo, err := mongodb.Open(ctx, cfg.Mongo, cfg.Key)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case DriverSQLite:
		db, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		return sqlite.NewTokenRepository(db, cfg.Key)
	default:
		return nil, fmt.Errorf("unsupported token store driver: %s", driver)
	}
}
