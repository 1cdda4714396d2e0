// Package sqlite persists the session token in a local SQLite database
// through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to dsn and migrates the session table.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&SessionToken{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

// SessionToken is one row per token key.
type SessionToken struct {
	Key       string `gorm:"column:token_key;primaryKey;size:64"`
	Token     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TokenRepository implements ports.TokenRepository on a gorm handle.
type TokenRepository struct {
	db  *gorm.DB
	key string
}

func NewTokenRepository(db *gorm.DB, key string) (*TokenRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite token repository requires database handle")
	}
	return &TokenRepository{db: db, key: key}, nil
}

func (r *TokenRepository) Get(ctx context.Context) (string, error) {
	var row SessionToken
	err := r.db.WithContext(ctx).Where("token_key = ?", r.key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return row.Token, nil
}

// Set replaces any previous row for the key.
func (r *TokenRepository) Set(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_key = ?", r.key).Delete(&SessionToken{}).Error; err != nil {
			return fmt.Errorf("replace token: %w", err)
		}
		return tx.Create(&SessionToken{Key: r.key, Token: token}).Error
	})
}

func (r *TokenRepository) Clear(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("token_key = ?", r.key).Delete(&SessionToken{}).Error; err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *TokenRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
