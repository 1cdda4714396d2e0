// Package mongo keeps the session token in a MongoDB collection, one
// document per token key.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionSessions = "client_sessions"
	defaultTimeout     = 5 * time.Second
)

// Config selects the server and database holding the session document.
// Timeout bounds the initial connection and every later operation.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// sessionCollection is the part of *mongo.Collection the repository uses.
type sessionCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// TokenRepository stores the bearer token as a single document whose _id is
// the configured token key.
type TokenRepository struct {
	client  *mongo.Client
	col     sessionCollection
	key     string
	timeout time.Duration
	now     func() time.Time
}

type sessionDoc struct {
	Key       string `bson:"_id"`
	Token     string `bson:"token"`
	UpdatedAt int64  `bson:"updated_at"`
}

// Open connects to cfg.URI and returns the repository for key once the
// server answers a ping.
func Open(ctx context.Context, cfg Config, key string) (*TokenRepository, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo: database name is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI).SetTimeout(timeout)
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := newTokenRepository(client.Database(cfg.Database).Collection(collectionSessions), key, timeout)
	repo.client = client
	return repo, nil
}

func newTokenRepository(col sessionCollection, key string, timeout time.Duration) *TokenRepository {
	return &TokenRepository{col: col, key: key, timeout: timeout, now: time.Now}
}

func (r *TokenRepository) filter() bson.M {
	return bson.M{"_id": r.key}
}

func (r *TokenRepository) Get(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc sessionDoc
	err := r.col.FindOne(ctx, r.filter()).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find token: %w", err)
	}
	return doc.Token, nil
}

// Set upserts the session document.
func (r *TokenRepository) Set(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := sessionDoc{Key: r.key, Token: token, UpdatedAt: r.now().Unix()}
	if _, err := r.col.ReplaceOne(ctx, r.filter(), doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear is idempotent: deleting a missing document is not an error.
func (r *TokenRepository) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, r.filter()); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return errors.New("mongo: not connected")
	}
	return r.client.Ping(ctx, nil)
}

func (r *TokenRepository) Close() error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.Disconnect(ctx)
}
