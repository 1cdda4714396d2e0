package ports

import "context"

// TokenRepository is the single durable slot holding the bearer token. An
// empty string from Get means no one is signed in.
type TokenRepository interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Pinger is implemented by repositories backed by a remote store.
type Pinger interface {
	Ping(ctx context.Context) error
}
