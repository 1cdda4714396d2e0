package mongo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// memCollection keeps session documents by _id and records what the
// repository asked for.
type memCollection struct {
	mu      sync.Mutex
	docs    map[string]sessionDoc
	upserts int
	err     error
}

func newMemCollection() *memCollection {
	return &memCollection{docs: map[string]sessionDoc{}}
}

func idOf(t *testing.T, filter interface{}) string {
	t.Helper()
	m, ok := filter.(bson.M)
	if !ok || len(m) != 1 {
		t.Fatalf("unexpected filter %#v", filter)
	}
	id, _ := m["_id"].(string)
	return id
}

type fakeCollection struct {
	t *testing.T
	*memCollection
}

func (c fakeCollection) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, c.err, nil)
	}
	doc, ok := c.docs[idOf(c.t, filter)]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func (c fakeCollection) ReplaceOne(_ context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if len(opts) != 1 || opts[0].Upsert == nil || !*opts[0].Upsert {
		c.t.Fatalf("Set must upsert")
	}
	doc, ok := replacement.(sessionDoc)
	if !ok {
		c.t.Fatalf("unexpected replacement %#v", replacement)
	}
	if id := idOf(c.t, filter); doc.Key != id {
		c.t.Fatalf("document _id %q does not match filter %q", doc.Key, id)
	}
	c.docs[doc.Key] = doc
	c.upserts++
	return &mongo.UpdateResult{UpsertedCount: 1}, nil
}

func (c fakeCollection) DeleteOne(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	id := idOf(c.t, filter)
	if _, ok := c.docs[id]; !ok {
		return &mongo.DeleteResult{}, nil
	}
	delete(c.docs, id)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func newTestRepository(t *testing.T, key string) (*TokenRepository, *memCollection) {
	t.Helper()
	mem := newMemCollection()
	repo := newTokenRepository(fakeCollection{t: t, memCollection: mem}, key, time.Second)
	repo.now = func() time.Time { return time.Unix(1717200000, 0) }
	return repo, mem
}

func TestTokenRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, mem := newTestRepository(t, "of_token")

	if got, err := repo.Get(ctx); err != nil || got != "" {
		t.Fatalf("expected empty token, got %q err=%v", got, err)
	}
	if err := repo.Set(ctx, "first"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "second"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, err := repo.Get(ctx); err != nil || got != "second" {
		t.Fatalf("expected second, got %q err=%v", got, err)
	}

	doc := mem.docs["of_token"]
	if len(mem.docs) != 1 || doc.Token != "second" || doc.UpdatedAt != 1717200000 {
		t.Fatalf("unexpected stored documents %+v", mem.docs)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if got, _ := repo.Get(ctx); got != "" {
		t.Fatalf("expected cleared token, got %q", got)
	}
}

func TestTokenRepositoryKeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	mem := newMemCollection()
	a := newTokenRepository(fakeCollection{t: t, memCollection: mem}, "work", time.Second)
	b := newTokenRepository(fakeCollection{t: t, memCollection: mem}, "home", time.Second)

	if err := a.Set(ctx, "tok-work"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := b.Get(ctx); got != "" {
		t.Fatalf("key home must not see work's token, got %q", got)
	}
	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := a.Get(ctx); got != "tok-work" {
		t.Fatalf("clearing home removed work's token")
	}
}

func TestTokenRepositoryWrapsDriverErrors(t *testing.T) {
	ctx := context.Background()
	repo, mem := newTestRepository(t, "of_token")
	boom := errors.New("server selection timeout")
	mem.err = boom

	if _, err := repo.Get(ctx); !errors.Is(err, boom) {
		t.Fatalf("Get: expected wrapped driver error, got %v", err)
	}
	if err := repo.Set(ctx, "x"); !errors.Is(err, boom) {
		t.Fatalf("Set: expected wrapped driver error, got %v", err)
	}
	if err := repo.Clear(ctx); !errors.Is(err, boom) {
		t.Fatalf("Clear: expected wrapped driver error, got %v", err)
	}
}

func TestTokenRepositoryUnconnected(t *testing.T) {
	repo, _ := newTestRepository(t, "of_token")
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error without a client")
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenRequiresDatabase(t *testing.T) {
	if _, err := Open(context.Background(), Config{URI: "mongodb://127.0.0.1:1"}, "of_token"); err == nil {
		t.Fatalf("expected error without a database name")
	}
}
