package cache

import (
	"context"
	"time"
)

// Store is the raw persistence behind the cache. Implementations keep whole
// serialized snapshots per namespace; there is no partial update primitive,
// every Save replaces the previous payload.
type Store interface {
	// Load returns the payload and fetch time for a namespace, ok=false when
	// the namespace has never been written (or was invalidated).
	Load(ctx context.Context, namespace string) (payload []byte, fetchedAt time.Time, ok bool, err error)
	Save(ctx context.Context, namespace string, payload []byte, fetchedAt, expiresAt time.Time) error
	Delete(ctx context.Context, namespace string) error
	// DeleteExpired removes namespaces whose expires_at has passed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Close() error
}

// StateStore persists small key/value app state (working identity, the
// navigation queue) next to the snapshots.
type StateStore interface {
	GetState(ctx context.Context, key string) ([]byte, bool, error)
	PutState(ctx context.Context, key string, value []byte) error
	DeleteState(ctx context.Context, key string) error
}
