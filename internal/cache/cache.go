package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/calermo/seo-manager/pkg/log"
)

// Config carries the per-namespace-class time-to-live settings. The global
// catalog copy and channel-scoped copies expire independently.
type Config struct {
	GlobalTTL  time.Duration
	ChannelTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		GlobalTTL:  24 * time.Hour,
		ChannelTTL: 5 * time.Minute,
	}
}

// Cache is a best-effort, namespaced snapshot cache. It is never a source of
// correctness: reads that fail to parse come back absent and failed writes
// are logged and dropped.
type Cache struct {
	store    Store
	config   Config
	registry *Registry
	clock    func() time.Time
}

func New(store Store, config Config) *Cache {
	c := &Cache{
		store:    store,
		config:   config,
		registry: NewRegistry(),
		clock:    time.Now,
	}
	c.registry.Register(NamespaceAll)
	return c
}

// SetClock overrides the time source, for tests.
func (c *Cache) SetClock(clock func() time.Time) {
	c.clock = clock
}

func (c *Cache) Registry() *Registry {
	return c.registry
}

// TTLFor picks the time-to-live class for a namespace key.
func (c *Cache) TTLFor(namespace string) time.Duration {
	if namespace == NamespaceAll {
		return c.config.GlobalTTL
	}
	return c.config.ChannelTTL
}

// Get returns the cached snapshot for a namespace, absent on miss or on any
// storage/parse failure.
func (c *Cache) Get(ctx context.Context, namespace string) (Snapshot, bool) {
	payload, fetchedAt, ok, err := c.store.Load(ctx, namespace)
	if err != nil {
		log.Warn("Cache read for %s failed: %v", namespace, err)
		return Snapshot{}, false
	}
	if !ok {
		return Snapshot{}, false
	}
	snap, err := DecodeSnapshot(payload)
	if err != nil {
		// Corrupt payload counts as a miss and is discarded.
		log.Warn("Discarding corrupt cache payload for %s: %v", namespace, err)
		_ = c.store.Delete(ctx, namespace)
		return Snapshot{}, false
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = fetchedAt
	}
	return snap, true
}

// Fresh reports whether a snapshot from the given namespace is still usable.
func (c *Cache) Fresh(namespace string, snap Snapshot) bool {
	return snap.Fresh(c.clock(), c.TTLFor(namespace))
}

// Put stores a snapshot wholesale, replacing any previous copy, and
// registers the namespace so reconciliation reaches it later.
func (c *Cache) Put(ctx context.Context, namespace string, snap Snapshot) {
	payload, err := snap.Encode()
	if err != nil {
		log.Error("Encode snapshot for %s failed: %v", namespace, err)
		return
	}
	expiresAt := snap.FetchedAt.Add(c.TTLFor(namespace))
	if err := c.store.Save(ctx, namespace, payload, snap.FetchedAt, expiresAt); err != nil {
		log.Warn("Cache write for %s failed, continuing without cache: %v", namespace, err)
		return
	}
	c.registry.Register(namespace)
}

func (c *Cache) Invalidate(ctx context.Context, namespace string) {
	if err := c.store.Delete(ctx, namespace); err != nil {
		log.Warn("Cache invalidate for %s failed: %v", namespace, err)
	}
}

// Sweep drops expired namespaces from the backing store.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	return c.store.DeleteExpired(ctx, c.clock())
}

// Registry is the single place namespaces are recorded, so that a record
// update can be patched into every copy that might hold it. Hand-listing
// namespaces at call sites is how copies silently diverge.
type Registry struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]struct{})}
}

func (r *Registry) Register(namespace string) {
	if strings.TrimSpace(namespace) == "" {
		return
	}
	r.mu.Lock()
	r.keys[namespace] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]string, 0, len(r.keys))
	for key := range r.keys {
		ret = append(ret, key)
	}
	return ret
}
