package optimistic

import (
	"context"
	"sync"

	"github.com/calermo/seo-manager/internal/actions"
	"github.com/calermo/seo-manager/internal/bus"
	"github.com/calermo/seo-manager/internal/cache"
	"github.com/calermo/seo-manager/internal/catalog"
)

type StateTag string

const (
	// TagConfirmed means the local value matches the last server-confirmed
	// record (or the rolled-back value after a failed mutation).
	TagConfirmed StateTag = "confirmed"
	// TagOptimistic means a local change is showing ahead of remote
	// confirmation.
	TagOptimistic StateTag = "optimistic"
)

// RecordState is the tagged per-record variant of the optimistic state
// machine: Confirmed(server) → Optimistic(local, pending) → Confirmed(...).
type RecordState struct {
	Tag       StateTag
	Value     catalog.VideoSeo
	PendingID string
}

// LocalMutation computes the optimistic next value from the current one.
type LocalMutation func(current catalog.VideoSeo) catalog.VideoSeo

// RemoteMutation performs the store write and returns the canonical record.
type RemoteMutation func(ctx context.Context) (catalog.VideoSeo, error)

// Mutator applies a local change immediately, queues the remote write, and
// either reconciles the server-confirmed record into every cache copy or
// rolls the local value back on failure.
type Mutator struct {
	queue      *actions.Queue
	reconciler *cache.Reconciler
	broadcast  *bus.Bus

	mu     sync.Mutex
	states map[string]RecordState
}

func NewMutator(queue *actions.Queue, reconciler *cache.Reconciler, broadcast *bus.Bus) *Mutator {
	return &Mutator{
		queue:      queue,
		reconciler: reconciler,
		broadcast:  broadcast,
		states:     make(map[string]RecordState),
	}
}

// Track seeds the local state for a record, e.g. when a detail view mounts.
func (m *Mutator) Track(record catalog.VideoSeo) {
	m.mu.Lock()
	if _, ok := m.states[record.ID]; !ok {
		m.states[record.ID] = RecordState{Tag: TagConfirmed, Value: record}
	}
	m.mu.Unlock()
}

// State returns the current tagged state for a record.
func (m *Mutator) State(id string) (RecordState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[id]
	return state, ok
}

// Apply is fire-and-forget. The local flip happens synchronously before any
// remote call; the remote mutation is queued behind whatever else is
// pending. Re-triggering before the previous mutation settles is NOT
// coalesced: the second flip starts from the then-current local value and
// both writes run, in enqueue order.
func (m *Mutator) Apply(id string, local LocalMutation, remote RemoteMutation, opts actions.PendingAction) {
	m.mu.Lock()
	current, ok := m.states[id]
	if !ok {
		current = RecordState{Tag: TagConfirmed}
	}
	previous := current.Value
	next := local(current.Value)

	action := opts
	action.Op = func(ctx context.Context) (any, error) {
		return remote(ctx)
	}
	userOnSuccess := opts.OnSuccess
	userOnError := opts.OnError

	action.OnSuccess = func(result any) {
		canonical, _ := result.(catalog.VideoSeo)
		// Cache copies are patched before the broadcast so subscribers
		// re-reading the cache observe the confirmed record.
		m.reconciler.Reconcile(context.Background(), canonical)
		m.mu.Lock()
		m.states[id] = RecordState{Tag: TagConfirmed, Value: canonical}
		m.mu.Unlock()
		if m.broadcast != nil {
			m.broadcast.Publish(bus.TopicVideoUpdated, canonical)
		}
		if userOnSuccess != nil {
			userOnSuccess(result)
		}
	}
	action.OnError = func(err error) {
		m.mu.Lock()
		m.states[id] = RecordState{Tag: TagConfirmed, Value: previous}
		m.mu.Unlock()
		if userOnError != nil {
			userOnError(err)
		}
	}

	pendingID := m.queueLocked(action)
	m.states[id] = RecordState{Tag: TagOptimistic, Value: next, PendingID: pendingID}
	m.mu.Unlock()
}

// queueLocked enqueues while m.mu is held; the queue has its own lock and
// never calls back into the mutator synchronously.
func (m *Mutator) queueLocked(action actions.PendingAction) string {
	return m.queue.Enqueue(action)
}
