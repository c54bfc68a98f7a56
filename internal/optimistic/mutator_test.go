package optimistic

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calermo/seo-manager/internal/actions"
	"github.com/calermo/seo-manager/internal/bus"
	"github.com/calermo/seo-manager/internal/cache"
	"github.com/calermo/seo-manager/internal/catalog"
)

type fixture struct {
	cache    *cache.Cache
	notifier *actions.Notifier
	queue    *actions.Queue
	bus      *bus.Bus
	mutator  *Mutator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := cache.New(cache.NewMemoryStore(), cache.DefaultConfig())
	notifier := actions.NewNotifier()
	notifier.SetDisplayWindow(time.Minute)
	queue := actions.NewQueue(notifier)
	t.Cleanup(queue.Stop)
	b := bus.New()
	return &fixture{
		cache:    c,
		notifier: notifier,
		queue:    queue,
		bus:      b,
		mutator:  NewMutator(queue, cache.NewReconciler(c), b),
	}
}

func (f *fixture) seed(ctx context.Context, video catalog.VideoSeo) {
	f.cache.Put(ctx, cache.NamespaceAll, cache.Snapshot{
		Videos:    []catalog.VideoSeo{video},
		FetchedAt: time.Now(),
	})
	f.mutator.Track(video)
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.queue.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func toggleDone(v catalog.VideoSeo) catalog.VideoSeo {
	v.IsSeoDone = !v.IsSeoDone
	return v
}

func TestApplyFlipsLocallyBeforeRemoteSettles(t *testing.T) {
	f := newFixture(t)
	video := catalog.VideoSeo{ID: "a"}
	f.seed(context.Background(), video)

	release := make(chan struct{})
	f.mutator.Apply("a", toggleDone,
		func(ctx context.Context) (catalog.VideoSeo, error) {
			<-release
			confirmed := video
			confirmed.IsSeoDone = true
			return confirmed, nil
		},
		actions.PendingAction{SuccessMessage: "done"},
	)

	state, ok := f.mutator.State("a")
	require.True(t, ok)
	assert.Equal(t, TagOptimistic, state.Tag)
	assert.True(t, state.Value.IsSeoDone)
	assert.NotEmpty(t, state.PendingID)

	close(release)
	f.settle(t)

	state, _ = f.mutator.State("a")
	assert.Equal(t, TagConfirmed, state.Tag)
	assert.True(t, state.Value.IsSeoDone)
}

func TestApplyReconcilesCacheBeforeBroadcast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	video := catalog.VideoSeo{ID: "a"}
	f.seed(ctx, video)

	var mu sync.Mutex
	var cachedAtBroadcast bool
	f.bus.Subscribe(bus.TopicVideoUpdated, func(any) {
		snap, ok := f.cache.Get(ctx, cache.NamespaceAll)
		mu.Lock()
		cachedAtBroadcast = ok && snap.Videos[snap.IndexOf("a")].IsSeoDone
		mu.Unlock()
	})

	f.mutator.Apply("a", toggleDone,
		func(ctx context.Context) (catalog.VideoSeo, error) {
			confirmed := video
			confirmed.IsSeoDone = true
			return confirmed, nil
		},
		actions.PendingAction{},
	)
	f.settle(t)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, cachedAtBroadcast, "subscriber must observe the patched cache")
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	video := catalog.VideoSeo{ID: "a", OldTitle: "original"}
	f.seed(ctx, video)

	f.mutator.Apply("a", toggleDone,
		func(ctx context.Context) (catalog.VideoSeo, error) {
			return catalog.VideoSeo{}, fmt.Errorf("store rejected the write")
		},
		actions.PendingAction{
			SuccessMessage: "done",
			ErrorMessage:   "Failed to update",
		},
	)
	f.settle(t)

	// Local value is back to the pre-mutation state.
	state, ok := f.mutator.State("a")
	require.True(t, ok)
	assert.Equal(t, TagConfirmed, state.Tag)
	assert.False(t, state.Value.IsSeoDone)
	assert.Equal(t, "original", state.Value.OldTitle)

	// Exactly one error notification, no success notification.
	active := f.notifier.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Failed to update", active[0].Message)
	assert.Equal(t, actions.NotifyError, active[0].Kind)

	// The cached copy never saw the failed mutation.
	snap, ok := f.cache.Get(ctx, cache.NamespaceAll)
	require.True(t, ok)
	assert.False(t, snap.Videos[snap.IndexOf("a")].IsSeoDone)
}

func TestRapidTogglesAreNotCoalesced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	video := catalog.VideoSeo{ID: "a"}
	f.seed(ctx, video)

	release := make(chan struct{})
	var mu sync.Mutex
	var writes int
	remote := func(desired bool) RemoteMutation {
		return func(ctx context.Context) (catalog.VideoSeo, error) {
			<-release
			confirmed := video
			confirmed.IsSeoDone = desired
			mu.Lock()
			writes++
			mu.Unlock()
			return confirmed, nil
		}
	}

	// Two toggles before the first settles: both run, in order, each
	// flipping from the then-current local value.
	f.mutator.Apply("a", toggleDone, remote(true), actions.PendingAction{})
	f.mutator.Apply("a", toggleDone, remote(false), actions.PendingAction{})

	state, _ := f.mutator.State("a")
	assert.False(t, state.Value.IsSeoDone, "two flips land back on the original value")

	close(release)
	f.settle(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, writes)

	state, _ = f.mutator.State("a")
	assert.Equal(t, TagConfirmed, state.Tag)
	assert.False(t, state.Value.IsSeoDone)
}

func TestTrackDoesNotOverwriteExistingState(t *testing.T) {
	f := newFixture(t)
	video := catalog.VideoSeo{ID: "a"}
	f.seed(context.Background(), video)

	f.mutator.Apply("a", toggleDone,
		func(ctx context.Context) (catalog.VideoSeo, error) {
			v := video
			v.IsSeoDone = true
			return v, nil
		},
		actions.PendingAction{},
	)

	// A view re-mounting mid-flight must not clobber the optimistic value.
	f.mutator.Track(video)
	state, _ := f.mutator.State("a")
	assert.True(t, state.Value.IsSeoDone)

	f.settle(t)
}
