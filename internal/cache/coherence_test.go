package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calermo/seo-manager/internal/catalog"
)

func TestReconcilePatchesEveryHoldingNamespace(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), DefaultConfig())
	r := NewReconciler(c)

	now := time.Now()
	c.Put(ctx, NamespaceAll, testSnapshot(now, "a", "b", "c"))
	c.Put(ctx, NamespaceChannel("ch1"), testSnapshot(now, "b"))
	c.Put(ctx, NamespaceChannel("ch2"), testSnapshot(now, "c"))

	updated := catalog.VideoSeo{ID: "b", VideoID: "yt-b", OldTitle: "Title b", IsSeoDone: true, CreatedAt: now}
	patched := r.Reconcile(ctx, updated)
	assert.Equal(t, 2, patched)

	global, ok := c.Get(ctx, NamespaceAll)
	require.True(t, ok)
	assert.True(t, global.Videos[global.IndexOf("b")].IsSeoDone)

	channel, ok := c.Get(ctx, NamespaceChannel("ch1"))
	require.True(t, ok)
	assert.True(t, channel.Videos[0].IsSeoDone)

	// ch2 never held "b" and stays untouched.
	other, ok := c.Get(ctx, NamespaceChannel("ch2"))
	require.True(t, ok)
	assert.False(t, other.Videos[0].IsSeoDone)
}

func TestReconcileNeverInserts(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), DefaultConfig())
	r := NewReconciler(c)

	c.Put(ctx, NamespaceChannel("ch1"), testSnapshot(time.Now(), "a"))

	patched := r.Reconcile(ctx, catalog.VideoSeo{ID: "new-record"})
	assert.Equal(t, 0, patched)

	snap, ok := c.Get(ctx, NamespaceChannel("ch1"))
	require.True(t, ok)
	assert.Len(t, snap.Videos, 1)
	assert.Equal(t, -1, snap.IndexOf("new-record"))
}

func TestReconcileKeepsJoinedChannel(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), DefaultConfig())
	r := NewReconciler(c)

	now := time.Now()
	snap := testSnapshot(now, "a")
	snap.Videos[0].Channel = &catalog.Channel{ID: "ch1", ChannelName: "Main"}
	snap.Videos[0].CreatedAt = now
	c.Put(ctx, NamespaceAll, snap)

	// Store update responses carry no join and no created_at.
	r.Reconcile(ctx, catalog.VideoSeo{ID: "a", IsSeoDone: true})

	got, ok := c.Get(ctx, NamespaceAll)
	require.True(t, ok)
	record := got.Videos[got.IndexOf("a")]
	assert.True(t, record.IsSeoDone)
	require.NotNil(t, record.Channel)
	assert.Equal(t, "Main", record.Channel.ChannelName)
	assert.WithinDuration(t, now, record.CreatedAt, time.Second)
}

func TestReconcileSkipsMissingNamespaces(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), DefaultConfig())
	r := NewReconciler(c)

	// NamespaceAll is registered but holds no snapshot yet.
	patched := r.Reconcile(ctx, catalog.VideoSeo{ID: "a"})
	assert.Equal(t, 0, patched)
}
