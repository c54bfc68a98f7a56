package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calermo/seo-manager/internal/catalog"
)

func testSnapshot(fetchedAt time.Time, ids ...string) Snapshot {
	videos := make([]catalog.VideoSeo, len(ids))
	for i, id := range ids {
		videos[i] = catalog.VideoSeo{ID: id, VideoID: "yt-" + id, OldTitle: "Title " + id}
	}
	return Snapshot{Videos: videos, FetchedAt: fetchedAt}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), DefaultConfig())

	now := time.Now()
	c.Put(ctx, NamespaceAll, testSnapshot(now, "a", "b", "c"))

	snap, ok := c.Get(ctx, NamespaceAll)
	require.True(t, ok)
	require.Len(t, snap.Videos, 3)
	assert.Equal(t, "a", snap.Videos[0].ID)
	assert.WithinDuration(t, now, snap.FetchedAt, time.Second)
}

func TestCacheFreshnessBoundary(t *testing.T) {
	c := New(NewMemoryStore(), Config{GlobalTTL: 24 * time.Hour, ChannelTTL: 5 * time.Minute})

	fetchedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := testSnapshot(fetchedAt, "a")

	cases := []struct {
		name      string
		namespace string
		now       time.Time
		fresh     bool
	}{
		{"global just inside", NamespaceAll, fetchedAt.Add(24*time.Hour - time.Millisecond), true},
		{"global exactly at ttl", NamespaceAll, fetchedAt.Add(24 * time.Hour), false},
		{"global just past", NamespaceAll, fetchedAt.Add(24*time.Hour + time.Millisecond), false},
		{"channel just inside", NamespaceChannel("ch1"), fetchedAt.Add(5*time.Minute - time.Millisecond), true},
		{"channel exactly at ttl", NamespaceChannel("ch1"), fetchedAt.Add(5 * time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c.SetClock(func() time.Time { return tc.now })
			assert.Equal(t, tc.fresh, c.Fresh(tc.namespace, snap))
		})
	}
}

func TestCacheCorruptPayloadReadsAsMiss(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	c := New(mem, DefaultConfig())

	require.NoError(t, mem.Save(ctx, NamespaceAll, []byte("{not json"), time.Now(), time.Now().Add(time.Hour)))

	_, ok := c.Get(ctx, NamespaceAll)
	assert.False(t, ok)

	// The corrupt payload is discarded, not retried.
	_, _, found, err := mem.Load(ctx, NamespaceAll)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCachePutRegistersNamespace(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), DefaultConfig())

	c.Put(ctx, NamespaceChannel("ch1"), testSnapshot(time.Now(), "a"))
	c.Put(ctx, NamespaceChannel("ch2"), testSnapshot(time.Now(), "b"))

	keys := c.Registry().Keys()
	assert.Contains(t, keys, NamespaceAll)
	assert.Contains(t, keys, NamespaceChannel("ch1"))
	assert.Contains(t, keys, NamespaceChannel("ch2"))
}

func TestCacheTTLClasses(t *testing.T) {
	c := New(NewMemoryStore(), Config{GlobalTTL: 24 * time.Hour, ChannelTTL: 5 * time.Minute})

	assert.Equal(t, 24*time.Hour, c.TTLFor(NamespaceAll))
	assert.Equal(t, 5*time.Minute, c.TTLFor(NamespaceChannel("ch1")))
}

func TestCacheSweepDropsExpired(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), Config{GlobalTTL: time.Hour, ChannelTTL: time.Minute})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.Put(ctx, NamespaceAll, testSnapshot(base, "a"))
	c.Put(ctx, NamespaceChannel("ch1"), testSnapshot(base, "b"))

	c.SetClock(func() time.Time { return base.Add(30 * time.Minute) })
	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, ok := c.Get(ctx, NamespaceAll)
	assert.True(t, ok)
	_, ok = c.Get(ctx, NamespaceChannel("ch1"))
	assert.False(t, ok)
}

func TestSnapshotEncodeDecodeSizes(t *testing.T) {
	fetchedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, size := range []int{0, 1, 2230} {
		t.Run(fmt.Sprintf("%d records", size), func(t *testing.T) {
			videos := make([]catalog.VideoSeo, size)
			for i := range videos {
				videos[i] = catalog.VideoSeo{
					ID:        fmt.Sprintf("video-%04d", i),
					ChannelID: fmt.Sprintf("ch%d", i%7),
					VideoID:   fmt.Sprintf("yt-%04d", i),
					OldTitle:  fmt.Sprintf("Title %d", i),
					IsSeoDone: i%2 == 0,
					CreatedAt: fetchedAt.Add(-time.Duration(i) * time.Minute),
				}
			}
			snap := Snapshot{Videos: videos, FetchedAt: fetchedAt}

			payload, err := snap.Encode()
			require.NoError(t, err)
			decoded, err := DecodeSnapshot(payload)
			require.NoError(t, err)

			require.Len(t, decoded.Videos, size)
			assert.True(t, decoded.FetchedAt.Equal(fetchedAt))
			for i := range videos {
				assert.Equal(t, videos[i].ID, decoded.Videos[i].ID)
			}
			if size > 0 {
				// Field-for-field on the last record, the one most likely
				// to be truncated by a bad encoder.
				assert.Equal(t, videos[size-1], decoded.Videos[size-1])
			}
		})
	}
}

func TestSnapshotIndexOf(t *testing.T) {
	snap := testSnapshot(time.Now(), "a", "b")
	assert.Equal(t, 1, snap.IndexOf("b"))
	assert.Equal(t, -1, snap.IndexOf("missing"))
}
