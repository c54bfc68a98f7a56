package fetch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calermo/seo-manager/internal/store"
)

// fakeClient serves a fixed collection through Count/Select with optional
// per-page delays and failures.
type fakeClient struct {
	store.Client

	mu        sync.Mutex
	rows      []store.Row
	delays    map[int]time.Duration
	failPages map[int]bool
	selects   int
}

func newFakeClient(n int) *fakeClient {
	rows := make([]store.Row, n)
	for i := range rows {
		rows[i] = store.Row{
			"id":        fmt.Sprintf("video-%04d", i),
			"video_id":  fmt.Sprintf("yt-%04d", i),
			"old_title": fmt.Sprintf("Title %d", i),
		}
	}
	return &fakeClient{
		rows:      rows,
		delays:    make(map[int]time.Duration),
		failPages: make(map[int]bool),
	}
}

func (c *fakeClient) Count(ctx context.Context, table string, filters []store.Filter) (int, error) {
	return len(c.rows), nil
}

func (c *fakeClient) Select(ctx context.Context, q store.Query) ([]store.Row, error) {
	if q.Range == nil {
		return nil, fmt.Errorf("expected a ranged query")
	}
	page := q.Range.From / (q.Range.To - q.Range.From + 1)

	c.mu.Lock()
	c.selects++
	delay := c.delays[page]
	fail := c.failPages[page]
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return nil, fmt.Errorf("page %d unavailable", page)
	}

	from, to := q.Range.From, q.Range.To
	if from >= len(c.rows) {
		return nil, nil
	}
	if to >= len(c.rows) {
		to = len(c.rows) - 1
	}
	return c.rows[from : to+1], nil
}

func TestFetchAllPreservesRequestOrder(t *testing.T) {
	client := newFakeClient(250)
	// First page is the slowest, so completion order is reversed.
	client.delays[0] = 60 * time.Millisecond
	client.delays[1] = 30 * time.Millisecond

	fetcher := NewFetcher(client, "video_seo", WithPageSize(100), WithConcurrency(3))
	snap, err := fetcher.FetchAll(context.Background(), nil, nil, nil)
	require.NoError(t, err)

	require.Len(t, snap.Videos, 250)
	for i, video := range snap.Videos {
		assert.Equal(t, fmt.Sprintf("video-%04d", i), video.ID)
	}
}

func TestFetchAllSkipsFailedPages(t *testing.T) {
	client := newFakeClient(300)
	client.failPages[1] = true

	fetcher := NewFetcher(client, "video_seo", WithPageSize(100))
	snap, err := fetcher.FetchAll(context.Background(), nil, nil, nil)
	require.NoError(t, err)

	// The failed middle page is dropped, surrounding pages still in order.
	require.Len(t, snap.Videos, 200)
	assert.Equal(t, "video-0000", snap.Videos[0].ID)
	assert.Equal(t, "video-0099", snap.Videos[99].ID)
	assert.Equal(t, "video-0200", snap.Videos[100].ID)
}

func TestFetchAllProgressCapsBeforeStore(t *testing.T) {
	client := newFakeClient(500)

	var mu sync.Mutex
	var percents []float64
	onProgress := func(p Progress) {
		mu.Lock()
		percents = append(percents, p.Percent)
		mu.Unlock()
	}

	fetcher := NewFetcher(client, "video_seo", WithPageSize(100))
	_, err := fetcher.FetchAll(context.Background(), nil, nil, onProgress)
	require.NoError(t, err)

	require.NotEmpty(t, percents)
	for _, percent := range percents {
		assert.LessOrEqual(t, percent, 95.0)
	}
}

func TestFetchAllProgressIsMonotonic(t *testing.T) {
	client := newFakeClient(600)
	// Stagger completion so later pages finish before earlier ones.
	client.delays[0] = 40 * time.Millisecond
	client.delays[2] = 20 * time.Millisecond

	var mu sync.Mutex
	var loads []int
	onProgress := func(p Progress) {
		mu.Lock()
		loads = append(loads, p.Loaded)
		mu.Unlock()
	}

	fetcher := NewFetcher(client, "video_seo", WithPageSize(100), WithConcurrency(3))
	_, err := fetcher.FetchAll(context.Background(), nil, nil, onProgress)
	require.NoError(t, err)

	require.Len(t, loads, 6)
	for i := 1; i < len(loads); i++ {
		assert.Greater(t, loads[i], loads[i-1],
			"progress went backwards at event %d: %v", i, loads)
	}
}

func TestFetchAllDeduplicatesAcrossPages(t *testing.T) {
	client := newFakeClient(150)
	// Simulate a row repeating across the page boundary.
	client.rows[100] = client.rows[99]

	fetcher := NewFetcher(client, "video_seo", WithPageSize(100))
	snap, err := fetcher.FetchAll(context.Background(), nil, nil, nil)
	require.NoError(t, err)

	assert.Len(t, snap.Videos, 149)
	seen := make(map[string]bool)
	for _, video := range snap.Videos {
		assert.False(t, seen[video.ID], "duplicate id %s", video.ID)
		seen[video.ID] = true
	}
}

func TestFetchAllEmptyCollection(t *testing.T) {
	client := newFakeClient(0)
	fetcher := NewFetcher(client, "video_seo")

	snap, err := fetcher.FetchAll(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, snap.Videos)
	assert.Empty(t, snap.Videos)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestFetchAllCanceledContext(t *testing.T) {
	client := newFakeClient(100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(client, "video_seo", WithPageSize(100))
	_, err := fetcher.FetchAll(ctx, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
