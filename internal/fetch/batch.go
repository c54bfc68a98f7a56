package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calermo/seo-manager/internal/cache"
	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/store"
	"github.com/calermo/seo-manager/pkg/log"
)

const (
	defaultPageSize    = 1000
	defaultConcurrency = 3

	// Progress caps at 95% until the snapshot is actually stored; the
	// caller reports 100% afterwards.
	progressCeiling = 95.0
)

// Progress is one incremental loading report.
type Progress struct {
	Loaded  int     `json:"loaded"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

type ProgressFunc func(Progress)

// Fetcher pulls an entire collection from the record store in fixed-size
// pages with a bounded number of in-flight requests.
type Fetcher struct {
	client      store.Client
	table       string
	pageSize    int
	concurrency int
	clock       func() time.Time
}

type Option func(*Fetcher)

func WithPageSize(size int) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.pageSize = size
		}
	}
}

func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(f *Fetcher) {
		f.clock = clock
	}
}

func NewFetcher(client store.Client, table string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		table:       table,
		pageSize:    defaultPageSize,
		concurrency: defaultConcurrency,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll retrieves every row matching the filters and returns a snapshot
// ordered by created_at descending. Pages run with bounded fan-out; a page
// that fails is logged and skipped so the rest of the collection still
// loads (partial results beat total failure). Page results are concatenated
// in request order, not completion order, so the server-side sort survives
// out-of-order completion.
func (f *Fetcher) FetchAll(ctx context.Context, filters []store.Filter, columns []string, onProgress ProgressFunc) (cache.Snapshot, error) {
	total, err := f.client.Count(ctx, f.table, filters)
	if err != nil {
		return cache.Snapshot{}, fmt.Errorf("count %s: %w", f.table, err)
	}
	if total == 0 {
		return cache.Snapshot{Videos: []catalog.VideoSeo{}, FetchedAt: f.clock()}, nil
	}

	pages := (total + f.pageSize - 1) / f.pageSize
	pageRows := make([][]store.Row, pages)

	var mu sync.Mutex
	loaded := 0
	report := func(count int) {
		if onProgress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		loaded += count
		progress := Progress{Loaded: loaded, Total: total}
		progress.Percent = float64(loaded) / float64(total) * 100
		if progress.Percent > progressCeiling {
			progress.Percent = progressCeiling
		}
		// Delivered under the lock: concurrently completing pages must not
		// reorder events, progress only ever moves forward.
		onProgress(progress)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.concurrency)
	for page := 0; page < pages; page++ {
		page := page
		group.Go(func() error {
			from := page * f.pageSize
			to := from + f.pageSize - 1
			rows, err := f.client.Select(groupCtx, store.Query{
				Table:   f.table,
				Columns: columns,
				Filters: filters,
				Order:   &store.Order{Column: "created_at", Descending: true},
				Range:   &store.Range{From: from, To: to},
			})
			if err != nil {
				// Drop this page and keep going with the rest.
				log.Error("Fetching page %d of %s failed: %v", page, f.table, err)
				return nil
			}
			pageRows[page] = rows
			report(len(rows))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return cache.Snapshot{}, err
	}
	if ctx.Err() != nil {
		return cache.Snapshot{}, ctx.Err()
	}

	videos := make([]catalog.VideoSeo, 0, total)
	seen := make(map[string]struct{}, total)
	for _, rows := range pageRows {
		if len(rows) == 0 {
			continue
		}
		var batch []catalog.VideoSeo
		if err := store.DecodeRows(rows, &batch); err != nil {
			return cache.Snapshot{}, fmt.Errorf("decode %s rows: %w", f.table, err)
		}
		for _, video := range batch {
			// Rows can repeat across page boundaries when the collection
			// shifts mid-fetch; keep the first occurrence.
			if _, dup := seen[video.ID]; dup {
				continue
			}
			seen[video.ID] = struct{}{}
			videos = append(videos, video)
		}
	}

	return cache.Snapshot{Videos: videos, FetchedAt: f.clock()}, nil
}
