package cache

import (
	"context"

	"github.com/calermo/seo-manager/internal/catalog"
)

// Reconciler patches a server-confirmed record into every cached copy that
// currently holds it. It must run before the update is broadcast, so that
// subscribers re-reading the cache see the patched state.
type Reconciler struct {
	cache *Cache
}

func NewReconciler(cache *Cache) *Reconciler {
	return &Reconciler{cache: cache}
}

// Reconcile merges the updated record into each registered namespace where
// the id is present. A namespace that does not hold the id is left alone:
// new records only ever enter a namespace through a full fetch, otherwise
// the namespace's query predicate would be violated. Returns the number of
// namespaces patched.
func (r *Reconciler) Reconcile(ctx context.Context, updated catalog.VideoSeo) int {
	patched := 0
	for _, namespace := range r.cache.Registry().Keys() {
		snap, ok := r.cache.Get(ctx, namespace)
		if !ok {
			continue
		}
		idx := snap.IndexOf(updated.ID)
		if idx < 0 {
			continue
		}
		snap.Videos[idx] = mergeVideo(snap.Videos[idx], updated)
		r.cache.Put(ctx, namespace, snap)
		patched++
	}
	return patched
}

// mergeVideo overlays the server-confirmed record on the cached one. The
// joined channel is the one field the store omits on narrow responses, so a
// missing join keeps the cached value.
func mergeVideo(existing, updated catalog.VideoSeo) catalog.VideoSeo {
	merged := updated
	if merged.Channel == nil {
		merged.Channel = existing.Channel
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = existing.CreatedAt
	}
	return merged
}
