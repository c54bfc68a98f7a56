package service

import (
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/calermo/seo-manager/internal/actions"
	"github.com/calermo/seo-manager/internal/bus"
	"github.com/calermo/seo-manager/internal/cache"
	"github.com/calermo/seo-manager/internal/fetch"
	"github.com/calermo/seo-manager/internal/optimistic"
	"github.com/calermo/seo-manager/internal/store"
)

// Store tables.
const (
	TableVideoSeo    = "video_seo"
	TableChannels    = "channels"
	TableTeamMembers = "team_members"
	TableTasks       = "tasks"
	TableComments    = "comments"
	TableSeoVersions = "seo_versions"
)

// videoListColumns is the narrow projection the list views fetch; detail
// views select everything.
var videoListColumns = []string{
	"id", "channel_id", "video_id", "old_title",
	"is_seo_done", "assigned_to", "worked_by", "created_at",
}

// Service orchestrates the dashboard: catalog loading through the cache
// coherence rules, role-gated mutations through the optimistic machinery,
// and the working-identity state.
type Service struct {
	store      store.Client
	cache      *cache.Cache
	state      cache.StateStore
	reconciler *cache.Reconciler
	fetcher    *fetch.Fetcher
	queue      *actions.Queue
	notifier   *actions.Notifier
	mutator    *optimistic.Mutator
	broadcast  *bus.Bus

	loadGroup singleflight.Group
	clock     func() time.Time
}

type Deps struct {
	Store      store.Client
	Cache      *cache.Cache
	State      cache.StateStore
	Reconciler *cache.Reconciler
	Fetcher    *fetch.Fetcher
	Queue      *actions.Queue
	Notifier   *actions.Notifier
	Broadcast  *bus.Bus
}

func New(deps Deps) (*Service, error) {
	if deps.Store == nil || deps.Cache == nil || deps.Fetcher == nil {
		return nil, fmt.Errorf("store, cache and fetcher are required")
	}
	reconciler := deps.Reconciler
	if reconciler == nil {
		reconciler = cache.NewReconciler(deps.Cache)
	}
	broadcast := deps.Broadcast
	if broadcast == nil {
		broadcast = bus.New()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = actions.NewNotifier()
	}
	queue := deps.Queue
	if queue == nil {
		queue = actions.NewQueue(notifier)
	}

	state := deps.State
	if state == nil {
		state = cache.NewMemoryStore()
	}

	s := &Service{
		store:      deps.Store,
		cache:      deps.Cache,
		state:      state,
		reconciler: reconciler,
		fetcher:    deps.Fetcher,
		queue:      queue,
		notifier:   notifier,
		broadcast:  broadcast,
		clock:      time.Now,
	}
	s.mutator = optimistic.NewMutator(queue, reconciler, broadcast)
	return s, nil
}

func (s *Service) Broadcast() *bus.Bus {
	return s.broadcast
}

func (s *Service) Notifier() *actions.Notifier {
	return s.notifier
}

func (s *Service) Queue() *actions.Queue {
	return s.queue
}

func (s *Service) Mutator() *optimistic.Mutator {
	return s.mutator
}

func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Close stops background processing. In-flight work settles first.
func (s *Service) Close() {
	s.queue.Stop()
}
