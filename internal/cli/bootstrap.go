package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calermo/seo-manager/internal/cache"
	"github.com/calermo/seo-manager/internal/config"
	"github.com/calermo/seo-manager/internal/fetch"
	"github.com/calermo/seo-manager/internal/service"
	"github.com/calermo/seo-manager/internal/store"
	"github.com/calermo/seo-manager/pkg/log"
)

// app bundles the wired service with everything that needs teardown.
type app struct {
	cfg     *config.Config
	svc     *service.Service
	cleanup []func()
}

func (a *app) close() {
	a.svc.Close()
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// bootstrap builds the service stack from environment configuration: the
// record store backend, the cache backend, the batch fetcher and the
// orchestrating service.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, err
	}
	log.SetLevel(log.ParseLevel(cfg.System.LogLevel))

	a := &app{cfg: cfg}

	client, err := buildStoreClient(ctx, cfg, a)
	if err != nil {
		return nil, err
	}
	cacheStore, stateStore, err := buildCacheStores(cfg, a)
	if err != nil {
		return nil, err
	}

	c := cache.New(cacheStore, cache.Config{
		GlobalTTL:  cfg.Cache.GlobalTTL,
		ChannelTTL: cfg.Cache.ChannelTTL,
	})
	fetcher := fetch.NewFetcher(client, service.TableVideoSeo,
		fetch.WithPageSize(cfg.Fetch.PageSize),
		fetch.WithConcurrency(cfg.Fetch.Concurrency),
	)

	svc, err := service.New(service.Deps{
		Store:   client,
		Cache:   c,
		State:   stateStore,
		Fetcher: fetcher,
	})
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return a, nil
}

func buildStoreClient(ctx context.Context, cfg *config.Config, a *app) (store.Client, error) {
	switch cfg.Store.Backend {
	case "rest":
		return store.NewRESTClient(cfg.Store.URL, cfg.Store.APIKey,
			time.Duration(cfg.Store.Timeout)*time.Second)
	case "postgres":
		client, err := store.NewPgClient(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.cleanup = append(a.cleanup, client.Close)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildCacheStores(cfg *config.Config, a *app) (cache.Store, cache.StateStore, error) {
	switch cfg.Cache.Backend {
	case "memory":
		mem := cache.NewMemoryStore()
		return mem, mem, nil
	case "sqlite":
		s, err := cache.NewSQLiteStore(cfg.Cache.DBPath)
		if err != nil {
			return nil, nil, err
		}
		a.cleanup = append(a.cleanup, func() { _ = s.Close() })
		return s, s, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		s := cache.NewRedisStore(client, cfg.Cache.RedisKeyPrefix)
		a.cleanup = append(a.cleanup, func() { _ = client.Close() })
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
