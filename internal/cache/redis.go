package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	redisCacheKeyFormat = "%s:cache:%s"
	redisStateKeyFormat = "%s:state:%s"
)

// RedisStore keeps snapshots in Redis so multiple dashboard nodes share one
// cache. Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "seomgr"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) cacheKey(namespace string) string {
	return fmt.Sprintf(redisCacheKeyFormat, s.keyPrefix, namespace)
}

func (s *RedisStore) stateKey(key string) string {
	return fmt.Sprintf(redisStateKeyFormat, s.keyPrefix, key)
}

func (s *RedisStore) Load(ctx context.Context, namespace string) ([]byte, time.Time, bool, error) {
	data, err := s.client.HGetAll(ctx, s.cacheKey(namespace)).Result()
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("load cache namespace %s: %w", namespace, err)
	}
	if len(data) == 0 {
		return nil, time.Time{}, false, nil
	}
	payload, ok := data["payload"]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	var fetchedAt time.Time
	if millis, err := strconv.ParseInt(data["fetched_at"], 10, 64); err == nil {
		fetchedAt = time.UnixMilli(millis)
	}
	return []byte(payload), fetchedAt, true, nil
}

func (s *RedisStore) Save(ctx context.Context, namespace string, payload []byte, fetchedAt, expiresAt time.Time) error {
	key := s.cacheKey(namespace)
	pipeline := s.client.TxPipeline()
	pipeline.HSet(ctx, key, map[string]string{
		"payload":    string(payload),
		"fetched_at": strconv.FormatInt(fetchedAt.UnixMilli(), 10),
	})
	if ttl := time.Until(expiresAt); ttl > 0 {
		pipeline.Expire(ctx, key, ttl)
	}
	if _, err := pipeline.Exec(ctx); err != nil {
		return fmt.Errorf("save cache namespace %s: %w", namespace, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, namespace string) error {
	return s.client.Del(ctx, s.cacheKey(namespace)).Err()
}

// DeleteExpired is a no-op: Redis evicts expired keys on its own.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) GetState(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.stateKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get state %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) PutState(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.stateKey(key), value, 0).Err()
}

func (s *RedisStore) DeleteState(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.stateKey(key)).Err()
}
