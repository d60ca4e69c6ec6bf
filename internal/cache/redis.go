package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:"

// RedisCache keeps entries as plain string keys, namespaced so the database can be shared.
type RedisCache struct {
	client *redis.Client
}

var _ ListCache = (*RedisCache)(nil)

func NewRedisCache(ctx context.Context, rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

func (rc *RedisCache) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	value, err := rc.client.Get(ctx, redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return io.NopCloser(strings.NewReader(value)), nil
}

func (rc *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rc.client.Exists(ctx, redisKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (rc *RedisCache) Put(ctx context.Context, key, value string, opts PutOptions) error {
	if opts.Condition == PutIfNoneMatch {
		ok, err := rc.client.SetNX(ctx, redisKey(key), value, 0).Result()
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyExists
		}
		return nil
	}
	return rc.client.Set(ctx, redisKey(key), value, 0).Err()
}

func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, redisKey(key)).Err()
}

func (rc *RedisCache) List(ctx context.Context, prefix string, _ string) ([]string, error) {
	var keys []string
	iter := rc.client.Scan(ctx, 0, redisKey(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisKey(prefix)))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
