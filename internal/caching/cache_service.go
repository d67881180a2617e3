package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService wraps Redis for the read-side caches: the materialized
// category tree, per-entity analytics responses, and generic string values.
type CacheService interface {
	// Category tree materialization, one entry per aggregation window
	SetTree(ctx context.Context, window string, payload any, ttl time.Duration) error
	GetTree(ctx context.Context, window string, out any) (bool, error)

	// Analytics response caching
	GetAnalytics(ctx context.Context, kind string, id int64) ([]byte, error)
	SetAnalytics(ctx context.Context, kind string, id int64, payload any, ttl time.Duration) error

	InvalidateAnalytics(ctx context.Context) error

	// Generic string operations
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func treeKey(window string) string {
	return fmt.Sprintf("marketscan:categorytree:%s", window)
}

func (r *redisCacheService) SetTree(ctx context.Context, window string, payload any, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, treeKey(window), data, ttl).Err()
}

func (r *redisCacheService) GetTree(ctx context.Context, window string, out any) (bool, error) {
	data, err := r.client.Get(ctx, treeKey(window)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil // cache miss
		}
		return false, err
	}
	return true, json.Unmarshal(data, out)
}

func (r *redisCacheService) GetAnalytics(ctx context.Context, kind string, id int64) ([]byte, error) {
	key := fmt.Sprintf("marketscan:analytics:%s:%d", kind, id)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}
	return data, nil
}

func (r *redisCacheService) SetAnalytics(ctx context.Context, kind string, id int64, payload any, ttl time.Duration) error {
	key := fmt.Sprintf("marketscan:analytics:%s:%d", kind, id)
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) InvalidateAnalytics(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, "marketscan:analytics:*").Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func (r *redisCacheService) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
