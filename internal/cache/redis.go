package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"storefront/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "catalog:"
	allProducts = keyPrefix + "products"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 10 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) GetAll(ctx context.Context) ([]*model.Product, error) {
	var products []*model.Product
	if err := r.get(ctx, allProducts, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *RedisCache) SetAll(ctx context.Context, products []*model.Product) error {
	return r.set(ctx, allProducts, products)
}

func (r *RedisCache) Get(ctx context.Context, productID uint) (*model.Product, error) {
	var product model.Product
	if err := r.get(ctx, productKey(productID), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *RedisCache) Set(ctx context.Context, product *model.Product) error {
	return r.set(ctx, productKey(product.ID), product)
}

// Invalidate drops every catalog key.
func (r *RedisCache) Invalidate(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) get(ctx context.Context, key string, out interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Intn(60)) * time.Second
	if err := r.client.Set(ctx, key, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func productKey(productID uint) string {
	return fmt.Sprintf("%sproduct:%d", keyPrefix, productID)
}
