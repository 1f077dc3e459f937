package cache

import (
	"context"
	"errors"

	"storefront/internal/model"
)

type ProductCache interface {
	GetAll(ctx context.Context) ([]*model.Product, error)
	SetAll(ctx context.Context, products []*model.Product) error
	Get(ctx context.Context, productID uint) (*model.Product, error)
	Set(ctx context.Context, product *model.Product) error
	Invalidate(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")

// NoopCache always misses. Used when no REDIS_URL is configured.
type NoopCache struct{}

func (NoopCache) GetAll(context.Context) ([]*model.Product, error) { return nil, ErrCacheMiss }
func (NoopCache) SetAll(context.Context, []*model.Product) error { return nil }
func (NoopCache) Get(context.Context, uint) (*model.Product, error) { return nil, ErrCacheMiss }
func (NoopCache) Set(context.Context, *model.Product) error { return nil }
func (NoopCache) Invalidate(context.Context) error { return nil }
