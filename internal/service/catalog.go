package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"storefront/internal/cache"
	"storefront/internal/model"
	"storefront/internal/repository"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type CatalogService interface {
	List(ctx context.Context) ([]*model.Product, error)
	Get(ctx context.Context, productID uint) (*model.Product, error)
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Invalidate(ctx context.Context)
}

type catalogServiceImpl struct {
	productRepo repository.ProductRepository
	cache       cache.ProductCache
	log         *slog.Logger
	sfg         singleflight.Group // collapses concurrent misses
}

func NewCatalogService(productRepo repository.ProductRepository, productCache cache.ProductCache, log *slog.Logger) CatalogService {
	return &catalogServiceImpl{
		productRepo: productRepo,
		cache:       productCache,
		log:         log,
	}
}

func (s *catalogServiceImpl) List(ctx context.Context) ([]*model.Product, error) {
	v, err, _ := s.sfg.Do("all", func() (interface{}, error) {
		products, err := s.cache.GetAll(ctx)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("catalog cache get failed", "err", err)
		}

		products, err = s.productRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}

		if err := s.cache.SetAll(ctx, products); err != nil {
			s.log.Warn("catalog cache set failed", "err", err)
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]*model.Product), nil
}

func (s *catalogServiceImpl) Get(ctx context.Context, productID uint) (*model.Product, error) {
	v, err, _ := s.sfg.Do("product:"+strconv.FormatUint(uint64(productID), 10), func() (interface{}, error) {
		product, err := s.cache.Get(ctx, productID)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("catalog cache get failed", "product_id", productID, "err", err)
		}

		product, err = s.productRepo.FindByID(ctx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("find product %d: %w", productID, err)
		}

		if err := s.cache.Set(ctx, product); err != nil {
			s.log.Warn("catalog cache set failed", "product_id", productID, "err", err)
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*model.Product), nil
}

func (s *catalogServiceImpl) Create(ctx context.Context, product *model.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	s.Invalidate(ctx)
	return nil
}

func (s *catalogServiceImpl) Update(ctx context.Context, product *model.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	err := s.productRepo.Update(ctx, product)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("update product %d: %w", product.ID, err)
	}

	s.Invalidate(ctx)
	return nil
}

// Invalidate is best effort; a stale entry expires with its TTL.
func (s *catalogServiceImpl) Invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("catalog cache invalidate failed", "err", err)
	}
}

func validateProduct(p *model.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case !p.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	}
	return nil
}
