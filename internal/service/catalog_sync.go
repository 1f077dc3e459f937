package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"storefront/internal/cart"
	"storefront/internal/client"
	"storefront/internal/model"
	"storefront/internal/repository"
	"strconv"
	"strings"
)

const MetaCatalogID = "catalog_id"

type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

type CatalogSyncService interface {
	Sync(ctx context.Context) (*SyncResult, error)
}

type catalogSyncServiceImpl struct {
	stripeClient   client.StripeClient
	productRepo    repository.ProductRepository
	catalogService CatalogService
	currency       string
	log            *slog.Logger
}

func NewCatalogSyncService(
	stripeClient client.StripeClient,
	productRepo repository.ProductRepository,
	catalogService CatalogService,
	currency string,
	log *slog.Logger,
) CatalogSyncService {
	return &catalogSyncServiceImpl{
		stripeClient:   stripeClient,
		productRepo:    productRepo,
		catalogService: catalogService,
		currency:       strings.ToLower(currency),
		log:            log,
	}
}

// Sync projects every catalog row into the provider. A product that fails is
// logged and counted and the rest still run; nothing is rolled back.
func (s *catalogSyncServiceImpl) Sync(ctx context.Context) (*SyncResult, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	result := &SyncResult{}
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.syncProduct(ctx, p); err != nil {
			result.Failed++
			s.log.Error("sync product failed", "product_id", p.ID, "err", err)
			continue
		}
		result.Synced++
	}

	s.catalogService.Invalidate(ctx)
	s.log.Info("catalog sync finished", "synced", result.Synced, "failed", result.Failed)
	return result, nil
}

func (s *catalogSyncServiceImpl) syncProduct(ctx context.Context, p *model.Product) error {
	existing, err := s.findProviderProduct(ctx, p)
	if err != nil {
		return err
	}

	params := productParams(p)
	unitAmount := cart.ToCents(p.Price)

	if existing == nil {
		created, err := s.stripeClient.CreateProduct(ctx, params)
		if err != nil {
			return err
		}
		if _, err := s.stripeClient.CreatePrice(ctx, created.ID, unitAmount, s.currency); err != nil {
			return err
		}
		return s.productRepo.SetProviderProductID(ctx, p.ID, created.ID)
	}

	if _, err := s.stripeClient.UpdateProduct(ctx, existing.ID, params); err != nil {
		return err
	}
	if err := s.reconcilePrice(ctx, existing.ID, unitAmount); err != nil {
		return err
	}
	if p.ProviderProductID != existing.ID {
		return s.productRepo.SetProviderProductID(ctx, p.ID, existing.ID)
	}
	return nil
}

// findProviderProduct prefers the stored id and falls back to a metadata search.
func (s *catalogSyncServiceImpl) findProviderProduct(ctx context.Context, p *model.Product) (*model.StripeProduct, error) {
	if p.ProviderProductID != "" {
		found, err := s.stripeClient.GetProduct(ctx, p.ProviderProductID)
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, client.ErrProviderNotFound) {
			return nil, err
		}
	}

	matches, err := s.stripeClient.SearchProductsByMetadata(ctx, MetaCatalogID, catalogID(p))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// reconcilePrice leaves exactly one active price equal to unitAmount.
func (s *catalogSyncServiceImpl) reconcilePrice(ctx context.Context, providerProductID string, unitAmount int64) error {
	prices, err := s.stripeClient.ListActivePrices(ctx, providerProductID)
	if err != nil {
		return err
	}

	kept := false
	for _, price := range prices {
		if !kept && price.UnitAmount == unitAmount && strings.EqualFold(price.Currency, s.currency) {
			kept = true
			continue
		}
		if err := s.stripeClient.DeactivatePrice(ctx, price.ID); err != nil {
			return err
		}
	}
	if kept {
		return nil
	}

	_, err = s.stripeClient.CreatePrice(ctx, providerProductID, unitAmount, s.currency)
	return err
}

func productParams(p *model.Product) *client.ProductParams {
	params := &client.ProductParams{
		Name:        p.Name,
		Description: p.Description,
		Metadata: map[string]string{
			MetaCatalogID: catalogID(p),
			"stock":       strconv.Itoa(p.Stock),
			"category":    p.Category,
			"alt_image":   p.AltImage,
		},
	}
	if p.ImageURL != "" {
		params.Images = []string{p.ImageURL}
	}
	return params
}

func catalogID(p *model.Product) string {
	return strconv.FormatUint(uint64(p.ID), 10)
}
