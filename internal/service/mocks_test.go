package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"storefront/internal/cache"
	"storefront/internal/client"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockStripeClient keeps provider state in memory.
type MockStripeClient struct {
	mu sync.Mutex

	Sessions        map[string]*model.StripeCheckoutSession
	CreatedSessions []*client.CheckoutSessionParams
	Coupons         []decimal.Decimal
	Products        map[string]*model.StripeProduct
	Prices          map[string]*model.StripePrice
	priceOrder      []string
	nextID          int

	CreateSessionErr error
	CreateCouponErr  error
	GetSessionErr    error
	FailProducts     map[string]bool // by product name
	ProductUpdates   int
}

func NewMockStripeClient() *MockStripeClient {
	return &MockStripeClient{
		Sessions:     make(map[string]*model.StripeCheckoutSession),
		Products:     make(map[string]*model.StripeProduct),
		Prices:       make(map[string]*model.StripePrice),
		FailProducts: make(map[string]bool),
	}
}

func (m *MockStripeClient) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s_%d", prefix, m.nextID)
}

func (m *MockStripeClient) CreateCoupon(_ context.Context, percentOff decimal.Decimal, name string) (*model.StripeCoupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateCouponErr != nil {
		return nil, m.CreateCouponErr
	}
	m.Coupons = append(m.Coupons, percentOff)
	return &model.StripeCoupon{ID: m.id("coupon"), PercentOff: percentOff.InexactFloat64(), Duration: "once", Name: name}, nil
}

func (m *MockStripeClient) CreateCheckoutSession(_ context.Context, params *client.CheckoutSessionParams) (*model.StripeCheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateSessionErr != nil {
		return nil, m.CreateSessionErr
	}
	m.CreatedSessions = append(m.CreatedSessions, params)

	id := m.id("cs")
	session := &model.StripeCheckoutSession{
		ID:                id,
		URL:               "https://checkout.test/" + id,
		Status:            "open",
		PaymentStatus:     "unpaid",
		Currency:          params.Currency,
		ClientReferenceID: params.ClientReferenceID,
		Metadata:          params.Metadata,
	}
	m.Sessions[id] = session
	return session, nil
}

func (m *MockStripeClient) GetCheckoutSession(_ context.Context, sessionID string) (*model.StripeCheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetSessionErr != nil {
		return nil, m.GetSessionErr
	}
	s, ok := m.Sessions[sessionID]
	if !ok {
		return nil, client.ErrProviderNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockStripeClient) GetProduct(_ context.Context, productID string) (*model.StripeProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Products[productID]
	if !ok {
		return nil, fmt.Errorf("retrieve product %s: %w", productID, client.ErrProviderNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *MockStripeClient) SearchProductsByMetadata(_ context.Context, key, value string) ([]model.StripeProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StripeProduct
	for _, p := range m.Products {
		if p.Metadata[key] == value {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockStripeClient) CreateProduct(_ context.Context, params *client.ProductParams) (*model.StripeProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailProducts[params.Name] {
		return nil, errors.New("provider rejected product")
	}
	p := &model.StripeProduct{
		ID:          m.id("prod"),
		Name:        params.Name,
		Description: params.Description,
		Active:      true,
		Images:      params.Images,
		Metadata:    params.Metadata,
	}
	m.Products[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *MockStripeClient) UpdateProduct(_ context.Context, productID string, params *client.ProductParams) (*model.StripeProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailProducts[params.Name] {
		return nil, errors.New("provider rejected product")
	}
	p, ok := m.Products[productID]
	if !ok {
		return nil, client.ErrProviderNotFound
	}
	p.Name, p.Description, p.Images, p.Metadata = params.Name, params.Description, params.Images, params.Metadata
	m.ProductUpdates++
	cp := *p
	return &cp, nil
}

func (m *MockStripeClient) ListActivePrices(_ context.Context, productID string) ([]model.StripePrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StripePrice
	for _, id := range m.priceOrder {
		p := m.Prices[id]
		if p.Product == productID && p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MockStripeClient) CreatePrice(_ context.Context, productID string, unitAmount int64, currency string) (*model.StripePrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &model.StripePrice{ID: m.id("price"), Product: productID, Active: true, Currency: currency, UnitAmount: unitAmount}
	m.Prices[p.ID] = p
	m.priceOrder = append(m.priceOrder, p.ID)
	cp := *p
	return &cp, nil
}

func (m *MockStripeClient) DeactivatePrice(_ context.Context, priceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Prices[priceID]
	if !ok {
		return client.ErrProviderNotFound
	}
	p.Active = false
	return nil
}

// ActivePrices returns the active prices of productID in creation order.
func (m *MockStripeClient) ActivePrices(productID string) []model.StripePrice {
	prices, _ := m.ListActivePrices(context.Background(), productID)
	return prices
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []any
	Keys   []string
	Err    error
}

func (m *MockPublisher) PublishEvent(_ context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Keys = append(m.Keys, key)
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// MockProductCache is an in-memory cache that counts invalidations.
type MockProductCache struct {
	mu            sync.Mutex
	all           []*model.Product
	byID          map[uint]*model.Product
	Invalidations int
}

func NewMockProductCache() *MockProductCache {
	return &MockProductCache{byID: make(map[uint]*model.Product)}
}

func (m *MockProductCache) GetAll(context.Context) ([]*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.all == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.all, nil
}

func (m *MockProductCache) SetAll(_ context.Context, products []*model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.all = products
	return nil
}

func (m *MockProductCache) Get(_ context.Context, productID uint) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[productID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return p, nil
}

func (m *MockProductCache) Set(_ context.Context, product *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[product.ID] = product
	return nil
}

func (m *MockProductCache) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.all = nil
	m.byID = make(map[uint]*model.Product)
	m.Invalidations++
	return nil
}

// repos bundles the gorm repositories over one test database.
type repos struct {
	db          *gorm.DB
	products    repository.ProductRepository
	profiles    repository.ProfileRepository
	coupons     repository.CouponRepository
	orders      repository.OrderRepository
	commissions repository.CommissionRepository
	events      repository.WebhookEventRepository
}

func newRepos(t *testing.T) *repos {
	db := testutil.NewDB(t)
	return &repos{
		db:          db,
		products:    repository.NewProductRepository(db),
		profiles:    repository.NewProfileRepository(db),
		coupons:     repository.NewCouponRepository(db),
		orders:      repository.NewOrderRepository(db),
		commissions: repository.NewCommissionRepository(db),
		events:      repository.NewWebhookEventRepository(db),
	}
}

func (r *repos) seedProduct(t *testing.T, name, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, Category: "test"}
	if err := r.products.Create(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func (r *repos) seedProfile(t *testing.T, id, code string) *model.Profile {
	t.Helper()
	p := &model.Profile{ID: id, Email: id + "@example.com", FirstName: "F", LastName: "L", CouponCode: code}
	if err := r.profiles.Create(context.Background(), p); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return p
}

func (r *repos) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := r.db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
