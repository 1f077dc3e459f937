package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"storefront/internal/config"
	"storefront/internal/model"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	stripeapi "github.com/stripe/stripe-go/v76/client"
)

var ErrProviderNotFound = errors.New("provider resource not found")

type StripeClient interface {
	CreateCoupon(ctx context.Context, percentOff decimal.Decimal, name string) (*model.StripeCoupon, error)
	CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*model.StripeCheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*model.StripeCheckoutSession, error)

	GetProduct(ctx context.Context, productID string) (*model.StripeProduct, error)
	SearchProductsByMetadata(ctx context.Context, key, value string) ([]model.StripeProduct, error)
	CreateProduct(ctx context.Context, params *ProductParams) (*model.StripeProduct, error)
	UpdateProduct(ctx context.Context, productID string, params *ProductParams) (*model.StripeProduct, error)

	ListActivePrices(ctx context.Context, productID string) ([]model.StripePrice, error)
	CreatePrice(ctx context.Context, productID string, unitAmount int64, currency string) (*model.StripePrice, error)
	DeactivatePrice(ctx context.Context, priceID string) error
}

type CheckoutLineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type CheckoutSessionParams struct {
	LineItems         []CheckoutLineItem
	Currency          string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	CouponID          string
	Metadata          map[string]string
}

type ProductParams struct {
	Name        string
	Description string
	Images      []string
	Metadata    map[string]string
}

// ProviderError is a non-2xx answer from the provider API.
type ProviderError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stripe error %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

type stripeClientImpl struct {
	api *stripeapi.API
}

func NewStripeClient(cfg *config.Stripe) StripeClient {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(strings.TrimRight(cfg.BaseApiURL, "/")),
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	})

	return &stripeClientImpl{
		api: stripeapi.New(cfg.SecretKey, &stripe.Backends{
			API:     backend,
			Connect: backend,
			Uploads: backend,
		}),
	}
}

func (c *stripeClientImpl) CreateCoupon(ctx context.Context, percentOff decimal.Decimal, name string) (*model.StripeCoupon, error) {
	params := &stripe.CouponParams{
		PercentOff: stripe.Float64(percentOff.InexactFloat64()),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
		Name:       stripe.String(name),
	}
	params.Context = ctx

	coupon, err := c.api.Coupons.New(params)
	if err != nil {
		return nil, fmt.Errorf("create coupon: %w", providerError(err))
	}
	return &model.StripeCoupon{
		ID:         coupon.ID,
		PercentOff: coupon.PercentOff,
		Duration:   string(coupon.Duration),
		Name:       coupon.Name,
	}, nil
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*model.StripeCheckoutSession, error) {
	sp := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
	}
	sp.Context = ctx
	if params.ClientReferenceID != "" {
		sp.ClientReferenceID = stripe.String(params.ClientReferenceID)
	}

	for _, item := range params.LineItems {
		sp.LineItems = append(sp.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(params.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	if params.CouponID != "" {
		sp.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(params.CouponID)}}
	}
	for k, v := range params.Metadata {
		sp.AddMetadata(k, v)
	}

	session, err := c.api.CheckoutSessions.New(sp)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", providerError(err))
	}
	return toSession(session), nil
}

func (c *stripeClientImpl) GetCheckoutSession(ctx context.Context, sessionID string) (*model.StripeCheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session %s: %w", sessionID, providerError(err))
	}
	return toSession(session), nil
}

func (c *stripeClientImpl) GetProduct(ctx context.Context, productID string) (*model.StripeProduct, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx

	product, err := c.api.Products.Get(productID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve product %s: %w", productID, providerError(err))
	}
	return toProduct(product), nil
}

func (c *stripeClientImpl) SearchProductsByMetadata(ctx context.Context, key, value string) ([]model.StripeProduct, error) {
	params := &stripe.ProductSearchParams{}
	params.Context = ctx
	params.Query = fmt.Sprintf("metadata['%s']:'%s'", key, value)

	var products []model.StripeProduct
	iter := c.api.Products.Search(params)
	for iter.Next() {
		products = append(products, *toProduct(iter.Product()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("search products: %w", providerError(err))
	}
	return products, nil
}

func (c *stripeClientImpl) CreateProduct(ctx context.Context, params *ProductParams) (*model.StripeProduct, error) {
	product, err := c.api.Products.New(productParams(ctx, params))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", providerError(err))
	}
	return toProduct(product), nil
}

func (c *stripeClientImpl) UpdateProduct(ctx context.Context, productID string, params *ProductParams) (*model.StripeProduct, error) {
	product, err := c.api.Products.Update(productID, productParams(ctx, params))
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", productID, providerError(err))
	}
	return toProduct(product), nil
}

func (c *stripeClientImpl) ListActivePrices(ctx context.Context, productID string) ([]model.StripePrice, error) {
	params := &stripe.PriceListParams{
		Product: stripe.String(productID),
		Active:  stripe.Bool(true),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)

	var prices []model.StripePrice
	iter := c.api.Prices.List(params)
	for iter.Next() {
		prices = append(prices, *toPrice(iter.Price()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list prices for %s: %w", productID, providerError(err))
	}
	return prices, nil
}

func (c *stripeClientImpl) CreatePrice(ctx context.Context, productID string, unitAmount int64, currency string) (*model.StripePrice, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(unitAmount),
		Currency:   stripe.String(currency),
	}
	params.Context = ctx

	price, err := c.api.Prices.New(params)
	if err != nil {
		return nil, fmt.Errorf("create price: %w", providerError(err))
	}
	return toPrice(price), nil
}

func (c *stripeClientImpl) DeactivatePrice(ctx context.Context, priceID string) error {
	params := &stripe.PriceParams{Active: stripe.Bool(false)}
	params.Context = ctx

	if _, err := c.api.Prices.Update(priceID, params); err != nil {
		return fmt.Errorf("deactivate price %s: %w", priceID, providerError(err))
	}
	return nil
}

// providerError maps SDK errors onto ProviderError; a 404 also matches ErrProviderNotFound.
func providerError(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return err
	}

	perr := &ProviderError{
		StatusCode: serr.HTTPStatusCode,
		Type:       string(serr.Type),
		Code:       string(serr.Code),
		Message:    serr.Msg,
	}
	if serr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrProviderNotFound, perr)
	}
	return perr
}

func productParams(ctx context.Context, params *ProductParams) *stripe.ProductParams {
	pp := &stripe.ProductParams{Name: stripe.String(params.Name)}
	pp.Context = ctx
	if params.Description != "" {
		pp.Description = stripe.String(params.Description)
	}
	if len(params.Images) > 0 {
		pp.Images = stripe.StringSlice(params.Images)
	}
	for k, v := range params.Metadata {
		pp.AddMetadata(k, v)
	}
	return pp
}

func toSession(s *stripe.CheckoutSession) *model.StripeCheckoutSession {
	session := &model.StripeCheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		Status:            string(s.Status),
		PaymentStatus:     string(s.PaymentStatus),
		AmountSubtotal:    s.AmountSubtotal,
		AmountTotal:       s.AmountTotal,
		Currency:          string(s.Currency),
		ClientReferenceID: s.ClientReferenceID,
		Metadata:          s.Metadata,
	}
	if s.PaymentIntent != nil {
		session.PaymentIntent = s.PaymentIntent.ID
	}
	if s.TotalDetails != nil {
		session.TotalDetails = model.StripeTotalDetails{
			AmountDiscount: s.TotalDetails.AmountDiscount,
			AmountTax:      s.TotalDetails.AmountTax,
		}
	}
	return session
}

func toProduct(p *stripe.Product) *model.StripeProduct {
	return &model.StripeProduct{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		Images:      p.Images,
		Metadata:    p.Metadata,
	}
}

func toPrice(p *stripe.Price) *model.StripePrice {
	price := &model.StripePrice{
		ID:         p.ID,
		Active:     p.Active,
		Currency:   string(p.Currency),
		UnitAmount: p.UnitAmount,
	}
	if p.Product != nil {
		price.Product = p.Product.ID
	}
	return price
}
