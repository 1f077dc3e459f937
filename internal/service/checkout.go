package service

import (
	"context"
	"fmt"
	"log/slog"
	"storefront/internal/cart"
	"storefront/internal/client"
	"storefront/internal/model"
	"storefront/internal/repository"
	"strings"

	"github.com/shopspring/decimal"
)

type CheckoutItem struct {
	ProductID  uint
	UnitAmount int64 // client-side cents, only checked for positivity
	Quantity   int
}

type CheckoutRequest struct {
	UserID     string
	Items      []CheckoutItem
	CouponCode string
	// DiscountRate is what the client believes it was granted. The server
	// re-validates CouponCode and never trusts this value.
	DiscountRate *decimal.Decimal
}

type CheckoutResult struct {
	SessionID  string
	SessionURL string
}

type CheckoutService interface {
	CreateSession(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error)
}

type checkoutServiceImpl struct {
	stripeClient   client.StripeClient
	couponService  CouponService
	productRepo    repository.ProductRepository
	serviceBaseUrl string
	currency       string
	log            *slog.Logger
}

func NewCheckoutService(
	stripeClient client.StripeClient,
	couponService CouponService,
	productRepo repository.ProductRepository,
	serviceBaseUrl string,
	currency string,
	log *slog.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		stripeClient:   stripeClient,
		couponService:  couponService,
		productRepo:    productRepo,
		serviceBaseUrl: strings.TrimRight(serviceBaseUrl, "/"),
		currency:       currency,
		log:            log,
	}
}

func (s *checkoutServiceImpl) CreateSession(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if req.UserID == "" {
		return nil, ErrUnauthenticated
	}

	c, err := s.buildCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var coupon *CouponResult
	if code := NormalizeCouponCode(req.CouponCode); code != "" {
		coupon, err = s.couponService.Validate(ctx, code, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		if !coupon.Valid {
			return nil, &CouponRejectedError{Message: coupon.Message}
		}
		if req.DiscountRate != nil && !req.DiscountRate.Equal(coupon.DiscountRate) {
			s.log.Warn("client discount differs from validated rate",
				"user_id", req.UserID, "client_rate", req.DiscountRate.String(), "rate", coupon.DiscountRate.String())
		}
		c.ApplyDiscount(coupon.DiscountRate)
	}

	metadata := map[string]string{
		MetaUserID: req.UserID,
	}
	if err := EncodeSnapshot(snapshotOf(c), metadata); err != nil {
		return nil, err
	}

	params := &client.CheckoutSessionParams{
		LineItems:         toCheckoutLineItems(c.LineItems()),
		Currency:          s.currency,
		SuccessURL:        s.serviceBaseUrl + "/order-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         s.serviceBaseUrl + "/cart",
		ClientReferenceID: req.UserID,
		Metadata:          metadata,
	}

	if coupon != nil && coupon.DiscountRate.IsPositive() {
		metadata[MetaCouponCode] = coupon.Code
		metadata[MetaCouponOwnerID] = coupon.OwnerID
		metadata[MetaDiscountRate] = coupon.DiscountRate.String()

		percentOff := coupon.DiscountRate.Mul(decimal.NewFromInt(100))
		providerCoupon, err := s.stripeClient.CreateCoupon(ctx, percentOff, "Referral "+coupon.Code)
		if err != nil {
			s.log.Error("create provider coupon failed", "coupon_code", coupon.Code, "err", err)
			return nil, fmt.Errorf("create provider coupon: %w", err)
		}
		params.CouponID = providerCoupon.ID
	}

	session, err := s.stripeClient.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.log.Error("create checkout session failed", "user_id", req.UserID, "err", err)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	s.log.Info("checkout session created",
		"session_id", session.ID,
		"user_id", req.UserID,
		"subtotal", c.Subtotal().String(),
		"total", c.Total().String(),
	)

	return &CheckoutResult{
		SessionID:  session.ID,
		SessionURL: session.URL,
	}, nil
}

// buildCart prices the request from the catalog. Duplicate product ids merge.
func (s *checkoutServiceImpl) buildCart(ctx context.Context, items []CheckoutItem) (*cart.Cart, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidItems)
	}

	productIDs := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for i, item := range items {
		if item.ProductID == 0 {
			return nil, fmt.Errorf("%w: item %d has no product_id", ErrInvalidItems, i)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidItems, i)
		}
		if item.UnitAmount <= 0 {
			return nil, fmt.Errorf("%w: item %d unit_amount must be positive", ErrInvalidItems, i)
		}
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}

	products, err := s.productRepo.FindMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get many products by item ids: %w", err)
	}

	byID := make(map[uint]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	c := cart.New()
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, item.ProductID)
		}
		c.AddItem(*product, item.Quantity)
	}
	return c, nil
}

func snapshotOf(c *cart.Cart) []SnapshotLine {
	items := c.Items()
	lines := make([]SnapshotLine, len(items))
	for i, it := range items {
		lines[i] = SnapshotLine{
			ProductID: it.Product.ID,
			Quantity:  it.Quantity,
			Price:     it.Product.Price,
		}
	}
	return lines
}

func toCheckoutLineItems(lines []cart.LineItem) []client.CheckoutLineItem {
	out := make([]client.CheckoutLineItem, len(lines))
	for i, l := range lines {
		out[i] = client.CheckoutLineItem{
			Name:       l.Name,
			UnitAmount: l.UnitAmount,
			Quantity:   l.Quantity,
		}
	}
	return out
}
