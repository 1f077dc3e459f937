package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"storefront/internal/cart"
	"storefront/internal/client"
	"storefront/internal/messaging"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/webhook"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FulfillmentOutcome string

const (
	OutcomeFulfilled FulfillmentOutcome = "fulfilled"
	OutcomeDuplicate FulfillmentOutcome = "duplicate"
	OutcomeIgnored   FulfillmentOutcome = "ignored"
	OutcomeUnpaid    FulfillmentOutcome = "unpaid"
)

type FulfillmentResult struct {
	Outcome   FulfillmentOutcome
	EventID   string
	SessionID string
	OrderID   uint
}

type FulfillmentService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*FulfillmentResult, error)
}

// PendingOrder is a paid checkout session reconciled against the provider.
type PendingOrder struct {
	SessionID       string
	PaymentIntentID string
	UserID          string
	Total           decimal.Decimal
	Discount        decimal.Decimal
	CouponCode      string
	CouponOwnerID   string
	DiscountRate    decimal.Decimal
	Lines           []SnapshotLine
}

var errDuplicateSession = errors.New("order already exists for session")

type fulfillmentServiceImpl struct {
	db               *gorm.DB
	verifier         *webhook.Verifier
	stripeClient     client.StripeClient
	publisher        messaging.Publisher
	orderRepo        repository.OrderRepository
	productRepo      repository.ProductRepository
	couponRepo       repository.CouponRepository
	commissionRepo   repository.CommissionRepository
	profileRepo      repository.ProfileRepository
	webhookEventRepo repository.WebhookEventRepository
	singleUse        bool
	couponRate       decimal.Decimal
	log              *slog.Logger
}

func NewFulfillmentService(
	db *gorm.DB,
	verifier *webhook.Verifier,
	stripeClient client.StripeClient,
	publisher messaging.Publisher,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	commissionRepo repository.CommissionRepository,
	profileRepo repository.ProfileRepository,
	webhookEventRepo repository.WebhookEventRepository,
	singleUse bool,
	couponRate decimal.Decimal,
	log *slog.Logger,
) FulfillmentService {
	return &fulfillmentServiceImpl{
		db:               db,
		verifier:         verifier,
		stripeClient:     stripeClient,
		publisher:        publisher,
		orderRepo:        orderRepo,
		productRepo:      productRepo,
		couponRepo:       couponRepo,
		commissionRepo:   commissionRepo,
		profileRepo:      profileRepo,
		webhookEventRepo: webhookEventRepo,
		singleUse:        singleUse,
		couponRate:       couponRate,
		log:              log,
	}
}

func (s *fulfillmentServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (*FulfillmentResult, error) {
	event, err := s.Verify(payload, signature)
	if err != nil {
		return nil, err
	}

	result := &FulfillmentResult{EventID: event.ID}
	log := s.log.With("event_id", event.ID, "event_type", event.Type)

	if !Accepts(event) {
		log.Debug("webhook event ignored")
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	processed, err := s.webhookEventRepo.Exists(ctx, s.db, event.ID)
	if err != nil {
		return nil, fmt.Errorf("check processed event: %w", err)
	}
	if processed {
		log.Info("webhook event already processed")
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	pending, err := s.Reconcile(ctx, event)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		log.Info("checkout session not paid yet")
		result.Outcome = OutcomeUnpaid
		return result, nil
	}
	result.SessionID = pending.SessionID
	log = log.With("session_id", pending.SessionID)

	order, err := s.Persist(ctx, event, pending)
	if errors.Is(err, errDuplicateSession) {
		log.Info("order already fulfilled for session")
		result.Outcome = OutcomeDuplicate
		return result, nil
	}
	if err != nil {
		log.Error("fulfillment failed", "err", err)
		return nil, err
	}

	log.Info("order fulfilled", "order_id", order.ID, "status", order.Status)
	result.Outcome = OutcomeFulfilled
	result.OrderID = order.ID

	s.publishFulfilled(ctx, order)
	return result, nil
}

// Verify authenticates the raw payload; nothing is trusted before it passes.
func (s *fulfillmentServiceImpl) Verify(payload []byte, signature string) (*model.StripeEvent, error) {
	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return event, nil
}

func Accepts(event *model.StripeEvent) bool {
	switch event.Type {
	case model.EventCheckoutSessionCompleted, model.EventCheckoutSessionAsyncPaymentSucceed:
		return true
	}
	return false
}

// Reconcile re-reads the session from the provider instead of trusting the
// event body. It returns nil, nil for a session that is not paid yet.
func (s *fulfillmentServiceImpl) Reconcile(ctx context.Context, event *model.StripeEvent) (*PendingOrder, error) {
	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Object, &ref); err != nil || ref.ID == "" {
		return nil, fmt.Errorf("webhook event %s has no checkout session id", event.ID)
	}

	session, err := s.stripeClient.GetCheckoutSession(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("reconcile session: %w", err)
	}
	if !session.Paid() {
		return nil, nil
	}

	lines, err := DecodeSnapshot(session.Metadata)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", session.ID, err)
	}

	userID := session.ClientReferenceID
	if userID == "" {
		userID = session.Metadata[MetaUserID]
	}
	if userID == "" {
		return nil, fmt.Errorf("session %s has no buyer", session.ID)
	}

	pending := &PendingOrder{
		SessionID:       session.ID,
		PaymentIntentID: session.PaymentIntent,
		UserID:          userID,
		Total:           cart.FromCents(session.AmountTotal),
		Discount:        cart.FromCents(session.TotalDetails.AmountDiscount),
		CouponCode:      NormalizeCouponCode(session.Metadata[MetaCouponCode]),
		CouponOwnerID:   session.Metadata[MetaCouponOwnerID],
		DiscountRate:    s.couponRate,
		Lines:           lines,
	}

	if pending.CouponCode == "" {
		return pending, nil
	}
	if rate, err := decimal.NewFromString(session.Metadata[MetaDiscountRate]); err == nil && rate.IsPositive() {
		pending.DiscountRate = rate
	}
	if pending.CouponOwnerID == "" {
		owner, err := s.profileRepo.FindByCouponCode(ctx, pending.CouponCode)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find coupon owner: %w", err)
		}
		if owner != nil {
			pending.CouponOwnerID = owner.ID
		}
	}
	return pending, nil
}

// Persist writes the order, its items, stock, coupon settlement, commission
// and the processed event in one transaction. It returns errDuplicateSession
// when an order for the session already exists.
func (s *fulfillmentServiceImpl) Persist(ctx context.Context, event *model.StripeEvent, p *PendingOrder) (*model.Order, error) {
	var order *model.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.orderRepo.ExistsBySessionID(ctx, tx, p.SessionID)
		if err != nil {
			return fmt.Errorf("check existing order: %w", err)
		}
		if exists {
			return errDuplicateSession
		}

		status := model.OrderStatusCompleted
		for _, line := range p.Lines {
			ok, err := s.productRepo.DecrementStock(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock for product %d: %w", line.ProductID, err)
			}
			if !ok {
				s.log.Warn("insufficient stock at fulfillment",
					"session_id", p.SessionID, "product_id", line.ProductID, "quantity", line.Quantity)
				status = model.OrderStatusProcessing
			}
		}

		order = &model.Order{
			SessionID:       p.SessionID,
			PaymentIntentID: p.PaymentIntentID,
			UserID:          p.UserID,
			TotalAmount:     p.Total,
			DiscountApplied: p.Discount,
			Status:          status,
		}
		if p.CouponCode != "" {
			order.CouponCode = &p.CouponCode
			if p.CouponOwnerID != "" {
				order.IssuedBy = &p.CouponOwnerID
			}
		}

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateSession
			}
			return fmt.Errorf("store order in db: %w", err)
		}

		items := make([]*model.OrderItem, len(p.Lines))
		for i, line := range p.Lines {
			items[i] = &model.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.Price,
			}
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
			return fmt.Errorf("store order items in db: %w", err)
		}

		if p.CouponCode != "" {
			if err := s.settleCoupon(ctx, tx, order, p); err != nil {
				return err
			}
		}

		if err := s.webhookEventRepo.MarkProcessed(ctx, tx, event.ID, event.Type); err != nil {
			return fmt.Errorf("mark webhook processed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// settleCoupon redeems the coupon for this order. Only the redemption that
// flips the row earns the owner a commission.
func (s *fulfillmentServiceImpl) settleCoupon(ctx context.Context, tx *gorm.DB, order *model.Order, p *PendingOrder) error {
	if p.CouponOwnerID == "" {
		s.log.Warn("coupon has no owner, skipping settlement", "session_id", p.SessionID, "coupon_code", p.CouponCode)
		return nil
	}

	if err := s.couponRepo.EnsureExists(ctx, tx, &model.Coupon{
		Code:         p.CouponCode,
		OwnerID:      p.CouponOwnerID,
		DiscountRate: p.DiscountRate,
	}); err != nil {
		return fmt.Errorf("ensure coupon: %w", err)
	}

	redeemed, err := s.couponRepo.Redeem(ctx, tx, p.CouponCode, p.UserID, order.ID, s.singleUse)
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}
	if !redeemed {
		s.log.Warn("coupon already redeemed, order kept without commission",
			"session_id", p.SessionID, "coupon_code", p.CouponCode, "order_id", order.ID)
		return nil
	}

	if !p.Discount.IsPositive() {
		return nil
	}
	if err := s.commissionRepo.Create(ctx, tx, &model.Commission{
		OrderID:    order.ID,
		UserID:     p.CouponOwnerID,
		CouponCode: p.CouponCode,
		Amount:     p.Discount,
	}); err != nil {
		return fmt.Errorf("store commission: %w", err)
	}
	return nil
}

func (s *fulfillmentServiceImpl) publishFulfilled(ctx context.Context, order *model.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	ev := messaging.OrderFulfilled{
		EventID:    uuid.NewString(),
		Type:       messaging.EventOrderFulfilled,
		OrderID:    order.ID,
		SessionID:  order.SessionID,
		UserID:     order.UserID,
		Total:      order.TotalAmount,
		Discount:   order.DiscountApplied,
		Status:     string(order.Status),
		OccurredAt: time.Now().UTC(),
	}
	if order.CouponCode != nil {
		ev.CouponCode = *order.CouponCode
	}

	if err := s.publisher.PublishEvent(ctx, order.SessionID, ev); err != nil {
		s.log.Warn("publish order fulfilled failed", "order_id", order.ID, "err", err)
	}
}
