package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront/internal/messaging"
	"storefront/internal/model"
	"storefront/internal/webhook"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

type fulfillmentFixture struct {
	repos     *repos
	stripe    *MockStripeClient
	publisher *MockPublisher
	verifier  *webhook.Verifier
	svc       FulfillmentService
}

func newFulfillmentFixture(t *testing.T, singleUse bool) *fulfillmentFixture {
	r := newRepos(t)
	stripe := NewMockStripeClient()
	pub := &MockPublisher{}
	verifier := webhook.NewVerifier(testWebhookSecret, 5*time.Minute)

	return &fulfillmentFixture{
		repos:     r,
		stripe:    stripe,
		publisher: pub,
		verifier:  verifier,
		svc: NewFulfillmentService(
			r.db, verifier, stripe, pub,
			r.orders, r.products, r.coupons, r.commissions, r.profiles, r.events,
			singleUse, tenPercent, discardLogger(),
		),
	}
}

// paidSession registers a paid session for lines with the given totals in cents.
func (f *fulfillmentFixture) paidSession(t *testing.T, id string, lines []SnapshotLine, total, discount int64, couponCode, owner string) {
	t.Helper()
	metadata := map[string]string{MetaUserID: "buyer"}
	require.NoError(t, EncodeSnapshot(lines, metadata))
	if couponCode != "" {
		metadata[MetaCouponCode] = couponCode
		metadata[MetaCouponOwnerID] = owner
		metadata[MetaDiscountRate] = "0.1"
	}

	f.stripe.Sessions[id] = &model.StripeCheckoutSession{
		ID:                id,
		Status:            "complete",
		PaymentStatus:     "paid",
		AmountSubtotal:    total + discount,
		AmountTotal:       total,
		Currency:          "usd",
		ClientReferenceID: "buyer",
		PaymentIntent:     "pi_" + id,
		Metadata:          metadata,
		TotalDetails:      model.StripeTotalDetails{AmountDiscount: discount},
	}
}

func (f *fulfillmentFixture) event(t *testing.T, eventID, eventType, sessionID string) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      eventID,
		"type":    eventType,
		"created": time.Now().Unix(),
		"data":    map[string]any{"object": map[string]any{"id": sessionID, "object": "checkout.session"}},
	})
	require.NoError(t, err)
	return payload, f.verifier.Header(payload, time.Now())
}

func (f *fulfillmentFixture) deliver(t *testing.T, eventID, sessionID string) (*FulfillmentResult, error) {
	payload, sig := f.event(t, eventID, model.EventCheckoutSessionCompleted, sessionID)
	return f.svc.HandleWebhook(context.Background(), payload, sig)
}

func TestHandleWebhook_FulfillsOrderWithCoupon(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	ctx := context.Background()
	a := f.repos.seedProduct(t, "A", "25.00", 10)
	b := f.repos.seedProduct(t, "B", "12.50", 10)
	f.repos.seedProfile(t, "owner", "JODO42")

	f.paidSession(t, "cs_1", []SnapshotLine{
		{ProductID: a.ID, Quantity: 2, Price: a.Price},
		{ProductID: b.ID, Quantity: 4, Price: b.Price},
	}, 9000, 1000, "JODO42", "owner")

	res, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, res.Outcome)
	assert.Equal(t, "cs_1", res.SessionID)

	order, err := f.repos.orders.FindBySessionID(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, order.ID)
	assert.Equal(t, model.OrderStatusCompleted, order.Status)
	assert.Equal(t, "buyer", order.UserID)
	assert.Equal(t, "pi_cs_1", order.PaymentIntentID)
	assert.True(t, decimal.RequireFromString("90.00").Equal(order.TotalAmount))
	assert.True(t, decimal.RequireFromString("10.00").Equal(order.DiscountApplied))
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "JODO42", *order.CouponCode)
	require.NotNil(t, order.IssuedBy)
	assert.Equal(t, "owner", *order.IssuedBy)
	require.Len(t, order.Items, 2)
	assert.True(t, a.Price.Equal(order.Items[0].Price))

	pa, _ := f.repos.products.FindByID(ctx, a.ID)
	pb, _ := f.repos.products.FindByID(ctx, b.ID)
	assert.Equal(t, 8, pa.Stock)
	assert.Equal(t, 6, pb.Stock)

	coupon, err := f.repos.coupons.FindByCode(ctx, "JODO42")
	require.NoError(t, err)
	assert.True(t, coupon.Used)
	require.NotNil(t, coupon.RedeemedBy)
	assert.Equal(t, "buyer", *coupon.RedeemedBy)
	require.NotNil(t, coupon.OrderID)
	assert.Equal(t, order.ID, *coupon.OrderID)

	commission, err := f.repos.commissions.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner", commission.UserID)
	assert.True(t, decimal.RequireFromString("10.00").Equal(commission.Amount))
	assert.False(t, commission.Paid)

	processed, err := f.repos.events.Exists(ctx, f.repos.db, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, f.publisher.Events, 1)
	ev, ok := f.publisher.Events[0].(messaging.OrderFulfilled)
	require.True(t, ok)
	assert.Equal(t, order.ID, ev.OrderID)
	assert.Equal(t, "JODO42", ev.CouponCode)
	assert.Equal(t, messaging.EventOrderFulfilled, ev.Type)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, []string{"cs_1"}, f.publisher.Keys)
}

func TestHandleWebhook_ReplayCreatesOneOrder(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	a := f.repos.seedProduct(t, "A", "100.00", 5)
	f.repos.seedProfile(t, "owner", "JODO42")
	f.paidSession(t, "cs_1", []SnapshotLine{{ProductID: a.ID, Quantity: 1, Price: a.Price}}, 9000, 1000, "JODO42", "owner")

	first, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, first.Outcome)

	for _, id := range []string{"evt_1", "evt_2"} {
		again, err := f.deliver(t, id, "cs_1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, again.Outcome)
	}

	assert.EqualValues(t, 1, f.repos.count(t, &model.Order{}))
	assert.EqualValues(t, 1, f.repos.count(t, &model.OrderItem{}))
	assert.EqualValues(t, 1, f.repos.count(t, &model.Commission{}))
	assert.Len(t, f.publisher.Events, 1)

	p, _ := f.repos.products.FindByID(context.Background(), a.ID)
	assert.Equal(t, 4, p.Stock)
}

func TestHandleWebhook_ProcessedEventSkipsProvider(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	a := f.repos.seedProduct(t, "A", "10.00", 5)
	f.paidSession(t, "cs_1", []SnapshotLine{{ProductID: a.ID, Quantity: 1, Price: a.Price}}, 1000, 0, "", "")

	_, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)

	f.stripe.GetSessionErr = errors.New("provider must not be called")
	res, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.EqualValues(t, 1, f.repos.count(t, &model.WebhookEvent{}))
}

func TestHandleWebhook_MissingRateUsesConfiguredRate(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	a := f.repos.seedProduct(t, "A", "100.00", 5)
	f.repos.seedProfile(t, "owner", "JODO42")
	f.paidSession(t, "cs_1", []SnapshotLine{{ProductID: a.ID, Quantity: 1, Price: a.Price}}, 9000, 1000, "JODO42", "owner")
	delete(f.stripe.Sessions["cs_1"].Metadata, MetaDiscountRate)

	_, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)

	coupon, err := f.repos.coupons.FindByCode(context.Background(), "JODO42")
	require.NoError(t, err)
	assert.True(t, tenPercent.Equal(coupon.DiscountRate), coupon.DiscountRate.String())
}

func TestHandleWebhook_AsyncPaymentSucceeded(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	a := f.repos.seedProduct(t, "A", "10.00", 5)
	f.paidSession(t, "cs_1", []SnapshotLine{{ProductID: a.ID, Quantity: 1, Price: a.Price}}, 1000, 0, "", "")

	payload, sig := f.event(t, "evt_1", model.EventCheckoutSessionAsyncPaymentSucceed, "cs_1")
	res, err := f.svc.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, res.Outcome)

	order, err := f.repos.orders.FindBySessionID(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Nil(t, order.CouponCode)
	assert.Nil(t, order.IssuedBy)
	assert.EqualValues(t, 0, f.repos.count(t, &model.Commission{}))
}

func TestHandleWebhook_InvalidSignatureWritesNothing(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	a := f.repos.seedProduct(t, "A", "10.00", 5)
	f.paidSession(t, "cs_1", []SnapshotLine{{ProductID: a.ID, Quantity: 1, Price: a.Price}}, 1000, 0, "", "")

	payload, _ := f.event(t, "evt_1", model.EventCheckoutSessionCompleted, "cs_1")
	forged := webhook.NewVerifier("other_secret", time.Minute).Header(payload, time.Now())

	for name, sig := range map[string]string{"missing": "", "forged": forged, "garbage": "nonsense"} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.HandleWebhook(context.Background(), payload, sig)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}

	_, validSig := f.event(t, "evt_2", model.EventCheckoutSessionCompleted, "cs_1")
	_, err := f.svc.HandleWebhook(context.Background(), payload, validSig)
	assert.ErrorIs(t, err, ErrInvalidSignature, "signature for another payload")

	assert.EqualValues(t, 0, f.repos.count(t, &model.Order{}))
	assert.EqualValues(t, 0, f.repos.count(t, &model.WebhookEvent{}))
	assert.Empty(t, f.publisher.Events)
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	f := newFulfillmentFixture(t, true)

	payload, sig := f.event(t, "evt_1", "invoice.paid", "in_1")
	res, err := f.svc.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.EqualValues(t, 0, f.repos.count(t, &model.WebhookEvent{}))
}

func TestHandleWebhook_UnpaidSessionAcknowledged(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	a := f.repos.seedProduct(t, "A", "10.00", 5)
	f.paidSession(t, "cs_1", []SnapshotLine{{ProductID: a.ID, Quantity: 1, Price: a.Price}}, 1000, 0, "", "")
	f.stripe.Sessions["cs_1"].PaymentStatus = "unpaid"

	res, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnpaid, res.Outcome)
	assert.EqualValues(t, 0, f.repos.count(t, &model.Order{}))
}

func TestHandleWebhook_InsufficientStock(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	a := f.repos.seedProduct(t, "A", "10.00", 1)
	f.paidSession(t, "cs_1", []SnapshotLine{{ProductID: a.ID, Quantity: 3, Price: a.Price}}, 3000, 0, "", "")

	res, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, res.Outcome)

	order, err := f.repos.orders.FindBySessionID(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, order.Status)

	p, _ := f.repos.products.FindByID(context.Background(), a.ID)
	assert.Equal(t, 0, p.Stock)
}

func TestHandleWebhook_SingleUseCouponSecondOrder(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	a := f.repos.seedProduct(t, "A", "100.00", 10)
	f.repos.seedProfile(t, "owner", "JODO42")
	lines := []SnapshotLine{{ProductID: a.ID, Quantity: 1, Price: a.Price}}
	f.paidSession(t, "cs_1", lines, 9000, 1000, "JODO42", "owner")
	f.paidSession(t, "cs_2", lines, 9000, 1000, "JODO42", "owner")

	_, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)
	res, err := f.deliver(t, "evt_2", "cs_2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, res.Outcome, "the second order is kept")

	assert.EqualValues(t, 2, f.repos.count(t, &model.Order{}))
	assert.EqualValues(t, 1, f.repos.count(t, &model.Commission{}))
}

func TestHandleWebhook_ReusableCoupon(t *testing.T) {
	f := newFulfillmentFixture(t, false)
	a := f.repos.seedProduct(t, "A", "100.00", 10)
	f.repos.seedProfile(t, "owner", "JODO42")
	lines := []SnapshotLine{{ProductID: a.ID, Quantity: 1, Price: a.Price}}
	f.paidSession(t, "cs_1", lines, 9000, 1000, "JODO42", "")
	f.paidSession(t, "cs_2", lines, 9000, 1000, "JODO42", "")

	_, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)
	_, err = f.deliver(t, "evt_2", "cs_2")
	require.NoError(t, err)

	commissions, err := f.repos.commissions.ListByUser(context.Background(), "owner")
	require.NoError(t, err)
	assert.Len(t, commissions, 2, "owner resolved from the coupon code")
}

func TestHandleWebhook_ProviderFailureRollsBack(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	f.stripe.GetSessionErr = errors.New("provider down")

	_, err := f.deliver(t, "evt_1", "cs_1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
	assert.EqualValues(t, 0, f.repos.count(t, &model.WebhookEvent{}))
}

func TestHandleWebhook_MissingSnapshot(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	f.stripe.Sessions["cs_1"] = &model.StripeCheckoutSession{ID: "cs_1", PaymentStatus: "paid", ClientReferenceID: "buyer"}

	_, err := f.deliver(t, "evt_1", "cs_1")
	assert.Error(t, err)
	assert.EqualValues(t, 0, f.repos.count(t, &model.Order{}))
}

func TestHandleWebhook_PublishFailureIsNotFatal(t *testing.T) {
	f := newFulfillmentFixture(t, true)
	a := f.repos.seedProduct(t, "A", "10.00", 5)
	f.paidSession(t, "cs_1", []SnapshotLine{{ProductID: a.ID, Quantity: 1, Price: a.Price}}, 1000, 0, "", "")
	f.publisher.Err = fmt.Errorf("broker unavailable")

	res, err := f.deliver(t, "evt_1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, res.Outcome)
	assert.EqualValues(t, 1, f.repos.count(t, &model.Order{}))
}
