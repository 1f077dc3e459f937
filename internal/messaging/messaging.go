package messaging

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const EventOrderFulfilled = "order.fulfilled"

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
	Close() error
}

// OrderFulfilled is emitted once per order after the fulfillment transaction commits.
type OrderFulfilled struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	OrderID    uint            `json:"order_id"`
	SessionID  string          `json:"session_id"`
	UserID     string          `json:"user_id"`
	Total      decimal.Decimal `json:"total_amount"`
	Discount   decimal.Decimal `json:"discount_applied"`
	CouponCode string          `json:"coupon_code,omitempty"`
	Status     string          `json:"status"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishEvent(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error { return nil }
