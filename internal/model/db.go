package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

const RoleAdmin = "admin"

// StringList is stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type %T for StringList", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

type Product struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"size:255;not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	Price             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock             int             `gorm:"not null;default:0" json:"stock"`
	Category          string          `gorm:"size:64;index" json:"category"`
	Features          StringList      `gorm:"type:text" json:"features"`
	ImageURL          string          `gorm:"size:512" json:"image_url,omitempty"`
	AltImage          string          `gorm:"size:512" json:"alt_image,omitempty"`
	ProviderProductID string          `gorm:"size:64;index" json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type Profile struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"` // auth user id
	Email       string    `gorm:"size:255;index" json:"email"`
	FirstName   string    `gorm:"size:128" json:"first_name"`
	LastName    string    `gorm:"size:128" json:"last_name"`
	PhoneNumber string    `gorm:"size:32" json:"phone_number,omitempty"`
	CouponCode  string    `gorm:"size:16;uniqueIndex;not null" json:"coupon_code"`
	Orders      []Order   `gorm:"foreignKey:UserID;references:ID" json:"orders,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UserRole struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Role      string `gorm:"primaryKey;size:32"`
	CreatedAt time.Time
}

type Coupon struct {
	Code         string          `gorm:"primaryKey;size:16" json:"code"`
	OwnerID      string          `gorm:"size:64;index;not null" json:"owner_id"`
	DiscountRate decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"discount_rate"`
	Used         bool            `gorm:"not null;default:false" json:"used"`
	RedeemedBy   *string         `gorm:"size:64" json:"redeemed_by,omitempty"`
	RedeemedAt   *time.Time      `json:"redeemed_at,omitempty"`
	OrderID      *uint           `json:"order_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SessionID       string          `gorm:"size:255;uniqueIndex;not null" json:"session_id"` // provider checkout session id
	PaymentIntentID string          `gorm:"size:255" json:"payment_intent_id,omitempty"`
	UserID          string          `gorm:"size:64;index;not null" json:"user_id"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	DiscountApplied decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_applied"`
	CouponCode      *string         `gorm:"size:16;index" json:"coupon_code"`
	IssuedBy        *string         `gorm:"size:64" json:"issued_by"` // coupon owner, for commissions
	Status          OrderStatus     `gorm:"size:32;index;not null" json:"status"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Commission      *Commission     `gorm:"foreignKey:OrderID" json:"commission,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"order_id"`
	ProductID uint            `gorm:"index;not null" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"` // unit price at time of sale
	CreatedAt time.Time       `json:"created_at"`
}

type Commission struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"uniqueIndex;not null" json:"order_id"`
	UserID     string          `gorm:"size:64;index;not null" json:"user_id"` // coupon owner
	CouponCode string          `gorm:"size:16;not null" json:"coupon_code"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"commission_amount"`
	Paid       bool            `gorm:"not null;default:false" json:"paid"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

// All lists every table for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Product{},
		&Profile{},
		&UserRole{},
		&Coupon{},
		&Order{},
		&OrderItem{},
		&Commission{},
		&WebhookEvent{},
	}
}
