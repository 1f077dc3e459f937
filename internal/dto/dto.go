package dto

import (
	"github.com/shopspring/decimal"
)

type ProductData struct {
	Name string `json:"name"`
}

type PriceData struct {
	ProductData ProductData `json:"product_data"`
	UnitAmount  int64       `json:"unit_amount"`
}

type CheckoutItem struct {
	ProductID uint      `json:"product_id"`
	PriceData PriceData `json:"price_data"`
	Quantity  int       `json:"quantity"`
}

type CheckoutRequest struct {
	Items          []*CheckoutItem  `json:"items"`
	CouponCode     string           `json:"couponCode,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discountAmount,omitempty"`
}

type CheckoutResponse struct {
	SessionURL string `json:"sessionUrl"`
}

type ValidateCouponRequest struct {
	Code string `json:"code"`
}

type CreateProfileRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Features    []string        `json:"features"`
	ImageURL    string          `json:"image_url"`
	AltImage    string          `json:"alt_image"`
}

type SyncResponse struct {
	Success bool `json:"success"`
	Synced  int  `json:"synced"`
	Failed  int  `json:"failed"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
