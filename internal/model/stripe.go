package model

import "encoding/json"

const (
	EventCheckoutSessionCompleted           = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
)

type StripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    StripeEventData `json:"data"`
}

type StripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type StripeTotalDetails struct {
	AmountDiscount int64 `json:"amount_discount"`
	AmountTax      int64 `json:"amount_tax"`
}

type StripeCheckoutSession struct {
	ID                string             `json:"id"`
	URL               string             `json:"url"`
	Status            string             `json:"status"`
	PaymentStatus     string             `json:"payment_status"`
	AmountSubtotal    int64              `json:"amount_subtotal"`
	AmountTotal       int64              `json:"amount_total"`
	Currency          string             `json:"currency"`
	ClientReferenceID string             `json:"client_reference_id"`
	PaymentIntent     string             `json:"payment_intent"`
	Metadata          map[string]string  `json:"metadata"`
	TotalDetails      StripeTotalDetails `json:"total_details"`
}

func (s *StripeCheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
}

type StripeProduct struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Active      bool              `json:"active"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata"`
}

type StripePrice struct {
	ID         string `json:"id"`
	Product    string `json:"product"`
	Active     bool   `json:"active"`
	Currency   string `json:"currency"`
	UnitAmount int64  `json:"unit_amount"`
}

type StripeCoupon struct {
	ID         string  `json:"id"`
	PercentOff float64 `json:"percent_off"`
	Duration   string  `json:"duration"`
	Name       string  `json:"name"`
}
