// Package webhook authenticates provider webhook deliveries.
//
// Signature parsing and the timestamp tolerance come from the stripe-go
// webhook package; several v1 values are accepted while a secret is rolled.
package webhook

import (
	"encoding/json"
	"fmt"
	"storefront/internal/model"
	"time"

	stripewebhook "github.com/stripe/stripe-go/v76/webhook"
)

const SignatureHeader = "Stripe-Signature"

var (
	ErrMissingSignature = stripewebhook.ErrNotSigned
	ErrInvalidHeader    = stripewebhook.ErrInvalidHeader
	ErrNoValidSignature = stripewebhook.ErrNoValidSignature
	ErrTooOld           = stripewebhook.ErrTooOld
)

type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    secret,
		tolerance: tolerance,
	}
}

// Verify checks header against payload and decodes the event.
func (v *Verifier) Verify(payload []byte, header string) (*model.StripeEvent, error) {
	if header == "" {
		return nil, ErrMissingSignature
	}

	event, err := stripewebhook.ConstructEventWithOptions(payload, header, v.secret, stripewebhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("webhook payload missing id or type")
	}

	out := &model.StripeEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: event.Created,
	}
	if event.Data != nil {
		out.Data.Object = json.RawMessage(event.Data.Raw)
	}
	return out, nil
}

// Header builds a signature header for payload at t. Used by tests and local tooling.
func (v *Verifier) Header(payload []byte, t time.Time) string {
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    v.secret,
		Timestamp: t,
	})
	return signed.Header
}
