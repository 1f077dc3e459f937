package webhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = []byte(`{"id":"evt_1","type":"checkout.session.completed","created":1700000000,"data":{"object":{"id":"cs_1"}}}`)

func TestVerify_Valid(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)

	event, err := v.Verify(payload, v.Header(payload, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "checkout.session.completed", event.Type)
	assert.JSONEq(t, `{"id":"cs_1"}`, string(event.Data.Object))
}

func TestVerify_MissingHeader(t *testing.T) {
	v := NewVerifier("whsec_test", time.Minute)

	_, err := v.Verify(payload, "")
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerify_WrongSecret(t *testing.T) {
	signer := NewVerifier("other_secret", 5*time.Minute)
	v := NewVerifier("whsec_test", 5*time.Minute)

	_, err := v.Verify(payload, signer.Header(payload, time.Now()))
	assert.ErrorIs(t, err, ErrNoValidSignature)
}

func TestVerify_TamperedBody(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	header := v.Header(payload, time.Now())

	_, err := v.Verify([]byte(`{"id":"evt_2","type":"checkout.session.completed"}`), header)
	assert.ErrorIs(t, err, ErrNoValidSignature)
}

func TestVerify_OutsideTolerance(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	header := v.Header(payload, time.Now().Add(-10*time.Minute))

	_, err := v.Verify(payload, header)
	assert.ErrorIs(t, err, ErrTooOld)
}

func TestVerify_MalformedHeader(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)

	_, err := v.Verify(payload, "garbage")
	assert.Error(t, err)
}

func TestVerify_MultipleSignaturesOneValid(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	header := v.Header(payload, time.Now())

	_, err := v.Verify(payload, fmt.Sprintf("%s,v1=%064x", header, 0))
	assert.NoError(t, err)
}
