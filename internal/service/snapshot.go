package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Checkout session metadata keys.
const (
	MetaUserID        = "user_id"
	MetaCouponCode    = "coupon_code"
	MetaCouponOwnerID = "coupon_owner_id"
	MetaDiscountRate  = "discount_rate"
	MetaCartParts     = "cart_items_parts"
	metaCartPrefix    = "cart_items_"

	// Provider limits: 50 keys per object, 500 characters per value.
	metaValueLimit = 500
	metaMaxParts   = 40
)

// SnapshotLine is one cart entry as it was priced at checkout.
type SnapshotLine struct {
	ProductID uint            `json:"id"`
	Quantity  int             `json:"q"`
	Price     decimal.Decimal `json:"p"`
}

// EncodeSnapshot writes lines as JSON split across numbered metadata keys.
func EncodeSnapshot(lines []SnapshotLine, metadata map[string]string) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}

	s := string(raw)
	parts := 0
	for len(s) > 0 {
		if parts == metaMaxParts {
			return fmt.Errorf("%w: cart too large for checkout", ErrInvalidItems)
		}
		n := min(metaValueLimit, len(s))
		metadata[metaCartPrefix+strconv.Itoa(parts)] = s[:n]
		s = s[n:]
		parts++
	}
	metadata[MetaCartParts] = strconv.Itoa(parts)
	return nil
}

func DecodeSnapshot(metadata map[string]string) ([]SnapshotLine, error) {
	parts, err := strconv.Atoi(metadata[MetaCartParts])
	if err != nil || parts <= 0 {
		return nil, fmt.Errorf("missing cart snapshot in session metadata")
	}

	var b strings.Builder
	for i := 0; i < parts; i++ {
		chunk, ok := metadata[metaCartPrefix+strconv.Itoa(i)]
		if !ok {
			return nil, fmt.Errorf("cart snapshot part %d missing", i)
		}
		b.WriteString(chunk)
	}

	var lines []SnapshotLine
	if err := json.Unmarshal([]byte(b.String()), &lines); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	for _, l := range lines {
		if l.ProductID == 0 || l.Quantity <= 0 {
			return nil, fmt.Errorf("cart snapshot has invalid line for product %d", l.ProductID)
		}
	}
	return lines, nil
}
