package service

import (
	"context"
	"errors"
	"fmt"
	"storefront/internal/repository"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	MsgCouponUnauthenticated = "User not authenticated"
	MsgCouponInvalid         = "Invalid coupon code"
	MsgCouponOwn             = "You cannot use your own coupon"
	MsgCouponUsed            = "This coupon has already been used"
	MsgCouponApplied         = "Coupon applied successfully"
)

type CouponResult struct {
	Valid        bool            `json:"valid"`
	DiscountRate decimal.Decimal `json:"discountAmount"`
	Code         string          `json:"code,omitempty"`
	OwnerID      string          `json:"couponOwnerId,omitempty"`
	Message      string          `json:"message"`
}

type CouponService interface {
	Validate(ctx context.Context, code, userID string) (*CouponResult, error)
}

type couponServiceImpl struct {
	profileRepo repository.ProfileRepository
	couponRepo  repository.CouponRepository
	rate        decimal.Decimal
	singleUse   bool
}

func NewCouponService(
	profileRepo repository.ProfileRepository,
	couponRepo repository.CouponRepository,
	rate decimal.Decimal,
	singleUse bool,
) CouponService {
	return &couponServiceImpl{
		profileRepo: profileRepo,
		couponRepo:  couponRepo,
		rate:        rate,
		singleUse:   singleUse,
	}
}

// Validate has no side effects. A rejected coupon is a result, not an error;
// the error return is reserved for store failures.
func (s *couponServiceImpl) Validate(ctx context.Context, code, userID string) (*CouponResult, error) {
	if userID == "" {
		return rejected(MsgCouponUnauthenticated), nil
	}

	code = NormalizeCouponCode(code)
	if code == "" {
		return rejected(MsgCouponInvalid), nil
	}

	owner, err := s.profileRepo.FindByCouponCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rejected(MsgCouponInvalid), nil
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon owner: %w", err)
	}

	if owner.ID == userID {
		return rejected(MsgCouponOwn), nil
	}

	if s.singleUse {
		coupon, err := s.couponRepo.FindByCode(ctx, code)
		switch {
		case err == nil && coupon.Used:
			return rejected(MsgCouponUsed), nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("find coupon: %w", err)
		}
	}

	return &CouponResult{
		Valid:        true,
		DiscountRate: s.rate,
		Code:         code,
		OwnerID:      owner.ID,
		Message:      MsgCouponApplied,
	}, nil
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func rejected(message string) *CouponResult {
	return &CouponResult{Valid: false, DiscountRate: decimal.Zero, Message: message}
}
