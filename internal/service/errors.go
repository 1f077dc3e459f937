package service

import "errors"

var (
	ErrInvalidItems     = errors.New("invalid items")
	ErrProductNotFound  = errors.New("product not found")
	ErrCouponInvalid    = errors.New("coupon invalid")
	ErrUnauthenticated  = errors.New("user not authenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrProfileExists    = errors.New("profile already exists")
)

// CouponRejectedError carries the validator message back to the caller.
type CouponRejectedError struct {
	Message string
}

func (e *CouponRejectedError) Error() string {
	return "coupon rejected: " + e.Message
}

func (e *CouponRejectedError) Unwrap() error {
	return ErrCouponInvalid
}
