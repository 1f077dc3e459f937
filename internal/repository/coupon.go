package repository

import (
	"context"
	"storefront/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	EnsureExists(ctx context.Context, tx *gorm.DB, coupon *model.Coupon) error
	Redeem(ctx context.Context, tx *gorm.DB, code, redeemedBy string, orderID uint, singleUse bool) (bool, error)
}

type couponRepoImpl struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepoImpl{
		db: db,
	}
}

func (r *couponRepoImpl) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}

	return &coupon, nil
}

func (r *couponRepoImpl) EnsureExists(ctx context.Context, tx *gorm.DB, coupon *model.Coupon) error {
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(coupon).
		Error
}

// Redeem marks the coupon used by redeemedBy. With singleUse only a row that
// is still unused is updated, so of two racing redemptions one gets false.
func (r *couponRepoImpl) Redeem(ctx context.Context, tx *gorm.DB, code, redeemedBy string, orderID uint, singleUse bool) (bool, error) {
	now := time.Now()
	q := tx.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("code = ?", code)
	if singleUse {
		q = q.Where("used = ?", false)
	}

	result := q.Updates(map[string]interface{}{
		"used":        true,
		"redeemed_by": redeemedBy,
		"redeemed_at": now,
		"order_id":    orderID,
		"updated_at":  now,
	})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
