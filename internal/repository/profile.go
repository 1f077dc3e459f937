package repository

import (
	"context"
	"storefront/internal/model"

	"gorm.io/gorm"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, userID string) (*model.Profile, error)
	FindByCouponCode(ctx context.Context, code string) (*model.Profile, error)
	CouponCodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, profile *model.Profile) error
	ListWithOrders(ctx context.Context) ([]*model.Profile, error)
}

type profileRepoImpl struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepoImpl{
		db: db,
	}
}

func (r *profileRepoImpl) FindByID(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *profileRepoImpl) FindByCouponCode(ctx context.Context, code string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("coupon_code = ?", code).
		First(&profile).Error
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *profileRepoImpl) CouponCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("coupon_code = ?", code).
		Count(&count).Error

	return count > 0, err
}

func (r *profileRepoImpl) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepoImpl) ListWithOrders(ctx context.Context) ([]*model.Profile, error) {
	var profiles []*model.Profile
	err := r.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Order("first_name ASC, id ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}

	return profiles, nil
}
