package repository

import (
	"context"
	"storefront/internal/model"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, commission *model.Commission) error
	FindByOrderID(ctx context.Context, orderID uint) (*model.Commission, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Commission, error)
	MarkPaid(ctx context.Context, commissionID uint) error
	Summary(ctx context.Context) (*model.CommissionSummary, error)
}

type commissionRepoImpl struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepoImpl{
		db: db,
	}
}

func (r *commissionRepoImpl) Create(ctx context.Context, tx *gorm.DB, commission *model.Commission) error {
	return tx.WithContext(ctx).Create(commission).Error
}

func (r *commissionRepoImpl) FindByOrderID(ctx context.Context, orderID uint) (*model.Commission, error) {
	var commission model.Commission
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&commission).Error
	if err != nil {
		return nil, err
	}

	return &commission, nil
}

func (r *commissionRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Commission, error) {
	var commissions []*model.Commission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}

	return commissions, nil
}

func (r *commissionRepoImpl) MarkPaid(ctx context.Context, commissionID uint) error {
	result := r.db.WithContext(ctx).
		Model(&model.Commission{}).
		Where("id = ?", commissionID).
		Updates(map[string]interface{}{
			"paid":    true,
			"paid_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *commissionRepoImpl) Summary(ctx context.Context) (*model.CommissionSummary, error) {
	var commissions []*model.Commission
	err := r.db.WithContext(ctx).
		Select("amount", "paid").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}

	total, paid := decimal.Zero, decimal.Zero
	for _, c := range commissions {
		total = total.Add(c.Amount)
		if c.Paid {
			paid = paid.Add(c.Amount)
		}
	}

	return &model.CommissionSummary{
		Total:  total,
		Paid:   paid,
		Unpaid: total.Sub(paid),
	}, nil
}
