package repository

import (
	"context"
	"storefront/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
	Grant(ctx context.Context, userID, role string) error
}

type roleRepoImpl struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepoImpl{
		db: db,
	}
}

func (r *roleRepoImpl) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error

	return count > 0, err
}

func (r *roleRepoImpl) Grant(ctx context.Context, userID, role string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserRole{UserID: userID, Role: role}).
		Error
}
