package repository

import (
	"context"
	"sort"
	"storefront/internal/model"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	ExistsBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (bool, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error)
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	GetOrderItems(ctx context.Context, orderID uint) ([]*model.OrderItem, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
	ListAll(ctx context.Context, limit int) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) error
	SalesSummary(ctx context.Context) (*model.SalesSummary, error)
	TopProducts(ctx context.Context, limit int) ([]*model.TopProduct, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepoImpl) ExistsBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.Order{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error

	return count > 0, err
}

func (r *orderRepoImpl) FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("session_id = ?", sessionID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) GetOrderItems(ctx context.Context, orderID uint) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) ListAll(ctx context.Context, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Commission").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// SalesSummary covers every order that was not cancelled.
func (r *orderRepoImpl) SalesSummary(ctx context.Context) (*model.SalesSummary, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Select("total_amount", "user_id").
		Where("status <> ?", model.OrderStatusCancelled).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	customers := make(map[string]struct{})
	for _, o := range orders {
		revenue = revenue.Add(o.TotalAmount)
		customers[o.UserID] = struct{}{}
	}

	summary := &model.SalesSummary{
		TotalRevenue:      revenue,
		TotalOrders:       int64(len(orders)),
		TotalCustomers:    int64(len(customers)),
		AverageOrderValue: decimal.Zero,
	}
	if len(orders) > 0 {
		summary.AverageOrderValue = revenue.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
	}

	return summary, nil
}

func (r *orderRepoImpl) TopProducts(ctx context.Context, limit int) ([]*model.TopProduct, error) {
	var rows []struct {
		ProductID uint
		Name      string
		Quantity  int64
		Price     decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id, products.name, order_items.quantity, order_items.price").
		Joins("JOIN products ON products.id = order_items.product_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", model.OrderStatusCancelled).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byProduct := make(map[uint]*model.TopProduct)
	for _, row := range rows {
		tp, ok := byProduct[row.ProductID]
		if !ok {
			tp = &model.TopProduct{ProductID: row.ProductID, Name: row.Name, TotalRevenue: decimal.Zero}
			byProduct[row.ProductID] = tp
		}
		tp.TotalQuantity += row.Quantity
		tp.TotalRevenue = tp.TotalRevenue.Add(row.Price.Mul(decimal.NewFromInt(row.Quantity)))
	}

	top := make([]*model.TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		top = append(top, tp)
	}
	sort.Slice(top, func(i, j int) bool {
		if c := top[i].TotalRevenue.Cmp(top[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return top[i].ProductID < top[j].ProductID
	})

	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}
