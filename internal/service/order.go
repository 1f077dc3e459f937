package service

import (
	"context"
	"errors"
	"fmt"
	"storefront/internal/model"
	"storefront/internal/repository"

	"gorm.io/gorm"
)

const (
	adminOrderLimit = 200
	topProductLimit = 5
)

type Analytics struct {
	Sales       *model.SalesSummary      `json:"sales"`
	TopProducts []*model.TopProduct      `json:"top_products"`
	Commissions *model.CommissionSummary `json:"commissions"`
}

type OrderService interface {
	ListForUser(ctx context.Context, userID string) ([]*model.Order, error)
	ListAll(ctx context.Context) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) error
	MarkCommissionPaid(ctx context.Context, orderID uint) error
	ListCommissionsForUser(ctx context.Context, userID string) ([]*model.Commission, error)
	Analytics(ctx context.Context) (*Analytics, error)
}

type orderServiceImpl struct {
	orderRepo      repository.OrderRepository
	commissionRepo repository.CommissionRepository
}

func NewOrderService(orderRepo repository.OrderRepository, commissionRepo repository.CommissionRepository) OrderService {
	return &orderServiceImpl{
		orderRepo:      orderRepo,
		commissionRepo: commissionRepo,
	}
}

func (s *orderServiceImpl) ListForUser(ctx context.Context, userID string) ([]*model.Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user: %w", err)
	}
	return orders, nil
}

func (s *orderServiceImpl) ListAll(ctx context.Context) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx, adminOrderLimit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *orderServiceImpl) UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	err := s.orderRepo.UpdateStatus(ctx, orderID, status)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update order %d status: %w", orderID, err)
	}
	return nil
}

// MarkCommissionPaid settles the commission earned by orderID.
func (s *orderServiceImpl) MarkCommissionPaid(ctx context.Context, orderID uint) error {
	commission, err := s.commissionRepo.FindByOrderID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find commission for order %d: %w", orderID, err)
	}

	err = s.commissionRepo.MarkPaid(ctx, commission.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("mark commission %d paid: %w", commission.ID, err)
	}
	return nil
}

func (s *orderServiceImpl) ListCommissionsForUser(ctx context.Context, userID string) ([]*model.Commission, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	commissions, err := s.commissionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list commissions for user: %w", err)
	}
	return commissions, nil
}

func (s *orderServiceImpl) Analytics(ctx context.Context) (*Analytics, error) {
	sales, err := s.orderRepo.SalesSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}

	top, err := s.orderRepo.TopProducts(ctx, topProductLimit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}

	commissions, err := s.commissionRepo.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("commission summary: %w", err)
	}

	return &Analytics{
		Sales:       sales,
		TopProducts: top,
		Commissions: commissions,
	}, nil
}
