package service

import (
	"context"

	"github.com/declared-as-ala/backend/internal/model"
	"github.com/declared-as-ala/backend/internal/repository"
)

// OrderAdminService backs the back-office order views.
type OrderAdminService interface {
	ListOrders(ctx context.Context, filter repository.OrderListFilter) ([]*model.Order, int64, error)
	MarkDelivered(ctx context.Context, orderID string) error
}

type orderAdminServiceImpl struct {
	orderRepo repository.OrderRepository
}

func NewOrderAdminService(orderRepo repository.OrderRepository) OrderAdminService {
	return &orderAdminServiceImpl{
		orderRepo: orderRepo,
	}
}

func (s *orderAdminServiceImpl) ListOrders(ctx context.Context, filter repository.OrderListFilter) ([]*model.Order, int64, error) {
	return s.orderRepo.List(ctx, filter)
}

func (s *orderAdminServiceImpl) MarkDelivered(ctx context.Context, orderID string) error {
	return s.orderRepo.MarkDelivered(ctx, orderID)
}
