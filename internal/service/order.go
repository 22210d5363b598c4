package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/lib/clock"
	"github.com/linemk/gogol-pizza/internal/realtime"
	"github.com/linemk/gogol-pizza/internal/storage"
	"github.com/shopspring/decimal"
)

type OrderService interface {
	Create(ctx context.Context, p models.Principal, in CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, p models.Principal, id string) (*models.Order, error)
	List(ctx context.Context, p models.Principal) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, p models.Principal, id string, status models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, p models.Principal, id string) error
	// ListPending returns orders still waiting for a callback after olderThan.
	ListPending(ctx context.Context, olderThan time.Duration) ([]*models.Order, error)
}

// CreateOrderInput is taken as the client sent it; the total is not recomputed.
type CreateOrderInput struct {
	Items            []models.OrderItem
	Total            decimal.Decimal
	DeliveryLocation *models.DeliveryLocation
}

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	notifier  Notifier
	clock     clock.Clock
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage, notifier Notifier, clk clock.Clock) OrderService {
	return &orderService{
		log:       log,
		orderRepo: orderRepo,
		notifier:  notifier,
		clock:     clk,
	}
}

func (s *orderService) Create(ctx context.Context, p models.Principal, in CreateOrderInput) (*models.Order, error) {
	const op = "service.OrderService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", p.UserID))

	order, err := s.orderRepo.CreateOrder(ctx, &models.Order{
		ID:               uuid.New().String(),
		UserID:           p.UserID,
		Items:            in.Items,
		Total:            in.Total,
		Status:           models.StatusReceived,
		DeliveryLocation: in.DeliveryLocation,
	})
	if err != nil {
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	logger.Info("order created", slog.String("orderID", order.ID), slog.String("total", order.Total.String()))
	return order, nil
}

func (s *orderService) Get(ctx context.Context, p models.Principal, id string) (*models.Order, error) {
	const op = "service.OrderService.Get"

	order, err := loadAuthorized(ctx, s.orderRepo, p, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, p models.Principal) ([]*models.Order, error) {
	const op = "service.OrderService.List"

	var filter storage.OrderFilter
	switch p.Role {
	case models.RoleAdmin:
	case models.RoleSeller:
		filter.SellerID = &p.UserID
	default:
		filter.UserID = &p.UserID
	}

	orders, err := s.orderRepo.ListOrders(ctx, filter)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, p models.Principal, id string, status models.OrderStatus) (*models.Order, error) {
	const op = "service.OrderService.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", id), slog.String("status", string(status)))

	if !p.Is(models.RoleSeller, models.RoleAdmin) {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if _, err := loadAuthorized(ctx, s.orderRepo, p, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order, err := s.orderRepo.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		logger.Error("failed to update status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.notifier.Notify(ctx, order.ID, realtime.OrderUpdated(order.ID, order.Status), realtime.ScopeOrder)
	logger.Info("order status updated")
	return order, nil
}

func (s *orderService) Delete(ctx context.Context, p models.Principal, id string) error {
	const op = "service.OrderService.Delete"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", id))

	if _, err := loadAuthorized(ctx, s.orderRepo, p, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.orderRepo.DeleteOrder(ctx, id); err != nil {
		logger.Error("failed to delete order", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.notifier.Notify(ctx, id, realtime.OrderDeleted(id), realtime.ScopeGlobal)
	logger.Info("order deleted", slog.Int64("by", p.UserID))
	return nil
}

func (s *orderService) ListPending(ctx context.Context, olderThan time.Duration) ([]*models.Order, error) {
	const op = "service.OrderService.ListPending"

	orders, err := s.orderRepo.ListPendingOrders(ctx, s.clock.Now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// loadAuthorized fetches the order and applies the access policy: admins act on any order,
// sellers on orders holding one of their products, clients on their own orders.
func loadAuthorized(ctx context.Context, repo storage.OrderStorage, p models.Principal, id string) (*models.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidOrderID
	}
	order, err := repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch p.Role {
	case models.RoleAdmin:
		return order, nil
	case models.RoleSeller:
		ok, err := repo.OrderHasSellerProduct(ctx, id, p.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to check order ownership: %w", err)
		}
		if ok {
			return order, nil
		}
	case models.RoleClient:
		if order.UserID == p.UserID {
			return order, nil
		}
	}
	return nil, ErrForbidden
}
