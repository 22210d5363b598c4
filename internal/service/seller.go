package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/lib/clock"
	"github.com/linemk/gogol-pizza/internal/storage"
	"github.com/shopspring/decimal"
)

const (
	analyticsDays    = 30
	topProductsLimit = 10
)

type SellerService interface {
	Analytics(ctx context.Context, sellerID int64) (*models.SellerAnalytics, error)
	Clients(ctx context.Context) ([]*models.User, error)
}

type sellerService struct {
	log           *slog.Logger
	analyticsRepo storage.AnalyticsStorage
	userRepo      storage.UserStorage
	clock         clock.Clock
}

func NewSellerService(log *slog.Logger, analyticsRepo storage.AnalyticsStorage, userRepo storage.UserStorage, clk clock.Clock) SellerService {
	return &sellerService{
		log:           log,
		analyticsRepo: analyticsRepo,
		userRepo:      userRepo,
		clock:         clk,
	}
}

// Analytics covers every order line that references one of the seller's products.
// revenueByDay spans the last 30 UTC days including today, zero-filled.
func (s *sellerService) Analytics(ctx context.Context, sellerID int64) (*models.SellerAnalytics, error) {
	const op = "service.SellerService.Analytics"
	logger := s.log.With(slog.String("op", op), slog.Int64("sellerID", sellerID))

	total, count, err := s.analyticsRepo.SellerTotals(ctx, sellerID)
	if err != nil {
		logger.Error("failed to load totals", slog.Any("error", err))
		return nil, fmt.Errorf("%s: totals: %w", op, err)
	}

	now := s.clock.Now().UTC()
	today := now.Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(analyticsDays - 1))

	byDay, err := s.analyticsRepo.SellerRevenueByDay(ctx, sellerID, from)
	if err != nil {
		logger.Error("failed to load revenue by day", slog.Any("error", err))
		return nil, fmt.Errorf("%s: revenue by day: %w", op, err)
	}
	days := make([]models.DayRevenue, 0, analyticsDays)
	for i := 0; i < analyticsDays; i++ {
		key := from.AddDate(0, 0, i).Format(time.DateOnly)
		revenue, ok := byDay[key]
		if !ok {
			revenue = decimal.Zero
		}
		days = append(days, models.DayRevenue{Date: key, Revenue: revenue})
	}

	top, err := s.analyticsRepo.SellerTopProducts(ctx, sellerID, topProductsLimit)
	if err != nil {
		logger.Error("failed to load top products", slog.Any("error", err))
		return nil, fmt.Errorf("%s: top products: %w", op, err)
	}

	return &models.SellerAnalytics{
		TotalSales:   total,
		OrdersCount:  count,
		RevenueByDay: days,
		TopProducts:  top,
	}, nil
}

func (s *sellerService) Clients(ctx context.Context) ([]*models.User, error) {
	const op = "service.SellerService.Clients"

	clients, err := s.userRepo.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return clients, nil
}
