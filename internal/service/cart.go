package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/storage"
)

type CartService interface {
	Get(ctx context.Context, userID int64) ([]models.CartItem, error)
	Save(ctx context.Context, userID int64, items []models.CartItem) ([]models.CartItem, error)
}

type cartService struct {
	log      *slog.Logger
	cartRepo storage.CartStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage) CartService {
	return &cartService{log: log, cartRepo: cartRepo}
}

func (s *cartService) Get(ctx context.Context, userID int64) ([]models.CartItem, error) {
	const op = "service.CartService.Get"

	items, err := s.cartRepo.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Save replaces the whole cart.
func (s *cartService) Save(ctx context.Context, userID int64, items []models.CartItem) ([]models.CartItem, error) {
	const op = "service.CartService.Save"

	sanitized := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if it.Qty <= 0 {
			it.Qty = 1
		}
		sanitized = append(sanitized, models.CartItem{
			Product: it.Product,
			Name:    it.Name,
			Price:   it.Price,
			Qty:     it.Qty,
		})
	}

	saved, err := s.cartRepo.SaveCart(ctx, userID, sanitized)
	if err != nil {
		s.log.Error("failed to save cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}
