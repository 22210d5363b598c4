package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/linemk/gogol-pizza/internal/domain/models"
)

// CartStorage keeps one cart per user as a JSONB column on users.
type CartStorage interface {
	GetCart(ctx context.Context, userID int64) ([]models.CartItem, error)
	SaveCart(ctx context.Context, userID int64, items []models.CartItem) ([]models.CartItem, error)
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, "SELECT cart FROM users WHERE id = $1", userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return decodeCart(raw)
}

func (r *cartRepository) SaveCart(ctx context.Context, userID int64, items []models.CartItem) ([]models.CartItem, error) {
	if items == nil {
		items = []models.CartItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}

	var raw []byte
	err = r.db.QueryRowContext(ctx, "UPDATE users SET cart = $1 WHERE id = $2 RETURNING cart", string(payload), userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, mapWriteError(err)
	}
	return decodeCart(raw)
}

func decodeCart(raw []byte) ([]models.CartItem, error) {
	items := []models.CartItem{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return items, nil
}
