package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/shopspring/decimal"
)

// AnalyticsStorage aggregates the order lines that reference one seller's products.
type AnalyticsStorage interface {
	SellerTotals(ctx context.Context, sellerID int64) (decimal.Decimal, int, error)
	SellerRevenueByDay(ctx context.Context, sellerID int64, from time.Time) (map[string]decimal.Decimal, error)
	SellerTopProducts(ctx context.Context, sellerID int64, limit int) ([]models.TopProduct, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsStorage {
	return &analyticsRepository{db: db}
}

const sellerLines = `WITH lines AS (
	SELECT o.id AS order_id, o.created_at, p.id AS product_id, p.name AS product_name,
	       (it->>'qty')::int AS qty, (it->>'price')::numeric AS price
	FROM orders o
	CROSS JOIN LATERAL jsonb_array_elements(o.items) AS it
	JOIN products p ON p.id = (it->>'product')::bigint
	WHERE p.seller_id = $1
) `

func (r *analyticsRepository) SellerTotals(ctx context.Context, sellerID int64) (decimal.Decimal, int, error) {
	var (
		total decimal.Decimal
		count int
	)
	err := r.db.QueryRowContext(ctx, sellerLines+
		`SELECT COALESCE(SUM(price * qty), 0), COUNT(DISTINCT order_id) FROM lines`, sellerID,
	).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return total, count, nil
}

// SellerRevenueByDay keys revenue by UTC calendar day (YYYY-MM-DD) for orders created at or after from.
func (r *analyticsRepository) SellerRevenueByDay(ctx context.Context, sellerID int64, from time.Time) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, sellerLines+`
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, SUM(price * qty)
		FROM lines
		WHERE created_at >= $2
		GROUP BY day
		ORDER BY day`, sellerID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			day     string
			revenue decimal.Decimal
		)
		if err := rows.Scan(&day, &revenue); err != nil {
			return nil, err
		}
		byDay[day] = revenue
	}
	return byDay, rows.Err()
}

func (r *analyticsRepository) SellerTopProducts(ctx context.Context, sellerID int64, limit int) ([]models.TopProduct, error) {
	rows, err := r.db.QueryContext(ctx, sellerLines+`
		SELECT product_id, MAX(product_name), SUM(qty), SUM(price * qty) AS revenue
		FROM lines
		GROUP BY product_id
		ORDER BY revenue DESC
		LIMIT $2`, sellerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	top := []models.TopProduct{}
	for rows.Next() {
		var p models.TopProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Qty, &p.Revenue); err != nil {
			return nil, err
		}
		top = append(top, p)
	}
	return top, rows.Err()
}
