package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/gogol-pizza/internal/domain/models"
)

// OrderFilter scopes ListOrders. With both fields nil every order is returned.
type OrderFilter struct {
	UserID   *int64
	SellerID *int64
}

// OrderStorage is the source of truth for orders and their payment record.
type OrderStorage interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	// SetCheckoutRequestID moves an unpaid order to Pending. A paid order is left alone and yields ErrConflict.
	SetCheckoutRequestID(ctx context.Context, id, checkoutRequestID string) (*models.Order, error)
	// ApplyPaymentResult settles the order that owns res.CheckoutRequestID.
	ApplyPaymentResult(ctx context.Context, res models.PaymentResult) (*models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	OrderHasSellerProduct(ctx context.Context, orderID string, sellerID int64) (bool, error)
	ListPendingOrders(ctx context.Context, updatedBefore time.Time) ([]*models.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const (
	orderColumns = `o.id, o.user_id, o.items, o.total, o.status, o.delivery_location,
		o.checkout_request_id, o.receipt_number, o.is_paid, o.result_code, o.created_at, o.updated_at`
	orderSelect = `SELECT ` + orderColumns + `, u.name, u.email, u.phone
		FROM orders o LEFT JOIN users u ON u.id = o.user_id`
	// mutations return the row without the customer join
	orderReturning = ` RETURNING id, user_id, items, total, status, delivery_location,
		checkout_request_id, receipt_number, is_paid, result_code, created_at, updated_at`
	sellerOwnsLine = `EXISTS (
		SELECT 1 FROM jsonb_array_elements(o.items) AS it
		JOIN products p ON p.id = (it->>'product')::bigint
		WHERE p.seller_id = $%d)`
)

func scanOrder(row scanner, withCustomer bool) (*models.Order, error) {
	var (
		o                              models.Order
		items, location                []byte
		checkoutID, receipt            sql.NullString
		resultCode                     sql.NullInt64
		custName, custEmail, custPhone sql.NullString
	)
	dest := []any{&o.ID, &o.UserID, &items, &o.Total, &o.Status, &location,
		&checkoutID, &receipt, &o.Payment.IsPaid, &resultCode, &o.CreatedAt, &o.UpdatedAt}
	if withCustomer {
		dest = append(dest, &custName, &custEmail, &custPhone)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	o.Items = []models.OrderItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items: %w", err)
		}
	}
	if len(location) > 0 && string(location) != "null" {
		o.DeliveryLocation = &models.DeliveryLocation{}
		if err := json.Unmarshal(location, o.DeliveryLocation); err != nil {
			return nil, fmt.Errorf("failed to decode delivery location: %w", err)
		}
	}
	if checkoutID.Valid {
		o.Payment.CheckoutRequestID = &checkoutID.String
	}
	if receipt.Valid {
		o.Payment.ReceiptNumber = &receipt.String
	}
	if resultCode.Valid {
		code := int(resultCode.Int64)
		o.Payment.ResultCode = &code
	}
	if withCustomer && custEmail.Valid {
		o.Customer = &models.Customer{
			ID:    o.UserID,
			Name:  custName.String,
			Email: custEmail.String,
			Phone: custPhone.String,
		}
	}
	return &o, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows, true)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	var location any
	if order.DeliveryLocation != nil {
		raw, err := json.Marshal(order.DeliveryLocation)
		if err != nil {
			return nil, fmt.Errorf("failed to encode delivery location: %w", err)
		}
		location = string(raw)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (id, user_id, items, total, status, delivery_location)
		VALUES ($1, $2, $3, $4, $5, $6)`+orderReturning,
		order.ID, order.UserID, string(items), order.Total, order.Status, location,
	)
	created, err := scanOrder(row, false)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelect+" WHERE o.id = $1", id)
	o, err := scanOrder(row, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	switch {
	case filter.UserID != nil:
		return r.queryOrders(ctx, orderSelect+" WHERE o.user_id = $1 ORDER BY o.created_at DESC", *filter.UserID)
	case filter.SellerID != nil:
		return r.queryOrders(ctx, orderSelect+" WHERE "+fmt.Sprintf(sellerOwnsLine, 1)+" ORDER BY o.created_at DESC", *filter.SellerID)
	default:
		return r.queryOrders(ctx, orderSelect+" ORDER BY o.created_at DESC")
	}
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1"+orderReturning, id, status)
	o, err := scanOrder(row, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, mapWriteError(err)
	}
	return o, nil
}

func (r *orderRepository) SetCheckoutRequestID(ctx context.Context, id, checkoutRequestID string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET checkout_request_id = $2, result_code = NULL, updated_at = NOW()
		WHERE id = $1 AND NOT is_paid AND (checkout_request_id IS NULL OR result_code IS NOT NULL)`+orderReturning,
		id, checkoutRequestID,
	)
	o, err := scanOrder(row, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// deleted, paid or initiated again in the meantime
			return nil, fmt.Errorf("%w: order %s is gone, paid or awaiting a result", ErrConflict, id)
		}
		return nil, mapWriteError(err)
	}
	return o, nil
}

// ApplyPaymentResult overwrites the outcome fields (last write wins). A result without
// a receipt keeps whatever receipt was recorded before.
func (r *orderRepository) ApplyPaymentResult(ctx context.Context, res models.PaymentResult) (*models.Order, error) {
	var receipt any
	if res.Success() && res.Receipt != nil {
		receipt = *res.Receipt
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET is_paid = $2, result_code = $3, receipt_number = COALESCE($4, receipt_number), updated_at = NOW()
		WHERE checkout_request_id = $1`+orderReturning,
		res.CheckoutRequestID, res.Success(), res.ResultCode, receipt,
	)
	o, err := scanOrder(row, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, mapWriteError(err)
	}
	return o, nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) OrderHasSellerProduct(ctx context.Context, orderID string, sellerID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		"SELECT "+fmt.Sprintf(sellerOwnsLine, 2)+" FROM orders o WHERE o.id = $1", orderID, sellerID,
	).Scan(&ok)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrOrderNotFound
		}
		return false, err
	}
	return ok, nil
}

func (r *orderRepository) ListPendingOrders(ctx context.Context, updatedBefore time.Time) ([]*models.Order, error) {
	return r.queryOrders(ctx, orderSelect+`
		WHERE o.checkout_request_id IS NOT NULL AND NOT o.is_paid AND o.result_code IS NULL
		  AND o.updated_at < $1
		ORDER BY o.updated_at`, updatedBefore)
}
