package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusReceived       OrderStatus = "Order Received"
	StatusPreparing      OrderStatus = "Preparing"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
)

// ParseOrderStatus accepts only the four known status labels.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case StatusReceived, StatusPreparing, StatusOutForDelivery, StatusDelivered:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// OrderItem is a line snapshot taken when the order is placed.
type OrderItem struct {
	Product int64           `json:"product"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Qty     int             `json:"qty"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

type DeliveryLocation struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Address string   `json:"address,omitempty"`
}

type PaymentState string

const (
	PaymentUnpaid  PaymentState = "unpaid"
	PaymentPending PaymentState = "pending"
	PaymentPaid    PaymentState = "paid"
	PaymentFailed  PaymentState = "failed"
)

// Payment holds the M-Pesa correlation and outcome for an order.
type Payment struct {
	CheckoutRequestID *string `json:"checkoutRequestId"`
	ReceiptNumber     *string `json:"receiptNumber"`
	IsPaid            bool    `json:"isPaid"`
	ResultCode        *int    `json:"resultCode,omitempty"`
}

// State derives the payment state from the stored fields.
func (p Payment) State() PaymentState {
	switch {
	case p.IsPaid:
		return PaymentPaid
	case p.CheckoutRequestID == nil:
		return PaymentUnpaid
	case p.ResultCode == nil:
		return PaymentPending
	default:
		return PaymentFailed
	}
}

// Customer is the ordering user's contact info, filled on reads.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Order struct {
	ID               string            `json:"id"`
	UserID           int64             `json:"userId"`
	Customer         *Customer         `json:"user,omitempty"`
	Items            []OrderItem       `json:"items"`
	Total            decimal.Decimal   `json:"total"`
	Status           OrderStatus       `json:"status"`
	DeliveryLocation *DeliveryLocation `json:"deliveryLocation,omitempty"`
	Payment          Payment           `json:"mpesa"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// PaymentResult is a gateway outcome to apply to the order matching CheckoutRequestID.
type PaymentResult struct {
	CheckoutRequestID string
	ResultCode        int
	Receipt           *string
}

func (r PaymentResult) Success() bool {
	return r.ResultCode == 0
}
