package service

import (
	"context"
	"errors"

	"github.com/linemk/gogol-pizza/internal/realtime"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidOrderID     = errors.New("invalid order id")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrPaymentPending     = errors.New("payment already awaiting a result")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoVerification     = errors.New("no verification initiated for this email")
	ErrCodeExpired        = errors.New("code expired")
	ErrInvalidCode        = errors.New("invalid code")
	ErrMailDelivery       = errors.New("failed to send email")
	ErrImageNotFound      = errors.New("image not found on product")
	ErrLastImage          = errors.New("a product must have at least one image")
)

// Notifier fans order events out to realtime subscribers. Implementations must not block
// on slow consumers and never report delivery failures.
type Notifier interface {
	Notify(ctx context.Context, orderID string, ev realtime.Event, scope realtime.Scope)
}
