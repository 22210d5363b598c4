package realtime

import "github.com/linemk/gogol-pizza/internal/domain/models"

// Event names on the wire.
const (
	EventJoinOrder     = "joinOrder"
	EventLeaveOrder    = "leaveOrder"
	EventOrderUpdated  = "orderUpdated"
	EventOrderDeleted  = "orderDeleted"
	EventPaymentStatus = "paymentStatus"
)

// Event is the frame exchanged over the realtime channel in both directions.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// OrderGroup names the group that receives one order's events.
func OrderGroup(orderID string) string {
	return "order_" + orderID
}

type OrderUpdatedPayload struct {
	OrderID string             `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
}

type OrderDeletedPayload struct {
	OrderID string `json:"orderId"`
}

// PaymentStatusPayload carries Receipt on success and ResultCode on failure.
// CheckoutRequestID tells apart attempts on the same order.
type PaymentStatusPayload struct {
	OrderID           string  `json:"orderId"`
	CheckoutRequestID string  `json:"checkoutRequestId"`
	Success           bool    `json:"success"`
	Receipt           *string `json:"receipt,omitempty"`
	ResultCode        *int    `json:"resultCode,omitempty"`
}

func OrderUpdated(orderID string, status models.OrderStatus) Event {
	return Event{Name: EventOrderUpdated, Data: OrderUpdatedPayload{OrderID: orderID, Status: status}}
}

func OrderDeleted(orderID string) Event {
	return Event{Name: EventOrderDeleted, Data: OrderDeletedPayload{OrderID: orderID}}
}

func PaymentStatus(orderID, checkoutRequestID string, success bool, receipt *string, resultCode int) Event {
	p := PaymentStatusPayload{OrderID: orderID, CheckoutRequestID: checkoutRequestID, Success: success}
	if success {
		p.Receipt = receipt
	} else {
		p.ResultCode = &resultCode
	}
	return Event{Name: EventPaymentStatus, Data: p}
}
