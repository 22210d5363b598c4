package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/realtime"
)

var ErrOrderDeleted = errors.New("tracker: order deleted")

// Conn is the part of *websocket.Conn the tracker needs.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

type PaymentSignal struct {
	OrderID           string
	CheckoutRequestID string
	Success           bool
	Receipt           *string
	ResultCode        *int
}

// Update is delivered once per observed change. Payment is set only for the
// one-shot payment signal and is never folded into Order.
type Update struct {
	Event   string
	Order   models.Order
	Payment *PaymentSignal
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Tracker keeps a local view of one order in sync with the realtime channel.
type Tracker struct {
	log  *slog.Logger
	conn Conn

	mu          sync.Mutex
	view        models.Order
	lastPayment []byte
}

func New(log *slog.Logger, conn Conn, initial models.Order) *Tracker {
	return &Tracker{
		log:  log.With(slog.String("component", "tracker"), slog.String("order_id", initial.ID)),
		conn: conn,
		view: initial,
	}
}

// View returns a copy of the current local order view.
func (t *Tracker) View() models.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// Run joins the order group and calls onUpdate for every change until ctx is done,
// the connection fails or the order is deleted. It always leaves the group and
// closes the connection before returning.
func (t *Tracker) Run(ctx context.Context, onUpdate func(Update)) error {
	const op = "tracker.Tracker.Run"
	orderID := t.View().ID

	if err := t.conn.WriteJSON(realtime.Event{Name: realtime.EventJoinOrder, Data: orderID}); err != nil {
		_ = t.conn.Close()
		return fmt.Errorf("%s: join: %w", op, err)
	}

	frames := make(chan frame)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			var f frame
			if err := t.conn.ReadJSON(&f); err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- f:
			case <-done:
				return
			}
		}
	}()

	defer func() {
		if err := t.conn.WriteJSON(realtime.Event{Name: realtime.EventLeaveOrder, Data: orderID}); err != nil {
			t.log.Debug("leave not sent", slog.Any("error", err))
		}
		_ = t.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return fmt.Errorf("%s: read: %w", op, err)
		case f := <-frames:
			update, ok, err := t.apply(f)
			if err != nil {
				if errors.Is(err, ErrOrderDeleted) {
					return err
				}
				t.log.Debug("ignoring frame", slog.String("event", f.Event), slog.Any("error", err))
				continue
			}
			if ok && onUpdate != nil {
				onUpdate(update)
			}
		}
	}
}

// apply folds one frame into the view. ok is false for frames about other orders
// and for repeats that change nothing.
func (t *Tracker) apply(f frame) (Update, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch f.Event {
	case realtime.EventOrderUpdated:
		var p realtime.OrderUpdatedPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return Update{}, false, err
		}
		if p.OrderID != t.view.ID || p.Status == t.view.Status {
			return Update{}, false, nil
		}
		t.view.Status = p.Status
		return Update{Event: f.Event, Order: t.view}, true, nil

	case realtime.EventPaymentStatus:
		var p realtime.PaymentStatusPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return Update{}, false, err
		}
		if p.OrderID != t.view.ID {
			return Update{}, false, nil
		}
		// the same event arrives once through the group and once globally; separate
		// attempts differ by checkout request id and always come through
		if bytes.Equal(f.Data, t.lastPayment) {
			return Update{}, false, nil
		}
		t.lastPayment = append(t.lastPayment[:0], f.Data...)
		return Update{
			Event:   f.Event,
			Order:   t.view,
			Payment: &PaymentSignal{
				OrderID:           p.OrderID,
				CheckoutRequestID: p.CheckoutRequestID,
				Success:           p.Success,
				Receipt:           p.Receipt,
				ResultCode:        p.ResultCode,
			},
		}, true, nil

	case realtime.EventOrderDeleted:
		var p realtime.OrderDeletedPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return Update{}, false, err
		}
		if p.OrderID == t.view.ID {
			return Update{}, false, ErrOrderDeleted
		}
	}
	return Update{}, false, nil
}
