package realtime

import (
	"context"
	"log/slog"
)

type Scope int

const (
	// ScopeGlobal reaches every connected client.
	ScopeGlobal Scope = iota
	// ScopeOrder reaches the order's group and, separately, every connected client.
	ScopeOrder
)

func (s Scope) String() string {
	if s == ScopeOrder {
		return "order"
	}
	return "global"
}

// Dispatcher is what the order services publish through.
type Dispatcher struct {
	log   *slog.Logger
	hub   *Hub
	relay *Relay
}

// NewDispatcher accepts a nil relay.
func NewDispatcher(log *slog.Logger, hub *Hub, relay *Relay) *Dispatcher {
	return &Dispatcher{
		log:   log.With(slog.String("component", "realtime.Dispatcher")),
		hub:   hub,
		relay: relay,
	}
}

// Notify never fails the caller; the order store stays the source of truth.
func (d *Dispatcher) Notify(ctx context.Context, orderID string, ev Event, scope Scope) {
	logger := d.log.With(slog.String("event", ev.Name), slog.String("order_id", orderID))

	grouped := 0
	if scope == ScopeOrder {
		grouped = d.hub.Publish(OrderGroup(orderID), ev)
	}
	global := d.hub.Broadcast(ev)
	logger.Debug("event published", slog.Int("group_delivered", grouped), slog.Int("global_delivered", global))

	if d.relay == nil {
		return
	}
	if err := d.relay.Publish(ctx, orderID, scope, ev); err != nil {
		logger.Warn("event relay failed", slog.Any("error", err))
	}
}
