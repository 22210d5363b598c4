package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const maxInboundFrame = 4096

type WSOptions struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServeWS upgrades the request and wires the connection to the hub.
// Clients send {"event":"joinOrder","data":"<orderId>"} and the matching leaveOrder.
func ServeWS(log *slog.Logger, hub *Hub, opts WSOptions) http.HandlerFunc {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "realtime.ServeWS"
		logger := log.With(slog.String("op", op))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the request.
			logger.Warn("websocket upgrade failed", slog.Any("error", err))
			return
		}

		c := hub.Register()
		logger = logger.With(slog.String("client", c.ID()))
		logger.Debug("client connected")

		go writePump(conn, c, opts)
		readPump(logger, conn, hub, c, opts.PingInterval*2)

		hub.Unregister(c)
		logger.Debug("client disconnected")
	}
}

func readPump(log *slog.Logger, conn *websocket.Conn, hub *Hub, c *Client, pongWait time.Duration) {
	conn.SetReadLimit(maxInboundFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("connection closed", slog.Any("error", err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Debug("ignoring undecodable frame", slog.Any("error", err))
			continue
		}
		orderID, ok := frameOrderID(frame.Data)
		if !ok {
			continue
		}

		switch frame.Event {
		case EventJoinOrder:
			hub.Join(c, OrderGroup(orderID))
		case EventLeaveOrder:
			hub.Leave(c, OrderGroup(orderID))
		}
	}
}

func writePump(conn *websocket.Conn, c *Client, opts WSOptions) {
	ticker := time.NewTicker(opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// frameOrderID accepts either a bare id string or {"orderId": "..."}.
func frameOrderID(data json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		var obj struct {
			OrderID string `json:"orderId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", false
		}
		id = obj.OrderID
	}
	id = strings.TrimSpace(id)
	return id, id != ""
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
