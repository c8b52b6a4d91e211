package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tableside/order/internal/realtime"
)

// controlMessage is a group-membership request from a connected client.
// Clients without a restaurant id land in the legacy unscoped groups only;
// the distinction lives entirely here at the boundary, the registry treats
// every group the same.
type controlMessage struct {
	Type         string `json:"type"`
	TableNumber  int    `json:"tableNumber,omitempty"`
	RestaurantID int64  `json:"restaurantId,omitempty"`
}

const (
	msgJoinAdmin = "join_admin"
	msgJoinTable = "join_table"
)

// Handler upgrades HTTP requests to websockets and maps join messages to
// registry subscriptions.
type Handler struct {
	registry *realtime.Registry
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler bound to the given registry.
func NewHandler(registry *realtime.Registry) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is enforced on the HTTP layer; the upgrade itself
			// accepts any origin the router let through.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades the connection and serves its join messages until the
// client disconnects, then drops all its group memberships.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "error", err)

		return
	}

	c := newConn(socket)
	go c.writeLoop()

	slog.Info("Realtime client connected", "conn_id", c.ID())

	defer func() {
		h.registry.Unsubscribe(c)
		c.close()
		slog.Info("Realtime client disconnected", "conn_id", c.ID())
	}()

	for {
		_, raw, err := socket.ReadMessage()
		if err != nil {
			return
		}

		var msg controlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Warn("Ignoring malformed control message", "conn_id", c.ID(), "error", err)

			continue
		}

		h.subscribe(c, msg)
	}
}

func (h *Handler) subscribe(c *conn, msg controlMessage) {
	switch msg.Type {
	case msgJoinAdmin:
		h.registry.Subscribe(c, realtime.GlobalAdminGroup())
		if msg.RestaurantID > 0 {
			h.registry.Subscribe(c, realtime.AdminGroup(msg.RestaurantID))
		}
	case msgJoinTable:
		if msg.TableNumber <= 0 {
			slog.Warn("Ignoring join_table without table number", "conn_id", c.ID())

			return
		}
		h.registry.Subscribe(c, realtime.LegacyTableGroup(msg.TableNumber))
		if msg.RestaurantID > 0 {
			h.registry.Subscribe(c, realtime.TableGroup(msg.TableNumber, msg.RestaurantID))
		}
	default:
		slog.Warn("Ignoring unknown control message", "conn_id", c.ID(), "type", msg.Type)
	}
}
