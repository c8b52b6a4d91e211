package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 5 * time.Second
	outboundBacklog = 32
)

var errConnGone = errors.New("connection closed or backlog full")

// frame is the wire shape of a pushed event.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// conn adapts one websocket to realtime.Conn. Outbound frames go through a
// bounded queue drained by a single writer goroutine, so Send never blocks
// a broadcast on a slow client; when the queue is full the frame is dropped
// and the subscriber catches up on its next fetch.
type conn struct {
	id  string
	ws  *websocket.Conn
	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		id:     uuid.NewString(),
		ws:     ws,
		out:    make(chan []byte, outboundBacklog),
		closed: make(chan struct{}),
	}
}

func (c *conn) ID() string {
	return c.id
}

func (c *conn) Send(event string, payload any) error {
	raw, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		return err
	}

	select {
	case <-c.closed:
		return errConnGone
	case c.out <- raw:
		return nil
	default:
		return errConnGone
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case raw := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.close()

				return
			}
		}
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}
