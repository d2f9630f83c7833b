// Package wsconn adapts gorilla/websocket connections to the synchronous
// request/reply shape the game session engine needs: one question sent,
// one answer received, with a deadline. This trades the channel-fed
// Client/WriteForever/ReadForever abstraction in
// _examples/tkahng-quick-sticks/websocket/websocket.go, built for broadcast
// chat where writer and reader run independently, for a single serialized
// Conn: the engine's question/answer protocol is inherently
// request-then-response on one connection, so Conn runs no writer goroutine
// of its own; the engine's paired tasks write to it directly, serialized by
// Conn's write mutex. The upgrade/origin-check shape
// (DefaultUpgrader) is kept as-is from that package.
package wsconn

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultUpgrader builds an Upgrader whose CheckOrigin accepts only the
// configured origins, mirroring websocket.go's DefaultUpgrader(origins).
func DefaultUpgrader(origins []string) websocket.Upgrader {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	upgrader.CheckOrigin = func(r *http.Request) bool {
		if slices.Contains(origins, "*") {
			return true
		}
		return slices.Contains(origins, r.Header.Get("Origin"))
	}
	return upgrader
}

// Conn is a duplex text-frame connection. All writes are serialized with
// an internal mutex since gorilla/websocket permits only one concurrent
// writer; reads are expected to happen from a single goroutine per Conn
// (the engine's question task), matching how websocket.go's ReadForever
// owns the connection's read side exclusively.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// New wraps an upgraded *websocket.Conn.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// WriteText sends a single text frame.
func (c *Conn) WriteText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(text))
}

// ReadText blocks for one text frame, honoring ctx's deadline if set. A
// context cancellation or deadline expiry surfaces as ctx.Err(); any other
// read failure (including a normal close) surfaces as the underlying
// gorilla error.
func (c *Conn) ReadText(ctx context.Context) (string, error) {
	deadline, ok := ctx.Deadline()
	if ok {
		_ = c.ws.SetReadDeadline(deadline)
	} else {
		_ = c.ws.SetReadDeadline(time.Time{})
	}

	_, payload, err := c.ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("wsconn: read: %w", err)
	}
	return string(payload), nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
