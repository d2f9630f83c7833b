package engine

import (
	"context"
	"io"
	"sync"
)

// fakeConn is an in-memory Conn double: inbound messages are fed via send,
// outbound messages captured via written(). Safe for one reader/one writer
// goroutine, matching how a real Conn is used by the engine.
type fakeConn struct {
	mu      sync.Mutex
	out     []string
	in      chan string
	closeCh chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:      make(chan string, 32),
		closeCh: make(chan struct{}),
	}
}

func (c *fakeConn) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, text)
	return nil
}

func (c *fakeConn) ReadText(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case msg, ok := <-c.in:
		if !ok {
			return "", io.EOF
		}
		return msg, nil
	case <-c.closeCh:
		return "", io.EOF
	}
}

// send feeds one inbound message.
func (c *fakeConn) send(msg string) {
	c.in <- msg
}

// hangUp simulates a connection drop: pending and future reads fail.
func (c *fakeConn) hangUp() {
	c.once.Do(func() { close(c.closeCh) })
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.out))
	copy(out, c.out)
	return out
}
