package notify

import "sync"

// Client represents one connected event-feed subscriber.
//
// Send is never closed by the hub: broadcasters may race a disconnect, and a
// send on a closed channel would panic them. Done signals shutdown instead.
type Client struct {
	Send chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Client{
		Send: make(chan Event, queueSize),
		done: make(chan struct{}),
	}
}

// Done returns a channel closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close signals the client goroutines to stop (idempotent).
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
