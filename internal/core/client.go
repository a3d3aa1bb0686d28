package core

import "sync"

// DefaultClientBuffer is the outbound queue size used when none is given.
const DefaultClientBuffer = 64

// Client is one live connection as seen by the core layer.
// Commands are consumed by the hub; Events are drained by the transport.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	done      chan struct{}
	closeOnce sync.Once

	// voiceRoom is only touched by the hub goroutine serving this client.
	voiceRoom string
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		done:     make(chan struct{}),
	}
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close marks the client as gone. The hub runs disconnect cleanup afterwards.
// Safe to call more than once and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// send enqueues ev without blocking. A full queue closes the client.
func (c *Client) send(ev *Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Events <- ev:
		return true
	default:
		// Slow consumer.
		c.Close()
		return false
	}
}
