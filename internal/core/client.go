package core

import "sync/atomic"

// Client is the in-memory handle for one live connection. The Events channel
// is the push target the transport's write loop drains; it stands in for the
// raw socket so the core never touches transport types.
type Client struct {
	UserID   int64
	Username string
	ConnID   string
	Events   chan *Event

	dropped atomic.Int64
}

// NewClient constructs a connection handle with an initialized event buffer.
func NewClient(userID int64, username, connID string) *Client {
	return &Client{
		UserID:   userID,
		Username: username,
		ConnID:   connID,
		Events:   make(chan *Event, 32),
	}
}

// TrySend queues an event without blocking. A full buffer means a slow
// consumer; the event is dropped and counted. Returns false on drop.
func (c *Client) TrySend(event *Event) bool {
	select {
	case c.Events <- event:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}
