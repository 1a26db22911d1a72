package core

import (
	"sort"
	"sync"
)

// Registry is the process-wide "who is online" index: a goroutine-safe map
// from username to the live connection handle. It is created once and injected
// into every component that needs presence; there is no package-level instance.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry constructs an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register inserts or overwrites the entry for the client's username and
// returns the displaced handle, if any. The displaced transport is not closed
// here; the caller decides what to do with it.
func (r *Registry) Register(client *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.clients[client.Username]
	r.clients[client.Username] = client
	return previous
}

// Deregister removes the entry for the username, but only if it still points
// at the given handle. A session replaced by a newer connection must not evict
// its successor on teardown. Returns true if the entry was removed.
func (r *Registry) Deregister(client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[client.Username]
	if !ok || current != client {
		return false
	}
	delete(r.clients, client.Username)
	return true
}

// IsOnline reports whether the username has a registered connection.
func (r *Registry) IsOnline(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[username]
	return ok
}

// Lookup returns the connection handle for the username, or nil.
func (r *Registry) Lookup(username string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[username]
}

// Snapshot returns a consistent point-in-time list of online usernames.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	online := make([]string, 0, len(r.clients))
	for username := range r.clients {
		online = append(online, username)
	}
	sort.Strings(online)
	return online
}

// Count returns the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast queues an event on every registered client except the one given.
// Sends are non-blocking; slow consumers drop.
func (r *Registry) Broadcast(event *Event, except *Client) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, client := range r.clients {
		if client == except {
			continue
		}
		client.TrySend(event)
	}
}
