package core

import (
	"time"

	"github.com/courierchat/courier-server/internal/store"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoster delivers the full online/offline user roster to a client
	// right after it connects.
	EventRoster EventKind = iota
	// EventPresence notifies clients that a user came online or went offline.
	EventPresence
	// EventMessage delivers a message to its receiver's live connection.
	EventMessage
	// EventOfflineBatch replays queued messages to a freshly connected client.
	EventOfflineBatch
	// EventAck confirms a send to its sender, carrying the persisted message.
	EventAck
	// EventError notifies the originating client about a failed send.
	EventError
)

// MessageView is a message as shown to its receiver, with the sender resolved
// to a human-readable username instead of a raw identity id.
type MessageView struct {
	ID        int64
	Sender    string
	Content   string
	Status    store.MessageStatus
	CreatedAt time.Time
}

// Roster is the point-in-time answer to "who is online".
type Roster struct {
	Online []string
	All    []string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Username string // EventPresence
	Online   bool   // EventPresence
	Roster   *Roster
	Message  *MessageView     // EventMessage
	Batch    []*store.Message // EventOfflineBatch
	Ack      *store.Message   // EventAck
	Error    *CoreError
}
