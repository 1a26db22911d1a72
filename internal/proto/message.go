package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeMessage = "private-message"
	InboundTypeRead    = "read"

	OutboundTypeUsersList    = "users-list"
	OutboundTypeUserOnline   = "user-online"
	OutboundTypeUserOffline  = "user-offline"
	OutboundTypeMessage      = "private-message"
	OutboundTypeOfflineBatch = "offline-messages"
	OutboundTypeMessageSent  = "message-sent"
	OutboundTypeError        = "error"
)

// PrivateMessageData is a point-to-point message send request.
type PrivateMessageData struct {
	Content          string `json:"content"`
	ReceiverUsername string `json:"receiverUsername"`
}

// ReadData marks all delivered messages from a peer as read.
type ReadData struct {
	Peer string `json:"peer"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// UsersListData is the roster pushed to a client right after it connects.
type UsersListData struct {
	Online []string `json:"online"`
	All    []string `json:"all"`
}

// PresenceData announces one user's presence change.
type PresenceData struct {
	Username string `json:"username"`
}

// DeliveredMessage is a message pushed to its receiver, sender resolved to a
// username.
type DeliveredMessage struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// StoredMessage is a message as persisted in the ledger, with raw identity
// ids. Used for send acks and offline batches.
type StoredMessage struct {
	ID        int64  `json:"id"`
	Sender    int64  `json:"sender"`
	Receiver  int64  `json:"receiver"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// Error describes a protocol-level error response.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
