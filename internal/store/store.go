package store

import (
	"context"
	"time"
)

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// MessageStatus defines the delivery state of a message.
type MessageStatus string

const (
	// MessageStatusSent means the message is persisted but the receiver
	// has not been reached yet.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered means the message was pushed to the receiver's
	// live connection or replayed on reconnect.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead means the receiver acknowledged reading the message.
	MessageStatusRead MessageStatus = "read"
)

// Message represents a persisted direct message.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	Status     MessageStatus
	CreatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the user's password hash.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	// ListUsernames lists all registered usernames.
	ListUsernames(ctx context.Context) ([]string, error)
}

// MessageStore handles message persistence and delivery-status bookkeeping.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID and CreatedAt.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListByReceiverAndStatus retrieves a receiver's messages with the given
	// status, ordered by creation time then ID.
	ListByReceiverAndStatus(ctx context.Context, receiverID int64, status MessageStatus) ([]*Message, error)

	// BulkUpdateStatus moves all of a receiver's messages from one status to
	// another in a single atomic statement. Returns the number updated.
	BulkUpdateStatus(ctx context.Context, receiverID int64, from, to MessageStatus) (int64, error)

	// BulkUpdateStatusFromSender is BulkUpdateStatus restricted to messages
	// from a single sender. Backs read receipts.
	BulkUpdateStatusFromSender(ctx context.Context, receiverID, senderID int64, from, to MessageStatus) (int64, error)

	// ListConversation retrieves all messages between two users in either
	// direction, ordered by creation time then ID.
	ListConversation(ctx context.Context, userA, userB int64) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Ping verifies the underlying database connection.
	Ping(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
