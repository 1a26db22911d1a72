package core

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/courierchat/courier-server/internal/store"
)

// SendRequest is an inbound point-to-point message from a connected client.
type SendRequest struct {
	Content          string
	ReceiverUsername string
}

// Router orchestrates the send path: validate, resolve the receiver, decide
// the delivery status from presence, persist, then attempt a live push.
type Router struct {
	users    store.UserStore
	messages store.MessageStore
	registry *Registry
	log      *zerolog.Logger
}

// NewRouter constructs a message router over the given stores and registry.
func NewRouter(users store.UserStore, messages store.MessageStore, registry *Registry, logger *zerolog.Logger) *Router {
	return &Router{
		users:    users,
		messages: messages,
		registry: registry,
		log:      logger,
	}
}

// Send validates and persists a message from sender, pushing it to the
// receiver's live connection when one exists. The returned message carries
// the ledger-assigned id, timestamp, and status; it is the sender's ack.
// Errors are *CoreError and scoped to this send only.
func (r *Router) Send(ctx context.Context, sender *store.User, req SendRequest) (*store.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" || req.ReceiverUsername == "" {
		return nil, coreError(ErrCodeInvalidPayload, "message content and receiver are required")
	}

	receiver, err := r.users.GetUserByUsername(ctx, req.ReceiverUsername)
	if err != nil {
		return nil, coreError(ErrCodeReceiverNotFound, "receiver not found")
	}

	// Point-in-time decision: the status reflects the registry as observed
	// immediately before persistence, not the outcome of the push.
	handle := r.registry.Lookup(receiver.Username)
	status := store.MessageStatusSent
	if handle != nil {
		status = store.MessageStatusDelivered
	}

	msg := &store.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    content,
		Status:     status,
	}

	// Durability precedes the best-effort push.
	if err := r.messages.SaveMessage(ctx, msg); err != nil {
		r.log.Error().Err(err).
			Int64("sender_id", sender.ID).
			Str("receiver", receiver.Username).
			Msg("failed to persist message")
		return nil, coreError(ErrCodeLedgerUnavailable, "message could not be stored")
	}

	if handle != nil {
		delivered := handle.TrySend(&Event{
			Kind: EventMessage,
			Message: &MessageView{
				ID:        msg.ID,
				Sender:    sender.Username,
				Content:   msg.Content,
				Status:    msg.Status,
				CreatedAt: msg.CreatedAt,
			},
		})
		if !delivered {
			// Fire-and-forget: the persisted status stays delivered.
			r.log.Warn().
				Str("receiver", receiver.Username).
				Int64("message_id", msg.ID).
				Msg("live push dropped, receiver buffer full")
		}
	}

	return msg, nil
}

// MarkRead transitions all delivered messages from peer to reader into the
// read state. Returns the number of messages updated.
func (r *Router) MarkRead(ctx context.Context, reader *store.User, peerUsername string) (int64, error) {
	if peerUsername == "" {
		return 0, coreError(ErrCodeInvalidPayload, "peer is required")
	}

	peer, err := r.users.GetUserByUsername(ctx, peerUsername)
	if err != nil {
		return 0, coreError(ErrCodeReceiverNotFound, "peer not found")
	}

	count, err := r.messages.BulkUpdateStatusFromSender(ctx, reader.ID, peer.ID,
		store.MessageStatusDelivered, store.MessageStatusRead)
	if err != nil {
		r.log.Error().Err(err).
			Int64("reader_id", reader.ID).
			Str("peer", peerUsername).
			Msg("failed to mark messages read")
		return 0, coreError(ErrCodeLedgerUnavailable, "read receipt could not be stored")
	}
	return count, nil
}
