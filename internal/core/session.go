package core

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/courierchat/courier-server/internal/store"
)

// Session binds one authenticated connection to the registry and router for
// its lifetime: register and announce on Begin, route sends while active,
// deregister and announce on End.
type Session struct {
	user     *store.User
	client   *Client
	registry *Registry
	router   *Router
	users    store.UserStore
	messages store.MessageStore
	log      *zerolog.Logger

	active atomic.Bool
}

// NewSession constructs a session for an authenticated user. The caller has
// already passed the gatekeeper; the session never re-checks credentials.
func NewSession(user *store.User, client *Client, registry *Registry, router *Router,
	users store.UserStore, messages store.MessageStore, logger *zerolog.Logger) *Session {
	return &Session{
		user:     user,
		client:   client,
		registry: registry,
		router:   router,
		users:    users,
		messages: messages,
		log:      logger,
	}
}

// Client returns the session's connection handle.
func (s *Session) Client() *Client {
	return s.client
}

// Begin moves the session to Active: register presence, announce to others,
// send the roster, and replay queued messages. Any error here tears the
// connection down; nothing registered survives (End remains safe to call).
func (s *Session) Begin(ctx context.Context) error {
	if displaced := s.registry.Register(s.client); displaced != nil {
		// Duplicate login: the entry is overwritten and the stale transport
		// is left open. Known defect carried over from the source behavior.
		s.log.Warn().
			Str("username", s.user.Username).
			Str("old_conn", displaced.ConnID).
			Str("new_conn", s.client.ConnID).
			Msg("connection replaced by new login")
	}
	s.active.Store(true)

	s.registry.Broadcast(&Event{
		Kind:     EventPresence,
		Username: s.user.Username,
		Online:   true,
	}, s.client)

	all, err := s.users.ListUsernames(ctx)
	if err != nil {
		return fmt.Errorf("list usernames: %w", err)
	}
	s.client.TrySend(&Event{
		Kind: EventRoster,
		Roster: &Roster{
			Online: s.registry.Snapshot(),
			All:    all,
		},
	})

	return s.replayOffline(ctx)
}

// replayOffline pushes all queued messages in ledger order as one batch, then
// marks them delivered in a single atomic update. If the update fails after
// the push the messages stay queued and will be replayed again on the next
// connection; replay is at-least-once across reconnects.
func (s *Session) replayOffline(ctx context.Context) error {
	pending, err := s.messages.ListByReceiverAndStatus(ctx, s.user.ID, store.MessageStatusSent)
	if err != nil {
		return fmt.Errorf("fetch queued messages: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	s.client.TrySend(&Event{
		Kind:  EventOfflineBatch,
		Batch: pending,
	})

	count, err := s.messages.BulkUpdateStatus(ctx, s.user.ID, store.MessageStatusSent, store.MessageStatusDelivered)
	if err != nil {
		return fmt.Errorf("mark replayed messages delivered: %w", err)
	}

	s.log.Debug().
		Str("username", s.user.Username).
		Int64("replayed", count).
		Msg("offline messages replayed")
	return nil
}

// HandleSend routes one inbound message. Errors are reported back to this
// client only and never end the session.
func (s *Session) HandleSend(ctx context.Context, req SendRequest) {
	msg, err := s.router.Send(ctx, s.user, req)
	if err != nil {
		s.sendError(err)
		return
	}
	s.client.TrySend(&Event{Kind: EventAck, Ack: msg})
}

// HandleRead applies a read receipt for messages from the given peer.
func (s *Session) HandleRead(ctx context.Context, peerUsername string) {
	if _, err := s.router.MarkRead(ctx, s.user, peerUsername); err != nil {
		s.sendError(err)
	}
}

// End leaves the Active state: deregister and announce absence. Idempotent,
// and a no-op for sessions that never became Active. The absence broadcast is
// skipped when a newer connection already owns the registry entry.
func (s *Session) End() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}

	if s.registry.Deregister(s.client) {
		s.registry.Broadcast(&Event{
			Kind:     EventPresence,
			Username: s.user.Username,
			Online:   false,
		}, s.client)
	}

	if dropped := s.client.Dropped(); dropped > 0 {
		s.log.Warn().
			Str("username", s.user.Username).
			Int64("dropped_events", dropped).
			Msg("session ended with dropped events")
	}
}

func (s *Session) sendError(err error) {
	if coreErr, ok := err.(*CoreError); ok {
		s.client.TrySend(&Event{Kind: EventError, Error: coreErr})
		return
	}
	s.client.TrySend(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, err.Error())})
}
