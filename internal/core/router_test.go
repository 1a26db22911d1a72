package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierchat/courier-server/internal/store"
)

func TestSendToOnlineReceiver(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry()
	router := NewRouter(st, st, reg, testLogger())

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	bobClient := NewClient(bob.ID, bob.Username, "c-bob")
	reg.Register(bobClient)

	msg, err := router.Send(t.Context(), alice, SendRequest{
		Content:          "  hello  ",
		ReceiverUsername: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, store.MessageStatusDelivered, msg.Status)
	assert.Equal(t, "hello", msg.Content, "content is trimmed before persisting")
	assert.NotZero(t, msg.ID)

	ev := mustEvent(t, bobClient.Events, EventMessage)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "alice", ev.Message.Sender, "sender shown as username, not id")
	assert.Equal(t, "hello", ev.Message.Content)

	// The ack must round-trip from the ledger with identical fields.
	stored, err := st.GetMessage(t.Context(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.Content, stored.Content)
	assert.Equal(t, msg.SenderID, stored.SenderID)
	assert.Equal(t, msg.ReceiverID, stored.ReceiverID)
	assert.Equal(t, store.MessageStatusDelivered, stored.Status)
}

func TestSendToOfflineReceiver(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry()
	router := NewRouter(st, st, reg, testLogger())

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	msg, err := router.Send(t.Context(), alice, SendRequest{
		Content:          "hi",
		ReceiverUsername: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, store.MessageStatusSent, msg.Status)

	queued, err := st.ListByReceiverAndStatus(t.Context(), bob.ID, store.MessageStatusSent)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "hi", queued[0].Content)
}

func TestSendRejectsInvalidPayload(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry()
	router := NewRouter(st, st, reg, testLogger())

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	cases := []struct {
		name string
		req  SendRequest
	}{
		{"empty content", SendRequest{Content: "", ReceiverUsername: "bob"}},
		{"whitespace content", SendRequest{Content: "   \t ", ReceiverUsername: "bob"}},
		{"empty receiver", SendRequest{Content: "hi", ReceiverUsername: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := router.Send(t.Context(), alice, tc.req)
			var coreErr *CoreError
			require.ErrorAs(t, err, &coreErr)
			assert.Equal(t, ErrCodeInvalidPayload, coreErr.Code)
		})
	}

	// Nothing may be persisted for rejected sends.
	queued, err := st.ListByReceiverAndStatus(t.Context(), bob.ID, store.MessageStatusSent)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestSendRejectsUnknownReceiver(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry()
	router := NewRouter(st, st, reg, testLogger())

	alice := seedUser(t, st, "alice")

	_, err := router.Send(t.Context(), alice, SendRequest{
		Content:          "hi",
		ReceiverUsername: "nobody",
	})
	var coreErr *CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, ErrCodeReceiverNotFound, coreErr.Code)
}

func TestSendToSelfIsAllowed(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry()
	router := NewRouter(st, st, reg, testLogger())

	alice := seedUser(t, st, "alice")

	msg, err := router.Send(t.Context(), alice, SendRequest{
		Content:          "note to self",
		ReceiverUsername: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, alice.ID, msg.ReceiverID)
}

func TestMarkRead(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry()
	router := NewRouter(st, st, reg, testLogger())

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	bobClient := NewClient(bob.ID, bob.Username, "c-bob")
	reg.Register(bobClient)

	_, err := router.Send(t.Context(), alice, SendRequest{Content: "one", ReceiverUsername: "bob"})
	require.NoError(t, err)
	_, err = router.Send(t.Context(), alice, SendRequest{Content: "two", ReceiverUsername: "bob"})
	require.NoError(t, err)

	count, err := router.MarkRead(t.Context(), bob, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	read, err := st.ListByReceiverAndStatus(t.Context(), bob.ID, store.MessageStatusRead)
	require.NoError(t, err)
	assert.Len(t, read, 2)

	_, err = router.MarkRead(t.Context(), bob, "nobody")
	var coreErr *CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, ErrCodeReceiverNotFound, coreErr.Code)
}
