package core

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/courierchat/courier-server/internal/store"
	"github.com/courierchat/courier-server/internal/store/sqlite"
)

// mustEvent waits for the next event of the wanted kind, failing the test on
// timeout or on an unexpected kind.
func mustEvent(t *testing.T, events <-chan *Event, kind EventKind) *Event {
	t.Helper()

	select {
	case ev := <-events:
		if ev.Kind != kind {
			t.Fatalf("expected event kind %d, got %d: %+v", kind, ev.Kind, ev)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event kind %d", kind)
		return nil
	}
}

// noEvent asserts that nothing is queued on the channel.
func noEvent(t *testing.T, events <-chan *Event) {
	t.Helper()

	select {
	case ev := <-events:
		t.Fatalf("expected no event, got %+v", ev)
	default:
	}
}

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

func seedUser(t *testing.T, st store.UserStore, username string) *store.User {
	t.Helper()

	u, err := st.CreateUser(t.Context(), username, username+"@example.com", "hash")
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return u
}
