package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndDeregister(t *testing.T) {
	reg := NewRegistry()
	alice := NewClient(1, "alice", "c1")

	require.Nil(t, reg.Register(alice))
	assert.True(t, reg.IsOnline("alice"))
	assert.Equal(t, alice, reg.Lookup("alice"))
	assert.Equal(t, []string{"alice"}, reg.Snapshot())

	require.True(t, reg.Deregister(alice))
	assert.False(t, reg.IsOnline("alice"))
	assert.Nil(t, reg.Lookup("alice"))

	// Double-disconnect is a no-op.
	assert.False(t, reg.Deregister(alice))
}

func TestRegistryOverwriteOnDuplicateLogin(t *testing.T) {
	reg := NewRegistry()
	first := NewClient(1, "alice", "c1")
	second := NewClient(1, "alice", "c2")

	require.Nil(t, reg.Register(first))
	displaced := reg.Register(second)
	require.Equal(t, first, displaced)
	assert.Equal(t, second, reg.Lookup("alice"))
	assert.Equal(t, 1, reg.Count())

	// The replaced session's teardown must not evict the new connection.
	assert.False(t, reg.Deregister(first))
	assert.True(t, reg.IsOnline("alice"))

	require.True(t, reg.Deregister(second))
	assert.False(t, reg.IsOnline("alice"))
}

func TestRegistryConcurrentLifecycles(t *testing.T) {
	reg := NewRegistry()
	const users = 50

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user%02d", i)
			client := NewClient(int64(i), name, "c")
			for j := 0; j < 100; j++ {
				reg.Register(client)
				if !reg.IsOnline(name) {
					t.Errorf("%s not online after register", name)
					return
				}
				reg.Deregister(client)
				if reg.IsOnline(name) {
					t.Errorf("%s still online after deregister", name)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, reg.Count())
	assert.Empty(t, reg.Snapshot())
}

func TestRegistryBroadcastSkipsSender(t *testing.T) {
	reg := NewRegistry()
	alice := NewClient(1, "alice", "c1")
	bob := NewClient(2, "bob", "c2")
	reg.Register(alice)
	reg.Register(bob)

	reg.Broadcast(&Event{Kind: EventPresence, Username: "alice", Online: true}, alice)

	ev := mustEvent(t, bob.Events, EventPresence)
	assert.Equal(t, "alice", ev.Username)
	assert.True(t, ev.Online)
	noEvent(t, alice.Events)
}
