package presence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTracker_BindResolve(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker[string]()
	user := uuid.New()

	tracker.Bind(user, "conn-1")

	resolved, ok := tracker.Resolve("conn-1")
	req.True(ok)
	req.Equal(user, resolved)
	req.True(tracker.IsOnline(user))

	conn, ok := tracker.Lookup(user)
	req.True(ok)
	req.Equal("conn-1", conn)
}

func TestTracker_RebindSupersedesOldConnection(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker[string]()
	user := uuid.New()

	tracker.Bind(user, "conn-1")
	tracker.Bind(user, "conn-2")

	_, ok := tracker.Resolve("conn-1")
	req.False(ok, "superseded connection must not resolve")

	resolved, ok := tracker.Resolve("conn-2")
	req.True(ok)
	req.Equal(user, resolved)
	req.True(tracker.IsOnline(user))
}

func TestTracker_UnbindGuardsAgainstStaleDisconnect(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker[string]()
	user := uuid.New()

	tracker.Bind(user, "conn-1")
	tracker.Bind(user, "conn-2")

	// The old connection disconnecting must not clear the newer binding.
	req.False(tracker.Unbind(user, "conn-1"))
	req.True(tracker.IsOnline(user))

	req.True(tracker.Unbind(user, "conn-2"))
	req.False(tracker.IsOnline(user))
}

func TestTracker_OnlineIsSortedAndComplete(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker[string]()

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, user := range users {
		tracker.Bind(user, string(rune('a'+i)))
	}

	online := tracker.Online()
	req.Len(online, 3)
	req.ElementsMatch(users, online)
	for i := 1; i < len(online); i++ {
		req.Less(online[i-1].String(), online[i].String())
	}
}

func TestTracker_EmptyTracker(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker[string]()

	req.Empty(tracker.Online())
	req.False(tracker.IsOnline(uuid.New()))
	_, ok := tracker.Resolve("ghost")
	req.False(ok)
}
