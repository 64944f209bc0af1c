package identity

import (
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	dir := t.TempDir()
	log := logs.NewTestingLog(t)
	sessions, err := LoadSessions(log, dir, SessionOptions{})
	require.NoError(t, err)

	require.False(t, sessions.Validate("nope", "10.0.0.1"))

	require.NoError(t, sessions.Create("token1", "alice", "10.0.0.1"))
	require.True(t, sessions.Validate("token1", "10.0.0.1"))
	username, ok := sessions.UserOf("token1")
	require.True(t, ok)
	require.Equal(t, "alice", username)

	// Without binding, any client address is accepted
	require.True(t, sessions.Validate("token1", "192.168.0.7"))

	// Sessions survive a reload
	reloaded, err := LoadSessions(log, dir, SessionOptions{})
	require.NoError(t, err)
	require.True(t, reloaded.Validate("token1", "10.0.0.1"))

	// Invalidate is idempotent
	require.NoError(t, reloaded.Invalidate("token1"))
	require.False(t, reloaded.Validate("token1", "10.0.0.1"))
	require.NoError(t, reloaded.Invalidate("token1"))
}

func TestSessionClientAddrBinding(t *testing.T) {
	dir := t.TempDir()
	log := logs.NewTestingLog(t)
	sessions, err := LoadSessions(log, dir, SessionOptions{BindClientAddr: true})
	require.NoError(t, err)

	require.NoError(t, sessions.Create("token1", "alice", "10.0.0.1"))
	require.True(t, sessions.Validate("token1", "10.0.0.1"))
	require.False(t, sessions.Validate("token1", "10.0.0.2"))

	// Rejection from another address does not destroy the session
	require.True(t, sessions.Validate("token1", "10.0.0.1"))
}

func TestSessionTTL(t *testing.T) {
	dir := t.TempDir()
	log := logs.NewTestingLog(t)
	sessions, err := LoadSessions(log, dir, SessionOptions{TTL: 50 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, sessions.Create("token1", "alice", "10.0.0.1"))
	require.True(t, sessions.Validate("token1", "10.0.0.1"))

	time.Sleep(80 * time.Millisecond)
	require.False(t, sessions.Validate("token1", "10.0.0.1"))
	_, ok := sessions.UserOf("token1")
	require.False(t, ok)

	// A new login purges the expired entry from the store
	require.NoError(t, sessions.Create("token2", "alice", "10.0.0.1"))
	require.Len(t, sessions.sessions, 1)
}
