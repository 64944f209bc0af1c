package pwdhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	h1 := HashPasswordBase64("hunter2")
	h2 := HashPasswordBase64("hunter2")
	// Fresh salt every time
	require.NotEqual(t, h1, h2)

	require.True(t, VerifyHashBase64("hunter2", h1))
	require.True(t, VerifyHashBase64("hunter2", h2))
	require.False(t, VerifyHashBase64("hunter3", h1))
	require.False(t, VerifyHashBase64("", h1))
	require.False(t, VerifyHashBase64("hunter2", "garbage"))
	require.False(t, VerifyHashBase64("hunter2", ""))
}

func TestHashSessionToken(t *testing.T) {
	h1 := HashSessionTokenBase64("token1")
	require.Equal(t, h1, HashSessionTokenBase64("token1"))
	require.NotEqual(t, h1, HashSessionTokenBase64("token2"))
}
