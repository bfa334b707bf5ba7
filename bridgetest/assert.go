package bridgetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/nativebridge/bridge"
)

// RequirePending fails the test unless env has a pending exception of kind.
func RequirePending(t testing.TB, env bridge.Env, kind bridge.Kind) *bridge.Exception {
	t.Helper()
	require.True(t, env.ExceptionCheck(), "expected a pending exception")
	exc := env.ExceptionOccurred()
	require.NotNil(t, exc)
	require.Equal(t, kind, exc.Kind, "exception: %v", exc)
	return exc
}

// RequireNoPending fails the test if env has a pending exception.
func RequireNoPending(t testing.TB, env bridge.Env) {
	t.Helper()
	require.False(t, env.ExceptionCheck(), "unexpected pending exception: %v", env.ExceptionOccurred())
}

// RequireException fails the test unless exc is non-nil and of kind.
func RequireException(t testing.TB, exc *bridge.Exception, kind bridge.Kind) {
	t.Helper()
	require.NotNil(t, exc, "expected an exception")
	require.Equal(t, kind, exc.Kind, "exception: %v", exc)
}
