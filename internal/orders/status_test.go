package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"PENDING", "PREPARING", "READY", "DELIVERED", "COMPLETED", "CANCELLED"} {
		got, err := ParseStatus(s)
		require.NoError(t, err)
		require.Equal(t, Status(s), got)
	}
	for _, s := range []string{"", "pending", "SHIPPED"} {
		_, err := ParseStatus(s)
		require.ErrorIs(t, err, ErrInvalidStatus, s)
	}
}

func TestCanTransitionFollowsForwardChain(t *testing.T) {
	t.Parallel()

	require.True(t, CanTransition(StatusPending, StatusPreparing))
	require.True(t, CanTransition(StatusPreparing, StatusReady))
	require.True(t, CanTransition(StatusReady, StatusDelivered))
	require.True(t, CanTransition(StatusDelivered, StatusCompleted))
	require.True(t, CanTransition(StatusReady, StatusCancelled))

	require.False(t, CanTransition(StatusPending, StatusReady))
	require.False(t, CanTransition(StatusCompleted, StatusPending))
	require.False(t, CanTransition(StatusCancelled, StatusCancelled))
	require.True(t, StatusCompleted.Terminal())
	require.False(t, StatusDelivered.Terminal())
}
