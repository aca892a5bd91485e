package fanout_test

import (
	"testing"

	"github.com/bloomwire/gtws"
	"github.com/bloomwire/gtws/fanout"
	"github.com/stretchr/testify/require"
)

func TestReserveCollision(t *testing.T) {
	b := fanout.New()
	require.NoError(t, b.Reserve("op-1"))
	require.Error(t, b.Reserve("op-1"))
}

func TestAttachRequiresReservation(t *testing.T) {
	b := fanout.New()
	err := b.Attach("op-1", gtws.DisposerFunc(func() {}))
	require.Error(t, err)
}

func TestReleaseDisposesExactlyOnce(t *testing.T) {
	b := fanout.New()
	require.NoError(t, b.Reserve("op-1"))

	disposed := 0
	require.NoError(t, b.Attach("op-1", gtws.DisposerFunc(func() { disposed++ })))

	b.Release("op-1")
	b.Release("op-1")
	require.Equal(t, 1, disposed)
	require.False(t, b.Has("op-1"))
}

func TestDisposeAllDrainsEverything(t *testing.T) {
	b := fanout.New()
	disposed := map[string]bool{}

	for _, id := range []string{"a", "b", "c"} {
		id := id
		require.NoError(t, b.Reserve(id))
		require.NoError(t, b.Attach(id, gtws.DisposerFunc(func() { disposed[id] = true })))
	}

	b.DisposeAll()
	require.Equal(t, 0, b.Count())
	require.Len(t, disposed, 3)
}
