package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUReplacer_VictimOnEmpty_LeavesOutParamUntouched(t *testing.T) {
	r := NewLRUReplacer()

	sentinel := 42
	ok := r.Victim(&sentinel)
	require.False(t, ok)
	require.Equal(t, 42, sentinel)
}

func TestLRUReplacer_UnpinThenVictimEvictsOldest(t *testing.T) {
	r := NewLRUReplacer()

	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(3)
	require.Equal(t, 3, r.Size())

	var out int
	require.True(t, r.Victim(&out))
	require.Equal(t, 1, out)
	require.Equal(t, 2, r.Size())
}

func TestLRUReplacer_UnpinTwiceMovesToFrontNotDuplicated(t *testing.T) {
	r := NewLRUReplacer()

	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(1) // re-touch: 1 should no longer be the oldest
	require.Equal(t, 2, r.Size())

	var out int
	require.True(t, r.Victim(&out))
	require.Equal(t, 2, out)
}

func TestLRUReplacer_PinRemovesFromEviction(t *testing.T) {
	r := NewLRUReplacer()

	r.Unpin(1)
	r.Unpin(2)
	r.Pin(1)
	require.Equal(t, 1, r.Size())

	var out int
	require.True(t, r.Victim(&out))
	require.Equal(t, 2, out)
}
