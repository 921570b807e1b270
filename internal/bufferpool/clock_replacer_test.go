package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLOCKReplacer_VictimOnEmpty_LeavesOutParamUntouched(t *testing.T) {
	r := NewCLOCKReplacer(4)

	sentinel := 7
	ok := r.Victim(&sentinel)
	require.False(t, ok)
	require.Equal(t, 7, sentinel)
}

func TestCLOCKReplacer_UnpinAlwaysInsertsAndSetsRefBit(t *testing.T) {
	// Frame 0 has never been Pin'd before; Unpin must still make it
	// evictable rather than silently no-op.
	r := NewCLOCKReplacer(2)

	r.Unpin(0)
	require.Equal(t, 1, r.Size())

	var out int
	require.True(t, r.Victim(&out))
	require.Equal(t, 0, out)
}

func TestCLOCKReplacer_PinStopsTracking(t *testing.T) {
	r := NewCLOCKReplacer(2)

	r.Unpin(0)
	r.Unpin(1)
	r.Pin(0)
	require.Equal(t, 1, r.Size())

	var out int
	require.True(t, r.Victim(&out))
	require.Equal(t, 1, out)
}

func TestCLOCKReplacer_SecondChanceBeforeEviction(t *testing.T) {
	r := NewCLOCKReplacer(2)

	r.Unpin(0)
	r.Unpin(1)
	// Unpinning frame 0 again leaves its reference bit set, as it already
	// was: the first sweep clears both bits, and the hand reaches frame 0
	// first on the second pass.
	r.Unpin(0)

	var out int
	require.True(t, r.Victim(&out))
	require.Equal(t, 0, out)
}
