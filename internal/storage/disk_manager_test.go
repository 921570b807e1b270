package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDiskManager(t *testing.T) *DiskManager {
	t.Helper()
	dir := t.TempDir()
	dm, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return dm
}

func TestDiskManager_AllocateDeallocateRoundTrip(t *testing.T) {
	dm := newTestDiskManager(t)

	// Open reserves pages 0 and 1 (catalog meta and index roots), so the
	// first allocation is page 2 and the count includes the reserved pages.
	id, err := dm.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, int32(2), id)
	require.Equal(t, uint32(3), dm.NumAllocatedPages())

	free, err := dm.IsPageFree(id)
	require.NoError(t, err)
	require.False(t, free)

	require.NoError(t, dm.DeAllocatePage(id))
	require.Equal(t, uint32(2), dm.NumAllocatedPages())

	free, err = dm.IsPageFree(id)
	require.NoError(t, err)
	require.True(t, free)

	// Double free is a no-op.
	require.NoError(t, dm.DeAllocatePage(id))
	require.Equal(t, uint32(2), dm.NumAllocatedPages())
}

func TestDiskManager_BitmapWrapReusesFreedPage(t *testing.T) {
	dm := newTestDiskManager(t)

	ids := make([]int32, BitmapSize)
	for i := range ids {
		id, err := dm.AllocatePage()
		require.NoError(t, err)
		ids[i] = id
	}
	// Plus the two pages Open reserves.
	require.Equal(t, uint32(BitmapSize)+2, dm.NumAllocatedPages())

	require.NoError(t, dm.DeAllocatePage(ids[7]))

	next, err := dm.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, ids[7], next)
}

func TestDiskManager_ReadWritePageRoundTrip(t *testing.T) {
	dm := newTestDiskManager(t)

	id, err := dm.AllocatePage()
	require.NoError(t, err)

	var buf [PageSize]byte
	for i := range buf {
		buf[i] = byte(i)
	}
	require.NoError(t, dm.WritePage(id, buf[:]))

	var out [PageSize]byte
	require.NoError(t, dm.ReadPage(id, out[:]))
	require.Equal(t, buf, out)
}

func TestDiskManager_ReadPageBeyondEOFZeroFills(t *testing.T) {
	dm := newTestDiskManager(t)

	id, err := dm.AllocatePage()
	require.NoError(t, err)

	var out [PageSize]byte
	for i := range out {
		out[i] = 0xFF
	}
	require.NoError(t, dm.ReadPage(id, out[:]))

	var zero [PageSize]byte
	require.Equal(t, zero, out)
}
