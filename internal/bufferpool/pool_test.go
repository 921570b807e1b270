package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minisql-engine/core/internal/storage"
)

func newTestPool(t *testing.T, poolSize int, replacer Replacer) (*BufferPoolManager, *storage.DiskManager) {
	t.Helper()
	dir := t.TempDir()
	dm, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return NewBufferPoolManager(dm, poolSize, replacer), dm
}

func TestBufferPoolManager_NewPageFetchPageRoundTrip(t *testing.T) {
	bp, _ := newTestPool(t, 4, NewLRUReplacer())

	g, err := bp.NewPage()
	require.NoError(t, err)
	pageID := g.PageID()

	slot, err := g.Page().InsertTuple([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 0, slot)
	g.Release(true)

	require.NoError(t, bp.FlushPage(pageID))

	g2, err := bp.FetchPage(pageID)
	require.NoError(t, err)
	tup, err := g2.Page().ReadTuple(slot)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), tup)
	g2.Release(false)
}

func TestBufferPoolManager_DeletePageRefusesWhilePinned(t *testing.T) {
	bp, _ := newTestPool(t, 4, NewLRUReplacer())

	g, err := bp.NewPage()
	require.NoError(t, err)

	err = bp.DeletePage(g.PageID())
	require.ErrorIs(t, err, ErrPagePinned)

	g.Release(false)
	require.NoError(t, bp.DeletePage(g.PageID()))
}

func TestBufferPoolManager_EvictsWhenFull(t *testing.T) {
	bp, _ := newTestPool(t, 2, NewLRUReplacer())

	g1, err := bp.NewPage()
	require.NoError(t, err)
	g1.Release(false)

	g2, err := bp.NewPage()
	require.NoError(t, err)
	g2.Release(false)

	// Pool has 2 frames, both now unpinned; a third NewPage must evict one.
	g3, err := bp.NewPage()
	require.NoError(t, err)
	require.NotNil(t, g3)
	g3.Release(false)
}

func TestBufferPoolManager_NoFreeFrameWhenAllPinned(t *testing.T) {
	bp, _ := newTestPool(t, 1, NewLRUReplacer())

	g1, err := bp.NewPage()
	require.NoError(t, err)

	_, err = bp.NewPage()
	require.ErrorIs(t, err, ErrNoFreeFrame)

	g1.Release(false)
}

func TestBufferPoolManager_UnpinIsIdempotentForDirtyBit(t *testing.T) {
	bp, _ := newTestPool(t, 2, NewLRUReplacer())

	g, err := bp.NewPage()
	require.NoError(t, err)
	pageID := g.PageID()

	require.NoError(t, bp.UnpinPage(pageID, false))
	require.NoError(t, bp.UnpinPage(pageID, false))

	// NewPage set the dirty bit; unpinning with isDirty=false left it set.
	require.True(t, bp.frames[bp.pageTable[pageID]].dirty)

	// FlushPage still succeeds even though the page was never marked dirty
	// by the second Unpin call (first NewPage already marked it dirty).
	require.NoError(t, bp.FlushPage(pageID))
}
