package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minisql-engine/core/internal/bufferpool"
	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

// newTestLeaf creates a LeafNode backed by a fresh page from a test buffer pool.
func newTestLeaf(t *testing.T) (*LeafNode, *bufferpool.PageGuard) {
	t.Helper()

	dir := t.TempDir()
	dm, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	bp := bufferpool.NewBufferPoolManager(dm, 8, bufferpool.NewLRUReplacer())
	g, err := bp.NewPage()
	require.NoError(t, err)

	return &LeafNode{Page: g.Page()}, g
}

func TestLeaf_AppendAndEntryAt(t *testing.T) {
	leaf, g := newTestLeaf(t)
	defer g.Release(false)

	for i := int64(1); i <= 5; i++ {
		rid := record.RowID{PageID: 123, SlotID: uint32(i)}
		require.NoError(t, leaf.AppendEntry(i, rid))
	}

	require.Equal(t, 5, leaf.NumKeys())

	for i := 0; i < leaf.NumKeys(); i++ {
		k, rid, err := leaf.EntryAt(i)
		require.NoError(t, err)
		require.Equal(t, KeyType(i+1), k)
		require.Equal(t, int32(123), rid.PageID)
		require.Equal(t, uint32(i+1), rid.SlotID)
	}
}

func TestLeaf_FindEqualAndRange(t *testing.T) {
	leaf, g := newTestLeaf(t)
	defer g.Release(false)

	// Insert keys: 1,2,3,3,4,5 (leaves accept entries in any order).
	keys := []KeyType{1, 2, 3, 3, 4, 5}
	for i, k := range keys {
		rid := record.RowID{PageID: 1, SlotID: uint32(i)}
		require.NoError(t, leaf.AppendEntry(k, rid))
	}

	rids, err := leaf.FindEqual(3)
	require.NoError(t, err)
	require.Len(t, rids, 2)
	for _, rid := range rids {
		require.Equal(t, int32(1), rid.PageID)
	}

	rangeRIDs, err := leaf.Range(2, 4)
	require.NoError(t, err)
	require.Len(t, rangeRIDs, 4)

	for _, rid := range rangeRIDs {
		found := false
		for i := 0; i < leaf.NumKeys(); i++ {
			k, r, err := leaf.EntryAt(i)
			require.NoError(t, err)
			if r == rid {
				require.GreaterOrEqual(t, k, KeyType(2))
				require.LessOrEqual(t, k, KeyType(4))
				found = true
				break
			}
		}
		require.True(t, found, "rid not found in leaf entries")
	}
}

func TestLeaf_ReadEntriesAndRebuildSorted(t *testing.T) {
	leaf, g := newTestLeaf(t)
	defer g.Release(false)

	unsorted := []KeyType{5, 1, 3}
	for i, k := range unsorted {
		require.NoError(t, leaf.AppendEntry(k, record.RowID{PageID: 1, SlotID: uint32(i)}))
	}

	entries, err := leaf.readEntries()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	sortLeafEntries(entries)
	require.NoError(t, leaf.rebuildSorted(entries))

	for i, want := range []KeyType{1, 3, 5} {
		k, _, err := leaf.EntryAt(i)
		require.NoError(t, err)
		require.Equal(t, want, k)
	}
}
