package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTree_DeleteRoundTripToEmpty(t *testing.T) {
	tree, th := newTestTreeAndHeap(t)

	const n = 500
	for i := 0; i < n; i++ {
		rid, err := th.InsertTuple([]byte(fmt.Sprintf("row-%04d", i)))
		require.NoError(t, err)
		require.NoError(t, tree.Insert(int64(i), rid))
	}
	require.Greater(t, tree.Height, 1)

	for i := 0; i < n; i++ {
		require.NoError(t, tree.Delete(int64(i)), "delete key %d", i)
	}

	require.Equal(t, 1, tree.Height)

	rids, err := tree.RangeScan(0, n-1)
	require.NoError(t, err)
	require.Empty(t, rids)

	g, err := tree.bp.FetchPage(int32(tree.Root))
	require.NoError(t, err)
	root := &LeafNode{Page: g.Page()}
	require.Equal(t, 0, root.NumKeys())
	g.Release(false)
}

func TestTree_DeleteMissingKeyReturnsNotFound(t *testing.T) {
	tree, th := newTestTreeAndHeap(t)

	rid, err := th.InsertTuple([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, tree.Insert(1, rid))

	require.ErrorIs(t, tree.Delete(99), ErrKeyNotFound)
}

func TestTree_DeleteRedistributeAndCoalesceAcrossLeaves(t *testing.T) {
	tree, th := newTestTreeAndHeap(t)

	const n = 200
	for i := 0; i < n; i++ {
		rid, err := th.InsertTuple([]byte(fmt.Sprintf("row-%04d", i)))
		require.NoError(t, err)
		require.NoError(t, tree.Insert(int64(i), rid))
	}
	require.Greater(t, tree.Height, 1, "setup should have split into more than one leaf")

	// Delete the lower half: the left leaf(s) underflow one at a time,
	// forcing a mix of redistribute (while a sibling still has entries to
	// spare) and coalesce (once neighbors drop below the combined-fits
	// threshold) before the tree eventually collapses back to one leaf.
	const deleteUpTo = 151
	for i := 0; i < deleteUpTo; i++ {
		require.NoError(t, tree.Delete(int64(i)), "delete key %d", i)
	}

	require.Equal(t, 1, tree.Height, "remaining keys should fit back in a single leaf")

	rids, err := tree.RangeScan(0, n-1)
	require.NoError(t, err)
	require.Len(t, rids, n-deleteUpTo)

	for i := 0; i < deleteUpTo; i++ {
		rids, err := tree.SearchEqual(int64(i))
		require.NoError(t, err)
		require.Empty(t, rids, "key %d should have been deleted", i)
	}
	for i := deleteUpTo; i < n; i++ {
		rids, err := tree.SearchEqual(int64(i))
		require.NoError(t, err)
		require.Len(t, rids, 1, "key %d should still be present", i)
	}

	require.ErrorIs(t, tree.Delete(int64(100)), ErrKeyNotFound)
}
