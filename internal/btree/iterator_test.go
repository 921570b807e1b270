package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTree_IteratorFullScan(t *testing.T) {
	tree, th := newTestTreeAndHeap(t)

	const n = 500
	for i := 0; i < n; i++ {
		rid, err := th.InsertTuple([]byte(fmt.Sprintf("row-%04d", i)))
		require.NoError(t, err)
		require.NoError(t, tree.Insert(int64(i), rid))
	}
	require.Greater(t, tree.Height, 1)

	it, err := tree.Begin()
	require.NoError(t, err)

	var got []KeyType
	for it.Valid() {
		got = append(got, it.Key())
		require.NoError(t, it.Next())
	}

	require.Len(t, got, n)
	for i, k := range got {
		require.Equal(t, KeyType(i), k)
	}
}

func TestTree_IteratorBeginAtSeeksForward(t *testing.T) {
	tree, th := newTestTreeAndHeap(t)

	const n = 500
	for i := 0; i < n; i++ {
		rid, err := th.InsertTuple([]byte(fmt.Sprintf("row-%04d", i)))
		require.NoError(t, err)
		require.NoError(t, tree.Insert(int64(i), rid))
	}

	it, err := tree.BeginAt(250)
	require.NoError(t, err)

	require.True(t, it.Valid())
	require.Equal(t, KeyType(250), it.Key())

	count := 0
	for k := KeyType(250); it.Valid(); k++ {
		require.Equal(t, k, it.Key())
		count++
		require.NoError(t, it.Next())
	}
	require.Equal(t, n-250, count)
}

func TestTree_IteratorBeginAtKeyPastEndIsInvalid(t *testing.T) {
	tree, th := newTestTreeAndHeap(t)

	for i := 0; i < 10; i++ {
		rid, err := th.InsertTuple([]byte(fmt.Sprintf("row-%d", i)))
		require.NoError(t, err)
		require.NoError(t, tree.Insert(int64(i), rid))
	}

	it, err := tree.BeginAt(1000)
	require.NoError(t, err)
	require.False(t, it.Valid())
}

func TestTree_IteratorEmptyTreeIsInvalid(t *testing.T) {
	tree, _ := newTestTreeAndHeap(t)

	it, err := tree.Begin()
	require.NoError(t, err)
	require.False(t, it.Valid())
}
