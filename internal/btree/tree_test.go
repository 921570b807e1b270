package btree

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minisql-engine/core/internal/bufferpool"
	"github.com/minisql-engine/core/internal/heap"
	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

func newTestTreeAndHeap(t *testing.T) (*Tree, *heap.TableHeap) {
	t.Helper()

	dir := t.TempDir()
	dm, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	bp := bufferpool.NewBufferPoolManager(dm, 64, bufferpool.NewLRUReplacer())

	th, err := heap.CreateTableHeap(bp)
	require.NoError(t, err)

	tree, err := NewTree(bp, 1)
	require.NoError(t, err)

	return tree, th
}

func TestTree_InsertAndSearchEqual(t *testing.T) {
	tree, th := newTestTreeAndHeap(t)

	schema := record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt64, Nullable: false},
		{Name: "name", Type: record.ColText, Nullable: false},
		{Name: "active", Type: record.ColBool, Nullable: false},
	}}

	for i := 1; i <= 10; i++ {
		data, err := record.EncodeRow(schema, []any{int64(i), fmt.Sprintf("user-%d", i), i%2 == 0})
		require.NoError(t, err)

		rid, err := th.InsertTuple(data)
		require.NoError(t, err)

		require.NoError(t, tree.Insert(int64(i), rid))
	}

	rids, err := tree.SearchEqual(7)
	require.NoError(t, err)
	require.Len(t, rids, 1)

	raw, err := th.GetTuple(rids[0])
	require.NoError(t, err)
	row, err := record.DecodeRow(schema, raw)
	require.NoError(t, err)
	require.Equal(t, int64(7), row[0].(int64))
	require.Equal(t, "user-7", row[1].(string))
}

func TestTree_SplitsAcrossManyLeaves(t *testing.T) {
	tree, th := newTestTreeAndHeap(t)

	const n = 500
	for i := 0; i < n; i++ {
		rid, err := th.InsertTuple([]byte(fmt.Sprintf("row-%04d", i)))
		require.NoError(t, err)
		require.NoError(t, tree.Insert(int64(i), rid))
	}
	require.Greater(t, tree.Height, 1)

	rids, err := tree.RangeScan(100, 109)
	require.NoError(t, err)
	require.Len(t, rids, 10)
}

func TestTree_OutOfOrderInsertRejected(t *testing.T) {
	tree, th := newTestTreeAndHeap(t)

	rid1, err := th.InsertTuple([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, tree.Insert(5, rid1))

	rid2, err := th.InsertTuple([]byte("b"))
	require.NoError(t, err)
	require.ErrorIs(t, tree.Insert(3, rid2), ErrOutOfOrderInsert)
}

func TestTree_OpenTreeRestoresRootAndHeight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	dm, err := storage.Open(path)
	require.NoError(t, err)
	bp := bufferpool.NewBufferPoolManager(dm, 64, bufferpool.NewLRUReplacer())

	th, err := heap.CreateTableHeap(bp)
	require.NoError(t, err)
	tree, err := NewTree(bp, 2)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		rid, err := th.InsertTuple([]byte(fmt.Sprintf("row-%04d", i)))
		require.NoError(t, err)
		require.NoError(t, tree.Insert(int64(i), rid))
	}
	wantRoot, wantHeight := tree.Root, tree.Height
	require.NoError(t, tree.Close())
	require.NoError(t, dm.Close())

	dm2, err := storage.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm2.Close() })
	bp2 := bufferpool.NewBufferPoolManager(dm2, 64, bufferpool.NewLRUReplacer())

	reopened, err := OpenTree(bp2, 2)
	require.NoError(t, err)
	require.Equal(t, wantRoot, reopened.Root)
	require.Equal(t, wantHeight, reopened.Height)

	rids, err := reopened.SearchEqual(50)
	require.NoError(t, err)
	require.Len(t, rids, 1)
}

func TestTree_OpenUnregisteredIndexFails(t *testing.T) {
	dir := t.TempDir()
	dm, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	bp := bufferpool.NewBufferPoolManager(dm, 8, bufferpool.NewLRUReplacer())

	_, err = OpenTree(bp, 99)
	require.ErrorIs(t, err, ErrIndexNotFound)
}
