package heap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minisql-engine/core/internal/bufferpool"
	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

func newTestHeap(t *testing.T, poolSize int) *TableHeap {
	t.Helper()
	dir := t.TempDir()
	dm, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	bp := bufferpool.NewBufferPoolManager(dm, poolSize, bufferpool.NewLRUReplacer())
	th, err := CreateTableHeap(bp)
	require.NoError(t, err)
	return th
}

func TestTableHeap_InsertGetRoundTrip(t *testing.T) {
	th := newTestHeap(t, 8)

	rid, err := th.InsertTuple([]byte("row-one"))
	require.NoError(t, err)

	got, err := th.GetTuple(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("row-one"), got)
}

func TestTableHeap_InsertOverflowsToNewPage(t *testing.T) {
	th := newTestHeap(t, 8)

	tuple := make([]byte, 200)
	var rids []record.RowID
	for i := 0; i < 100; i++ {
		rid, err := th.InsertTuple(tuple)
		require.NoError(t, err)
		rids = append(rids, rid)
	}

	// Some rows must have landed on a page other than the first.
	sawSecondPage := false
	for _, r := range rids {
		if r.PageID != th.FirstPageID() {
			sawSecondPage = true
			break
		}
	}
	require.True(t, sawSecondPage)
}

func TestTableHeap_MarkDeleteApplyRollback(t *testing.T) {
	th := newTestHeap(t, 8)

	rid, err := th.InsertTuple([]byte("doomed"))
	require.NoError(t, err)

	require.NoError(t, th.MarkDelete(rid))
	_, err = th.GetTuple(rid)
	require.ErrorIs(t, err, ErrRowNotFound)

	require.NoError(t, th.RollbackDelete(rid))
	got, err := th.GetTuple(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("doomed"), got)

	require.NoError(t, th.MarkDelete(rid))
	require.NoError(t, th.ApplyDelete(rid))
	_, err = th.GetTuple(rid)
	require.ErrorIs(t, err, ErrRowNotFound)
}

func TestTableHeap_UpdateTupleInPlaceAndMoved(t *testing.T) {
	th := newTestHeap(t, 8)

	rid, err := th.InsertTuple([]byte("abcdef"))
	require.NoError(t, err)

	newRid, moved, err := th.UpdateTuple(rid, []byte("xyz"))
	require.NoError(t, err)
	require.False(t, moved)
	require.Equal(t, rid, newRid)

	got, err := th.GetTuple(newRid)
	require.NoError(t, err)
	require.Equal(t, []byte("xyz"), got)

	bigger := make([]byte, 4000)
	newRid2, moved2, err := th.UpdateTuple(newRid, bigger)
	require.NoError(t, err)
	require.True(t, moved2)
	require.NotEqual(t, newRid, newRid2)

	_, err = th.GetTuple(newRid)
	require.ErrorIs(t, err, ErrRowNotFound)
}

func TestTableIterator_WalksAllLiveTuplesAndEndsEqual(t *testing.T) {
	th := newTestHeap(t, 8)

	for i := 0; i < 5; i++ {
		_, err := th.InsertTuple([]byte{byte(i)})
		require.NoError(t, err)
	}
	// Delete the middle one.
	mid := record.RowID{PageID: th.FirstPageID(), SlotID: 2}
	require.NoError(t, th.MarkDelete(mid))

	it, err := th.Begin()
	require.NoError(t, err)

	count := 0
	for it.Valid() {
		count++
		require.NoError(t, it.Next())
	}
	require.Equal(t, 4, count)

	end1, err := th.Begin()
	require.NoError(t, err)
	for end1.Valid() {
		require.NoError(t, end1.Next())
	}
	end2, err := th.Begin()
	require.NoError(t, err)
	for end2.Valid() {
		require.NoError(t, end2.Next())
	}
	require.True(t, end1.Equal(end2))
}
