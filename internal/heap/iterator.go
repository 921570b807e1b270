package heap

import (
	"errors"

	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

// TableIterator walks a TableHeap's page chain in insertion order, skipping
// deleted slots. It pins at most one page at a time.
type TableIterator struct {
	heap   *TableHeap
	pageID int32
	slot   int
	row    []byte // cached tuple for the current position; nil at End()
}

// advance moves to the next live tuple starting from the iterator's current
// (pageID, slot), leaving row nil if the chain is exhausted.
func (it *TableIterator) advance() error {
	for it.pageID != storage.InvalidPageID {
		g, err := it.heap.bp.FetchPage(it.pageID)
		if err != nil {
			return err
		}
		tp := WrapTablePage(g.Raw())
		it.slot++
		for it.slot < tp.NumSlots() {
			data, rerr := tp.ReadTuple(it.slot)
			if rerr == nil {
				out := make([]byte, len(data))
				copy(out, data)
				it.row = out
				g.Release(false)
				return nil
			}
			if !errors.Is(rerr, storage.ErrBadSlot) {
				g.Release(false)
				return rerr
			}
			it.slot++ // deleted slot, skip
		}
		next := tp.NextPageID()
		g.Release(false)
		it.pageID = next
		it.slot = -1
	}
	it.row = nil
	return nil
}

// Valid reports whether the iterator is positioned at a live tuple.
func (it *TableIterator) Valid() bool { return it.row != nil }

// RowID returns the current position's identity. Only meaningful when Valid.
func (it *TableIterator) RowID() record.RowID {
	return record.RowID{PageID: it.pageID, SlotID: uint32(it.slot)}
}

// Tuple returns the current position's raw tuple bytes. Only meaningful
// when Valid.
func (it *TableIterator) Tuple() []byte { return it.row }

// Next advances the iterator by one live tuple.
func (it *TableIterator) Next() error { return it.advance() }

// Equal compares two iterators by position. Both operands short-circuit to
// equal when neither holds a live row (i.e. both are at End()), without
// dereferencing the row itself: the original engine compared RowIds
// unconditionally, which null-dereferenced the row pointer once the
// iterator ran past the last page.
func (it *TableIterator) Equal(other *TableIterator) bool {
	if it.row == nil || other.row == nil {
		return it.row == nil && other.row == nil
	}
	return it.pageID == other.pageID && it.slot == other.slot
}
