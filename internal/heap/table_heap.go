package heap

import (
	"errors"
	"sync"

	"github.com/minisql-engine/core/internal/bufferpool"
	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

// TableHeap is an unordered collection of tuples stored as a singly linked
// chain of TablePages. It does not interpret tuple bytes; callers encode
// rows with record.EncodeRow before Insert and decode them with
// record.DecodeRow after Get.
type TableHeap struct {
	bp *bufferpool.BufferPoolManager

	mu          sync.Mutex
	firstPageID int32
	lastPageID  int32
}

// CreateTableHeap allocates the first page of a brand new heap.
func CreateTableHeap(bp *bufferpool.BufferPoolManager) (*TableHeap, error) {
	g, err := bp.NewPage()
	if err != nil {
		return nil, err
	}
	pageID := g.PageID()
	NewTablePage(g.Raw(), uint32(pageID))
	g.Release(true)

	return &TableHeap{bp: bp, firstPageID: pageID, lastPageID: pageID}, nil
}

// OpenTableHeap resumes a heap whose first page is already on disk.
func OpenTableHeap(bp *bufferpool.BufferPoolManager, firstPageID int32) (*TableHeap, error) {
	th := &TableHeap{bp: bp, firstPageID: firstPageID, lastPageID: firstPageID}
	// Walk the chain once to find the current last page, so inserts don't
	// have to re-walk it on every call.
	pageID := firstPageID
	for {
		g, err := bp.FetchPage(pageID)
		if err != nil {
			return nil, err
		}
		next := WrapTablePage(g.Raw()).NextPageID()
		g.Release(false)
		if next == storage.InvalidPageID {
			break
		}
		pageID = next
	}
	th.lastPageID = pageID
	return th, nil
}

func (th *TableHeap) FirstPageID() int32 { return th.firstPageID }

// InsertTuple appends data to the last page of the chain. If it does not
// fit, TableHeap allocates exactly one new page, links it in, and retries
// there; a tuple that still doesn't fit on an empty page is rejected with
// ErrTupleTooLarge rather than retried indefinitely.
func (th *TableHeap) InsertTuple(data []byte) (record.RowID, error) {
	th.mu.Lock()
	defer th.mu.Unlock()

	pageID := th.lastPageID
	g, err := th.bp.FetchPage(pageID)
	if err != nil {
		return record.RowID{}, err
	}
	tp := WrapTablePage(g.Raw())
	slot, err := tp.InsertTuple(data)
	if err == nil {
		g.Release(true)
		return record.RowID{PageID: pageID, SlotID: uint32(slot)}, nil
	}
	g.Release(false)
	if !errors.Is(err, storage.ErrNoSpace) {
		return record.RowID{}, err
	}

	newG, err := th.bp.NewPage()
	if err != nil {
		return record.RowID{}, err
	}
	newPageID := newG.PageID()
	newTP := NewTablePage(newG.Raw(), uint32(newPageID))
	slot2, err := newTP.InsertTuple(data)
	if err != nil {
		newG.Release(false)
		_ = th.bp.DeletePage(newPageID)
		return record.RowID{}, ErrTupleTooLarge
	}
	newG.Release(true)

	oldG, err := th.bp.FetchPage(pageID)
	if err != nil {
		return record.RowID{}, err
	}
	WrapTablePage(oldG.Raw()).SetNextPageID(newPageID)
	oldG.Release(true)

	th.lastPageID = newPageID
	return record.RowID{PageID: newPageID, SlotID: uint32(slot2)}, nil
}

// GetTuple returns the raw tuple bytes stored at rid.
func (th *TableHeap) GetTuple(rid record.RowID) ([]byte, error) {
	g, err := th.bp.FetchPage(rid.PageID)
	if err != nil {
		return nil, err
	}
	defer g.Release(false)

	tp := WrapTablePage(g.Raw())
	data, err := tp.ReadTuple(int(rid.SlotID))
	if err != nil {
		if errors.Is(err, storage.ErrBadSlot) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// UpdateTuple overwrites rid in place when newData fits the slot's current
// footprint. Otherwise it marks the original slot deleted and inserts
// newData as a new tuple elsewhere, returning the new RowID and moved=true
// so callers (e.g. index entries) can repoint to it.
func (th *TableHeap) UpdateTuple(rid record.RowID, newData []byte) (newRid record.RowID, moved bool, err error) {
	g, err := th.bp.FetchPage(rid.PageID)
	if err != nil {
		return record.RowID{}, false, err
	}
	tp := WrapTablePage(g.Raw())
	if uerr := tp.UpdateTuple(int(rid.SlotID), newData); uerr == nil {
		g.Release(true)
		return rid, false, nil
	} else if !errors.Is(uerr, storage.ErrNoSpace) {
		g.Release(false)
		return record.RowID{}, false, uerr
	}
	g.Release(false)

	if merr := th.MarkDelete(rid); merr != nil {
		return record.RowID{}, false, merr
	}
	newRid, err = th.InsertTuple(newData)
	if err != nil {
		return record.RowID{}, false, err
	}
	return newRid, true, nil
}

// MarkDelete flags rid's slot as deleted without reclaiming its bytes, so
// the deletion can still be rolled back.
func (th *TableHeap) MarkDelete(rid record.RowID) error {
	g, err := th.bp.FetchPage(rid.PageID)
	if err != nil {
		return err
	}
	defer g.Release(true)
	return WrapTablePage(g.Raw()).MarkDelete(int(rid.SlotID))
}

// RollbackDelete un-flags a previously MarkDelete'd row.
func (th *TableHeap) RollbackDelete(rid record.RowID) error {
	g, err := th.bp.FetchPage(rid.PageID)
	if err != nil {
		return err
	}
	defer g.Release(true)
	return WrapTablePage(g.Raw()).RollbackDelete(int(rid.SlotID))
}

// ApplyDelete physically zeroes a MarkDelete'd row's bytes, making the
// deletion permanent.
func (th *TableHeap) ApplyDelete(rid record.RowID) error {
	g, err := th.bp.FetchPage(rid.PageID)
	if err != nil {
		return err
	}
	defer g.Release(true)
	return WrapTablePage(g.Raw()).ApplyDelete(int(rid.SlotID))
}

// Begin returns an iterator positioned at the first live tuple.
func (th *TableHeap) Begin() (*TableIterator, error) {
	it := &TableIterator{heap: th, pageID: th.firstPageID, slot: -1}
	if err := it.advance(); err != nil {
		return nil, err
	}
	return it, nil
}
