package storage

import "github.com/minisql-engine/core/internal/alias/bx"

// indexRootsHeaderSize is the size of the fixed header before the entry
// array: just numEntries.
const indexRootsHeaderSize = 4

// indexRootEntrySize is one (indexID, rootPageID, height) triple.
const indexRootEntrySize = 12

// MaxIndexRoots bounds how many indexes' roots this single page can track.
const MaxIndexRoots = (PageSize - indexRootsHeaderSize) / indexRootEntrySize

// IndexRootsPage is the typed view of the fixed registry page (physical page
// IndexRootsPageID) that every B+-tree index registers its root page id and
// height in, so a tree can be reopened after restart without a side file.
// Layout:
//
//	offset 0: u32 numEntries
//	then numEntries * [u32 indexID | u32 rootPageID | u32 height]
type IndexRootsPage struct {
	buf []byte
}

func WrapIndexRootsPage(buf []byte) *IndexRootsPage { return &IndexRootsPage{buf: buf} }

func InitIndexRootsPage(buf []byte) *IndexRootsPage {
	for i := range buf {
		buf[i] = 0
	}
	return &IndexRootsPage{buf: buf}
}

func (r *IndexRootsPage) numEntries() int     { return int(bx.U32(r.buf[0:4])) }
func (r *IndexRootsPage) setNumEntries(n int) { bx.PutU32(r.buf[0:4], uint32(n)) }

func (r *IndexRootsPage) entryOffset(i int) int { return indexRootsHeaderSize + i*indexRootEntrySize }

func (r *IndexRootsPage) readEntry(i int) (indexID uint32, rootPageID int32, height uint32) {
	off := r.entryOffset(i)
	indexID = bx.U32(r.buf[off : off+4])
	rootPageID = int32(bx.U32(r.buf[off+4 : off+8]))
	height = bx.U32(r.buf[off+8 : off+12])
	return
}

func (r *IndexRootsPage) writeEntry(i int, indexID uint32, rootPageID int32, height uint32) {
	off := r.entryOffset(i)
	bx.PutU32(r.buf[off:off+4], indexID)
	bx.PutU32(r.buf[off+4:off+8], uint32(rootPageID))
	bx.PutU32(r.buf[off+8:off+12], height)
}

func (r *IndexRootsPage) indexOf(indexID uint32) int {
	n := r.numEntries()
	for i := 0; i < n; i++ {
		id, _, _ := r.readEntry(i)
		if id == indexID {
			return i
		}
	}
	return -1
}

// GetRoot returns the registered (rootPageID, height) for indexID, or
// ok=false if no entry has been registered yet.
func (r *IndexRootsPage) GetRoot(indexID uint32) (rootPageID int32, height int, ok bool) {
	i := r.indexOf(indexID)
	if i < 0 {
		return InvalidPageID, 0, false
	}
	_, root, h := r.readEntry(i)
	return root, int(h), true
}

// SetRoot registers or updates indexID's root page id and height. It
// returns ErrIndexRootsFull if indexID is new and the registry has no
// remaining slots.
func (r *IndexRootsPage) SetRoot(indexID uint32, rootPageID int32, height int) error {
	if i := r.indexOf(indexID); i >= 0 {
		r.writeEntry(i, indexID, rootPageID, uint32(height))
		return nil
	}
	n := r.numEntries()
	if n >= MaxIndexRoots {
		return ErrIndexRootsFull
	}
	r.writeEntry(n, indexID, rootPageID, uint32(height))
	r.setNumEntries(n + 1)
	return nil
}

// RemoveRoot deletes indexID's entry, compacting the array so slots stay
// dense. Returns false if indexID had no entry.
func (r *IndexRootsPage) RemoveRoot(indexID uint32) bool {
	i := r.indexOf(indexID)
	if i < 0 {
		return false
	}
	n := r.numEntries()
	last := n - 1
	if i != last {
		id, root, h := r.readEntry(last)
		r.writeEntry(i, id, root, h)
	}
	r.setNumEntries(last)
	return true
}
