package storage

import "github.com/minisql-engine/core/internal/alias/bx"

// MetaPage is the typed view of physical page 0: the DiskManager's own
// bookkeeping page. Layout:
//
//	offset 0:  u32 numAllocatedPages
//	offset 4:  u32 numExtents
//	offset 8:  u32 nextFreeExtent -- optimistic cursor
//	offset 12: u32 extentUsedPage[MaxValidExtentID]
type MetaPage struct {
	buf []byte
}

func WrapMetaPage(buf []byte) *MetaPage { return &MetaPage{buf: buf} }

func InitMetaPage(buf []byte) *MetaPage {
	for i := range buf {
		buf[i] = 0
	}
	return &MetaPage{buf: buf}
}

func (m *MetaPage) NumAllocatedPages() uint32 { return bx.U32(m.buf[0:4]) }
func (m *MetaPage) setNumAllocatedPages(v uint32) { bx.PutU32(m.buf[0:4], v) }

func (m *MetaPage) NumExtents() uint32     { return bx.U32(m.buf[4:8]) }
func (m *MetaPage) setNumExtents(v uint32) { bx.PutU32(m.buf[4:8], v) }

func (m *MetaPage) NextFreeExtent() uint32     { return bx.U32(m.buf[8:12]) }
func (m *MetaPage) setNextFreeExtent(v uint32) { bx.PutU32(m.buf[8:12], v) }

func (m *MetaPage) extentOffset(extentID uint32) int {
	return metaHeaderSize + int(extentID)*4
}

// ExtentUsedPages returns how many pages of extentID are currently in use.
func (m *MetaPage) ExtentUsedPages(extentID uint32) uint32 {
	off := m.extentOffset(extentID)
	if off+4 > len(m.buf) {
		return 0
	}
	return bx.U32(m.buf[off : off+4])
}

func (m *MetaPage) setExtentUsedPages(extentID uint32, v uint32) {
	off := m.extentOffset(extentID)
	bx.PutU32(m.buf[off:off+4], v)
}
