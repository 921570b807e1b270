package btree

import (
	"github.com/minisql-engine/core/internal/alias/bx"
	"github.com/minisql-engine/core/internal/storage"
)

// Every B+-tree node page carries the common header spec.md §3 describes
// ahead of its entries: (page_type, lsn, max_size, parent_page_id). Leaves
// add next_page_id. All of it lives in storage.Page's owner-defined Special
// trailer, at these fixed byte offsets.
const (
	NodePageTypeInvalid  uint8 = 0
	NodePageTypeLeaf     uint8 = 1
	NodePageTypeInternal uint8 = 2
)

const (
	hdrOffPageType     = 0
	hdrOffMaxSize      = 1  // uint16
	hdrOffParentPageID = 3  // uint32
	hdrOffLSN          = 7  // uint64 (int64)
	hdrOffNextPageID   = 15 // uint32, leaf only
)

func headerPageType(p *storage.Page) uint8       { return p.Special()[hdrOffPageType] }
func setHeaderPageType(p *storage.Page, t uint8) { p.Special()[hdrOffPageType] = t }

func headerMaxSize(p *storage.Page) int {
	return int(bx.U16(p.Special()[hdrOffMaxSize : hdrOffMaxSize+2]))
}
func setHeaderMaxSize(p *storage.Page, v int) {
	bx.PutU16(p.Special()[hdrOffMaxSize:hdrOffMaxSize+2], uint16(v))
}

func headerParentPageID(p *storage.Page) int32 {
	return int32(bx.U32(p.Special()[hdrOffParentPageID : hdrOffParentPageID+4]))
}
func setHeaderParentPageID(p *storage.Page, id int32) {
	bx.PutU32(p.Special()[hdrOffParentPageID:hdrOffParentPageID+4], uint32(id))
}

func headerLSN(p *storage.Page) int64 {
	return int64(bx.U64(p.Special()[hdrOffLSN : hdrOffLSN+8]))
}
func setHeaderLSN(p *storage.Page, lsn int64) {
	bx.PutU64(p.Special()[hdrOffLSN:hdrOffLSN+8], uint64(lsn))
}

func headerNextPageID(p *storage.Page) int32 {
	return int32(bx.U32(p.Special()[hdrOffNextPageID : hdrOffNextPageID+4]))
}
func setHeaderNextPageID(p *storage.Page, id int32) {
	bx.PutU32(p.Special()[hdrOffNextPageID:hdrOffNextPageID+4], uint32(id))
}

// initNodeHeader stamps a freshly allocated page's header. Callers always
// run this exactly once, right after storage.NewPage zeroes the buffer and
// before any entries are appended.
func initNodeHeader(p *storage.Page, pageType uint8, maxSize int, parentPageID int32) {
	setHeaderPageType(p, pageType)
	setHeaderMaxSize(p, maxSize)
	setHeaderParentPageID(p, parentPageID)
	setHeaderLSN(p, 0)
	setHeaderNextPageID(p, storage.InvalidPageID)
}

// ceilDiv is the integer ceiling of a/b, used for the ceil(max_size/2)
// underflow floor.
func ceilDiv(a, b int) int { return (a + b - 1) / b }
