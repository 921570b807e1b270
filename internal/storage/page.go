package storage

import "github.com/minisql-engine/core/internal/alias/bx"

// Page layout:
//
//	+------------------+ 0
//	| flags, pageID    |
//	| lower, upper     | <-- header, HeaderSize bytes
//	+------------------+
//	| Slot array       | <-- grows up from HeaderSize, lower tracks its end
//	+------------------+
//	|   Free space     |
//	+------------------+ <-- upper
//	|  Tuple data       | <-- grows down from the start of the special region
//	+------------------+ PageSize - SpecialSize
//	|  Special space    | <-- fixed size, owner-defined (e.g. next_page_id,
//	+------------------+ PageSize       the B+-tree node header)
const (
	HeaderSize = 12
	SlotSize   = 6

	// SpecialSize is large enough to hold the B+-tree's per-node header
	// (page_type, max_size, parent_page_id, lsn, next_page_id — 19 bytes,
	// see internal/btree/header.go) in addition to the 4 bytes TablePage
	// uses for its own next-page link.
	SpecialSize = 24
)

const (
	SlotFlagNormal  uint16 = 0
	SlotFlagDeleted uint16 = 1
	SlotFlagMoved   uint16 = 2
)

// Page is a typed view over a PageSize-byte buffer implementing the slotted
// tuple layout shared by table pages and other variable-length-record pages.
// It never owns the buffer; callers obtain buf from a buffer pool frame.
type Page struct {
	buf []byte
}

// NewPage zeroes buf and initializes it as an empty page with the given id.
func NewPage(buf []byte, pageID uint32) *Page {
	for i := range buf {
		buf[i] = 0
	}
	p := &Page{buf: buf}
	bx.PutU32(buf[2:6], pageID)
	p.setLower(HeaderSize)
	p.setUpper(PageSize - SpecialSize)
	return p
}

// WrapPage views a buffer that is already an initialized Page, without
// touching its contents.
func WrapPage(buf []byte) *Page { return &Page{buf: buf} }

// Reset reinitializes the page in place as empty, discarding all slots and
// tuple data, and reassigns its id. Used when a page is being rebuilt
// wholesale (e.g. a B+-tree node rewritten after a split).
func (p *Page) Reset(pageID uint32) {
	NewPage(p.buf, pageID)
}

func (p *Page) PageID() uint32 { return bx.U32(p.buf[2:6]) }

func (p *Page) lower() int { return int(bx.U16(p.buf[6:8])) }
func (p *Page) setLower(v int) { bx.PutU16(p.buf[6:8], uint16(v)) }

func (p *Page) upper() int { return int(bx.U16(p.buf[8:10])) }
func (p *Page) setUpper(v int) { bx.PutU16(p.buf[8:10], uint16(v)) }

func (p *Page) special() int { return PageSize - SpecialSize }

// Special returns the fixed-size trailer reserved for the page owner (for
// example TablePage stores its next_page_id here). Mutations are visible
// immediately since it aliases the underlying buffer.
func (p *Page) Special() []byte { return p.buf[p.special():PageSize] }

// FreeSpace is the number of contiguous bytes available for a new slot plus
// its tuple.
func (p *Page) FreeSpace() int { return p.upper() - p.lower() }

func (p *Page) NumSlots() int { return (p.lower() - HeaderSize) / SlotSize }

type pageSlot struct {
	Offset, Length, Flags uint16
}

func (p *Page) slotOff(i int) int { return HeaderSize + i*SlotSize }

func (p *Page) getSlot(i int) (pageSlot, error) {
	if i < 0 || i >= p.NumSlots() {
		return pageSlot{}, ErrBadSlot
	}
	o := p.slotOff(i)
	return pageSlot{
		Offset: bx.U16(p.buf[o : o+2]),
		Length: bx.U16(p.buf[o+2 : o+4]),
		Flags:  bx.U16(p.buf[o+4 : o+6]),
	}, nil
}

func (p *Page) putSlot(i int, s pageSlot) {
	o := p.slotOff(i)
	bx.PutU16(p.buf[o:o+2], s.Offset)
	bx.PutU16(p.buf[o+2:o+4], s.Length)
	bx.PutU16(p.buf[o+4:o+6], s.Flags)
}

func (p *Page) appendSlot(s pageSlot) int {
	i := p.NumSlots()
	p.setLower(p.lower() + SlotSize)
	p.putSlot(i, s)
	return i
}

// InsertTuple appends a new slot and writes tup into the free space region,
// returning the new slot index. It returns ErrNoSpace if the tuple plus a
// new slot entry do not fit in the page's remaining free space.
func (p *Page) InsertTuple(tup []byte) (int, error) {
	need := len(tup) + SlotSize
	if p.FreeSpace() < need {
		return -1, ErrNoSpace
	}
	u := p.upper() - len(tup)
	copy(p.buf[u:u+len(tup)], tup)
	p.setUpper(u)
	return p.appendSlot(pageSlot{Offset: uint16(u), Length: uint16(len(tup)), Flags: SlotFlagNormal}), nil
}

// ReadTuple returns the tuple bytes stored at slot i. It returns ErrBadSlot
// for an out-of-range slot or one flagged SlotFlagDeleted.
func (p *Page) ReadTuple(i int) ([]byte, error) {
	s, err := p.getSlot(i)
	if err != nil {
		return nil, err
	}
	if s.Flags == SlotFlagDeleted {
		return nil, ErrBadSlot
	}
	return p.buf[s.Offset : s.Offset+s.Length], nil
}

// UpdateTuple overwrites slot i in place when newTuple is no longer than the
// tuple currently stored in the slot (a slot shrunk by an earlier update does
// not regain its old length); it returns ErrNoSpace when the new value is
// larger, leaving the caller to relocate
// the tuple elsewhere (TableHeap does this via InsertTuple + MarkDelete).
func (p *Page) UpdateTuple(i int, newTuple []byte) error {
	s, err := p.getSlot(i)
	if err != nil {
		return err
	}
	if s.Flags == SlotFlagDeleted {
		return ErrBadSlot
	}
	if len(newTuple) > int(s.Length) {
		return ErrNoSpace
	}
	copy(p.buf[s.Offset:s.Offset+uint16(len(newTuple))], newTuple)
	s.Length = uint16(len(newTuple))
	p.putSlot(i, s)
	return nil
}

// MarkDelete flags slot i as deleted without reclaiming its bytes, so the
// deletion can still be rolled back.
func (p *Page) MarkDelete(i int) error {
	s, err := p.getSlot(i)
	if err != nil {
		return err
	}
	s.Flags = SlotFlagDeleted
	p.putSlot(i, s)
	return nil
}

// RollbackDelete un-flags a previously MarkDelete'd slot.
func (p *Page) RollbackDelete(i int) error {
	s, err := p.getSlot(i)
	if err != nil {
		return err
	}
	s.Flags = SlotFlagNormal
	p.putSlot(i, s)
	return nil
}

// ApplyDelete physically zeroes a deleted slot's tuple bytes. The slot entry
// itself is retained (with zero length) so RowIds referencing it by index
// remain stable; compaction/reclaiming the freed space is not attempted.
func (p *Page) ApplyDelete(i int) error {
	s, err := p.getSlot(i)
	if err != nil {
		return err
	}
	for b := s.Offset; b < s.Offset+s.Length; b++ {
		p.buf[b] = 0
	}
	s.Length = 0
	p.putSlot(i, s)
	return nil
}
