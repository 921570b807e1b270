package storage

import "github.com/minisql-engine/core/internal/alias/bx"

// IndexMetaMagic frames an index meta page, checked on open.
const IndexMetaMagic uint32 = 0x49445831 // "IDX1"

// indexMetaHeaderSize is the fixed header before the variable-length name
// and key-column-name bytes: magic + indexID + tableID + nameLen + keyColLen.
const indexMetaHeaderSize = 4 + 4 + 4 + 2 + 2

// IndexMetaPage is the typed view of one index's dedicated metadata page,
// referenced from the CatalogMetaPage's index region. It records which
// table the index belongs to and which column it indexes; the B+-tree's
// own root page id and height live in the shared IndexRootsPage, keyed by
// the same indexID. Layout:
//
//	offset 0:  u32 magic
//	offset 4:  u32 indexID
//	offset 8:  u32 tableID
//	offset 12: u16 nameLen
//	offset 14: u16 keyColumnLen
//	offset 16: name bytes
//	then:      key column name bytes
type IndexMetaPage struct {
	buf []byte
}

func WrapIndexMetaPage(buf []byte) *IndexMetaPage { return &IndexMetaPage{buf: buf} }

// InitIndexMetaPage lays out a fresh index meta page. It returns
// ErrIndexMetaTooLarge if name+keyColumn do not fit in the page.
func InitIndexMetaPage(buf []byte, indexID, tableID uint32, name, keyColumn string) (*IndexMetaPage, error) {
	nameB, keyB := []byte(name), []byte(keyColumn)
	if indexMetaHeaderSize+len(nameB)+len(keyB) > len(buf) {
		return nil, ErrIndexMetaTooLarge
	}
	for i := range buf {
		buf[i] = 0
	}
	m := &IndexMetaPage{buf: buf}
	bx.PutU32(m.buf[0:4], IndexMetaMagic)
	bx.PutU32(m.buf[4:8], indexID)
	bx.PutU32(m.buf[8:12], tableID)
	bx.PutU16(m.buf[12:14], uint16(len(nameB)))
	bx.PutU16(m.buf[14:16], uint16(len(keyB)))
	off := indexMetaHeaderSize
	off += copy(m.buf[off:], nameB)
	copy(m.buf[off:], keyB)
	return m, nil
}

func (m *IndexMetaPage) Magic() uint32   { return bx.U32(m.buf[0:4]) }
func (m *IndexMetaPage) IndexID() uint32 { return bx.U32(m.buf[4:8]) }
func (m *IndexMetaPage) TableID() uint32 { return bx.U32(m.buf[8:12]) }
func (m *IndexMetaPage) nameLen() int    { return int(bx.U16(m.buf[12:14])) }
func (m *IndexMetaPage) keyColumnLen() int { return int(bx.U16(m.buf[14:16])) }

func (m *IndexMetaPage) Name() string {
	off := indexMetaHeaderSize
	return string(m.buf[off : off+m.nameLen()])
}

func (m *IndexMetaPage) KeyColumn() string {
	off := indexMetaHeaderSize + m.nameLen()
	return string(m.buf[off : off+m.keyColumnLen()])
}
