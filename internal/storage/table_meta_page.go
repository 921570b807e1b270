package storage

import "github.com/minisql-engine/core/internal/alias/bx"

// TableMetaMagic frames a table meta page, checked on open.
const TableMetaMagic uint32 = 0x54424c31 // "TBL1"

// tableMetaHeaderSize is the fixed header before the variable-length name
// and schema bytes: magic + tableID + nameLen + heapFirstPageID + schemaLen.
const tableMetaHeaderSize = 4 + 4 + 2 + 4 + 2

// TableMetaPage is the typed view of one table's dedicated metadata page,
// referenced from the CatalogMetaPage's table region. It stores the table's
// name, the head page of its TableHeap, and its serialized Schema. Layout:
//
//	offset 0:  u32 magic
//	offset 4:  u32 tableID
//	offset 8:  u16 nameLen
//	offset 10: i32 heapFirstPageID
//	offset 14: u16 schemaLen
//	offset 16: name bytes
//	then:      schema bytes (record.Schema.Serialize output)
type TableMetaPage struct {
	buf []byte
}

func WrapTableMetaPage(buf []byte) *TableMetaPage { return &TableMetaPage{buf: buf} }

// InitTableMetaPage lays out a fresh table meta page. It returns
// ErrTableMetaTooLarge if name+schema do not fit in the page.
func InitTableMetaPage(buf []byte, tableID uint32, name string, heapFirstPageID int32, schema []byte) (*TableMetaPage, error) {
	nameB := []byte(name)
	if tableMetaHeaderSize+len(nameB)+len(schema) > len(buf) {
		return nil, ErrTableMetaTooLarge
	}
	for i := range buf {
		buf[i] = 0
	}
	t := &TableMetaPage{buf: buf}
	bx.PutU32(t.buf[0:4], TableMetaMagic)
	bx.PutU32(t.buf[4:8], tableID)
	bx.PutU16(t.buf[8:10], uint16(len(nameB)))
	bx.PutU32(t.buf[10:14], uint32(heapFirstPageID))
	bx.PutU16(t.buf[14:16], uint16(len(schema)))
	off := tableMetaHeaderSize
	off += copy(t.buf[off:], nameB)
	copy(t.buf[off:], schema)
	return t, nil
}

func (t *TableMetaPage) Magic() uint32   { return bx.U32(t.buf[0:4]) }
func (t *TableMetaPage) TableID() uint32 { return bx.U32(t.buf[4:8]) }
func (t *TableMetaPage) nameLen() int    { return int(bx.U16(t.buf[8:10])) }
func (t *TableMetaPage) HeapFirstPageID() int32 {
	return int32(bx.U32(t.buf[10:14]))
}
func (t *TableMetaPage) SetHeapFirstPageID(id int32) { bx.PutU32(t.buf[10:14], uint32(id)) }
func (t *TableMetaPage) schemaLen() int              { return int(bx.U16(t.buf[14:16])) }

func (t *TableMetaPage) Name() string {
	off := tableMetaHeaderSize
	return string(t.buf[off : off+t.nameLen()])
}

func (t *TableMetaPage) SchemaBytes() []byte {
	off := tableMetaHeaderSize + t.nameLen()
	return t.buf[off : off+t.schemaLen()]
}
