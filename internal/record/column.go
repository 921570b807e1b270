package record

import (
	"fmt"

	"github.com/minisql-engine/core/internal/alias/bx"
)

// ColumnMagic frames a serialized Column, asserted on Deserialize.
const ColumnMagic uint32 = 0x434f4c31 // "COL1"

// ColumnType is the on-disk type tag of a column. It refines spec's
// Int/Float/Char classification with the concrete widths the engine
// actually stores: ColInt32/ColInt64 both classify as Int, ColFloat64 as
// Float, ColText as variable-length Char. ColBool/ColBytes are engine
// extensions beyond the three-type classification.
type ColumnType uint8

const (
	ColInt32 ColumnType = iota
	ColInt64
	ColBool
	ColFloat64
	ColText  // UTF-8, variable length unless Length > 0
	ColBytes // opaque bytes
)

func (t ColumnType) String() string {
	switch t {
	case ColInt32:
		return "INT32"
	case ColInt64:
		return "INT64"
	case ColBool:
		return "BOOL"
	case ColFloat64:
		return "FLOAT64"
	case ColText:
		return "TEXT"
	case ColBytes:
		return "BYTES"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// Column describes one field of a Schema: its name, type, fixed length
// (meaningful for ColText when non-zero; Int/Float columns ignore it), its
// ordinal position within the owning table, and its nullable/unique flags.
type Column struct {
	Name       string
	Type       ColumnType
	Length     uint16
	TableIndex int
	Nullable   bool
	Unique     bool
}

// Serialize frames a Column as [ColumnMagic | nameLen u16 | name | type u8 |
// length u16 | tableIndex u32 | flags u8].
func (c Column) Serialize() []byte {
	nameB := []byte(c.Name)
	buf := make([]byte, 4+2+len(nameB)+1+2+4+1)
	off := 0
	bx.PutU32(buf[off:], ColumnMagic)
	off += 4
	bx.PutU16(buf[off:], uint16(len(nameB)))
	off += 2
	off += copy(buf[off:], nameB)
	buf[off] = byte(c.Type)
	off++
	bx.PutU16(buf[off:], c.Length)
	off += 2
	bx.PutU32(buf[off:], uint32(c.TableIndex))
	off += 4
	var flags uint8
	if c.Nullable {
		flags |= 1
	}
	if c.Unique {
		flags |= 2
	}
	buf[off] = flags
	return buf
}

// DeserializeColumn asserts the magic number and decodes a Column, returning
// the number of bytes consumed from buf.
func DeserializeColumn(buf []byte) (Column, int, error) {
	if len(buf) < 4 {
		return Column{}, 0, ErrBadBuffer
	}
	if bx.U32(buf[0:4]) != ColumnMagic {
		return Column{}, 0, ErrBadMagic
	}
	off := 4
	if off+2 > len(buf) {
		return Column{}, 0, ErrBadBuffer
	}
	nameLen := int(bx.U16(buf[off:]))
	off += 2
	if off+nameLen+1+2+4+1 > len(buf) {
		return Column{}, 0, ErrBadBuffer
	}
	name := string(buf[off : off+nameLen])
	off += nameLen
	typ := ColumnType(buf[off])
	off++
	length := bx.U16(buf[off:])
	off += 2
	tableIndex := int(bx.U32(buf[off:]))
	off += 4
	flags := buf[off]
	off++

	return Column{
		Name:       name,
		Type:       typ,
		Length:     length,
		TableIndex: tableIndex,
		Nullable:   flags&1 != 0,
		Unique:     flags&2 != 0,
	}, off, nil
}
