package record

import "github.com/minisql-engine/core/internal/alias/bx"

// SchemaMagic frames a serialized Schema, asserted on DeserializeSchema.
const SchemaMagic uint32 = 0x53434831 // "SCH1"

// Schema is the ordered set of columns making up a table's row layout.
type Schema struct {
	Cols []Column
}

func (s Schema) NumCols() int { return len(s.Cols) }

// ColumnByName returns the column with the given name and its index, or
// ok=false if no such column exists.
func (s Schema) ColumnByName(name string) (Column, int, bool) {
	for i, c := range s.Cols {
		if c.Name == name {
			return c, i, true
		}
	}
	return Column{}, -1, false
}

// Serialize frames a Schema as [SchemaMagic | numCols u16 | col0 | col1 | ...].
func (s Schema) Serialize() []byte {
	parts := make([][]byte, len(s.Cols))
	total := 6
	for i, c := range s.Cols {
		parts[i] = c.Serialize()
		total += len(parts[i])
	}
	buf := make([]byte, total)
	bx.PutU32(buf[0:4], SchemaMagic)
	bx.PutU16(buf[4:6], uint16(len(s.Cols)))
	off := 6
	for _, p := range parts {
		off += copy(buf[off:], p)
	}
	return buf
}

// DeserializeSchema asserts the magic number and decodes a Schema.
func DeserializeSchema(buf []byte) (Schema, error) {
	if len(buf) < 6 {
		return Schema{}, ErrBadBuffer
	}
	if bx.U32(buf[0:4]) != SchemaMagic {
		return Schema{}, ErrBadMagic
	}
	numCols := int(bx.U16(buf[4:6]))
	off := 6
	cols := make([]Column, 0, numCols)
	for i := 0; i < numCols; i++ {
		c, n, err := DeserializeColumn(buf[off:])
		if err != nil {
			return Schema{}, err
		}
		cols = append(cols, c)
		off += n
	}
	return Schema{Cols: cols}, nil
}
