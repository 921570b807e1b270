package record

import (
	"math"

	"github.com/minisql-engine/core/internal/alias/bx"
)

// RowMagic frames every encoded row, matching the magic-number convention
// used for on-disk Column/Schema records.
const RowMagic uint32 = 0x524f5731 // "ROW1"

// rowHeaderSize is len(magic) + len(field_count) + len(null_bitmap).
const rowHeaderSize = 4 + 2 + 4

// maxRowCols bounds a row to however many fields fit the single u32 null
// bitmap; wider rows would need a bitmap per 32 columns, which no caller in
// this engine exercises today.
const maxRowCols = 32

// EncodeRow serializes values against schema as
// [RowMagic | field_count u16 | null_bitmap u32 | field0 | field1 | ...].
// A null field contributes no bytes beyond its null_bitmap bit.
func EncodeRow(schema Schema, values []any) ([]byte, error) {
	if len(values) != schema.NumCols() {
		return nil, ErrSchemaMismatch
	}
	if schema.NumCols() > maxRowCols {
		return nil, ErrSchemaMismatch
	}

	var nullBitmap uint32
	fields := make([][]byte, len(values))
	for i, col := range schema.Cols {
		v := values[i]
		if v == nil {
			if !col.Nullable {
				return nil, ErrSchemaMismatchNotAllowNull
			}
			nullBitmap |= 1 << uint(i)
			continue
		}
		b, err := encodeField(col, v)
		if err != nil {
			return nil, err
		}
		fields[i] = b
	}

	total := rowHeaderSize
	for _, f := range fields {
		total += len(f)
	}
	buf := make([]byte, total)
	bx.PutU32(buf[0:4], RowMagic)
	bx.PutU16(buf[4:6], uint16(schema.NumCols()))
	bx.PutU32(buf[6:10], nullBitmap)
	off := rowHeaderSize
	for _, f := range fields {
		off += copy(buf[off:], f)
	}
	return buf, nil
}

func encodeField(col Column, v any) ([]byte, error) {
	switch col.Type {
	case ColInt32:
		x, ok := v.(int32)
		if !ok {
			return nil, ErrSchemaMismatchNotInt32
		}
		b := make([]byte, 4)
		bx.PutU32(b, uint32(x))
		return b, nil
	case ColInt64:
		x, ok := v.(int64)
		if !ok {
			return nil, ErrSchemaMismatchNotInt64
		}
		b := make([]byte, 8)
		bx.PutU64(b, uint64(x))
		return b, nil
	case ColBool:
		x, ok := v.(bool)
		if !ok {
			return nil, ErrSchemaMismatchNotBool
		}
		if x {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case ColFloat64:
		x, ok := v.(float64)
		if !ok {
			return nil, ErrSchemaMismatchNotFloat64
		}
		b := make([]byte, 8)
		bx.PutU64(b, math.Float64bits(x))
		return b, nil
	case ColText:
		x, ok := v.(string)
		if !ok {
			return nil, ErrSchemaMismatchNotText
		}
		return encodeVarBytes([]byte(x))
	case ColBytes:
		x, ok := v.([]byte)
		if !ok {
			return nil, ErrSchemaMismatchNotBytes
		}
		return encodeVarBytes(x)
	default:
		return nil, ErrSchemaMismatch
	}
}

func encodeVarBytes(b []byte) ([]byte, error) {
	if len(b) > math.MaxUint16 {
		return nil, ErrVarTooLong
	}
	out := make([]byte, 2+len(b))
	bx.PutU16(out[0:2], uint16(len(b)))
	copy(out[2:], b)
	return out, nil
}

// DecodeRow is the inverse of EncodeRow.
func DecodeRow(schema Schema, buf []byte) ([]any, error) {
	if len(buf) < rowHeaderSize {
		return nil, ErrBadBuffer
	}
	if bx.U32(buf[0:4]) != RowMagic {
		return nil, ErrBadMagic
	}
	fieldCount := int(bx.U16(buf[4:6]))
	if fieldCount != schema.NumCols() {
		return nil, ErrBadBuffer
	}
	nullBitmap := bx.U32(buf[6:10])

	off := rowHeaderSize
	row := make([]any, fieldCount)
	for i, col := range schema.Cols {
		if nullBitmap&(1<<uint(i)) != 0 {
			row[i] = nil
			continue
		}
		v, n, err := decodeField(col, buf[off:])
		if err != nil {
			return nil, err
		}
		row[i] = v
		off += n
	}
	return row, nil
}

func decodeField(col Column, buf []byte) (any, int, error) {
	switch col.Type {
	case ColInt32:
		if len(buf) < 4 {
			return nil, 0, ErrBadBuffer
		}
		return int32(bx.U32(buf[0:4])), 4, nil
	case ColInt64:
		if len(buf) < 8 {
			return nil, 0, ErrBadBuffer
		}
		return int64(bx.U64(buf[0:8])), 8, nil
	case ColBool:
		if len(buf) < 1 {
			return nil, 0, ErrBadBuffer
		}
		return buf[0] != 0, 1, nil
	case ColFloat64:
		if len(buf) < 8 {
			return nil, 0, ErrBadBuffer
		}
		return math.Float64frombits(bx.U64(buf[0:8])), 8, nil
	case ColText:
		b, n, err := decodeVarBytes(buf)
		if err != nil {
			return nil, 0, err
		}
		return string(b), n, nil
	case ColBytes:
		b, n, err := decodeVarBytes(buf)
		if err != nil {
			return nil, 0, err
		}
		return b, n, nil
	default:
		return nil, 0, ErrBadBuffer
	}
}

func decodeVarBytes(buf []byte) ([]byte, int, error) {
	if len(buf) < 2 {
		return nil, 0, ErrBadBuffer
	}
	n := int(bx.U16(buf[0:2]))
	if len(buf) < 2+n {
		return nil, 0, ErrBadBuffer
	}
	out := make([]byte, n)
	copy(out, buf[2:2+n])
	return out, 2 + n, nil
}
