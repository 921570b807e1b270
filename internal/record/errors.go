package record

import "errors"

var (
	// ErrSchemaMismatch is returned when the value slice passed to EncodeRow
	// does not have exactly schema.NumCols() entries.
	ErrSchemaMismatch = errors.New("record: value count does not match schema")

	// ErrSchemaMismatchNotAllowNull is returned when a nil value is given for
	// a non-nullable column.
	ErrSchemaMismatchNotAllowNull = errors.New("record: nil value for non-nullable column")

	// ErrSchemaMismatchNotInt32 is returned when a ColInt32 column is given a
	// value that is not an int32.
	ErrSchemaMismatchNotInt32 = errors.New("record: value is not an int32")
	// ErrSchemaMismatchNotInt64 mirrors ErrSchemaMismatchNotInt32 for ColInt64.
	ErrSchemaMismatchNotInt64 = errors.New("record: value is not an int64")
	// ErrSchemaMismatchNotBool mirrors ErrSchemaMismatchNotInt32 for ColBool.
	ErrSchemaMismatchNotBool = errors.New("record: value is not a bool")
	// ErrSchemaMismatchNotFloat64 mirrors ErrSchemaMismatchNotInt32 for ColFloat64.
	ErrSchemaMismatchNotFloat64 = errors.New("record: value is not a float64")
	// ErrSchemaMismatchNotText mirrors ErrSchemaMismatchNotInt32 for ColText.
	ErrSchemaMismatchNotText = errors.New("record: value is not a string")
	// ErrSchemaMismatchNotBytes mirrors ErrSchemaMismatchNotInt32 for ColBytes.
	ErrSchemaMismatchNotBytes = errors.New("record: value is not a []byte")

	// ErrVarTooLong is returned when a variable-length field exceeds the
	// 16-bit length prefix used to frame it.
	ErrVarTooLong = errors.New("record: variable-length field exceeds 65535 bytes")

	// ErrBadBuffer is returned when a buffer passed to DecodeRow (or the
	// Column/Row/Schema deserializers) is too short or otherwise malformed.
	ErrBadBuffer = errors.New("record: malformed buffer")

	// ErrBadMagic is returned when a framed structure's leading magic number
	// does not match what the decoder expects.
	ErrBadMagic = errors.New("record: bad magic number")
)
