package novasqlwire

// Op names the operation a Request asks the engine to perform. This wire
// protocol has no SQL parser: it is a thin framed surface directly over the
// storage core's own operations (create table, insert row, scan table,
// build an index, point-lookup through one).
type Op string

const (
	OpCreateTable Op = "create_table"
	OpInsertRow   Op = "insert_row"
	OpScanTable   Op = "scan_table"
	OpCreateIndex Op = "create_index"
	OpIndexLookup Op = "index_lookup"
)

// ColumnSpec describes one column of a table to create, in wire form.
// Type is one of "int32", "int64", "bool", "float64", "text", "bytes".
type ColumnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// Request is a single framed command sent to the server.
type Request struct {
	ID uint64 `json:"id"`
	Op Op     `json:"op"`

	Table string `json:"table,omitempty"`

	// OpCreateTable.
	Columns []ColumnSpec `json:"columns,omitempty"`

	// OpInsertRow: one value per column, in schema order.
	Values []any `json:"values,omitempty"`

	// OpCreateIndex / OpIndexLookup.
	Index     string `json:"index,omitempty"`
	KeyColumn string `json:"key_column,omitempty"`
	Key       int64  `json:"key,omitempty"`
}

// Response is the framed reply for a Request of the same ID.
type Response struct {
	ID    uint64  `json:"id"`
	Error string  `json:"error,omitempty"`
	Rows  [][]any `json:"rows,omitempty"`
}
