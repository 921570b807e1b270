package record

// LSN is a monotonic log sequence number attached to each mutation.
type LSN int64

// InvalidLSN marks a transaction that has not yet produced a log record.
const InvalidLSN LSN = -1

// LogRecordType classifies the kind of mutation a LogRecord describes.
type LogRecordType uint8

const (
	LogInsert LogRecordType = iota
	LogMarkDelete
	LogApplyDelete
	LogRollbackDelete
	LogUpdate
	LogBegin
	LogCommit
	LogAbort
)

// LogRecord captures one mutation for recovery/rollback purposes. PrevLSN
// chains a transaction's records so RollbackDelete-style undo can walk
// backwards without a side table.
type LogRecord struct {
	LSN     LSN
	PrevLSN LSN
	TxnID   int64
	Type    LogRecordType
	Row     RowID
	OldTup  []byte
	NewTup  []byte
}
