package record

import "sync"

// LogStream hands out monotonic LSNs and tracks each transaction's most
// recent LSN so undo chains can be walked backwards. It replaces what the
// original engine kept as a process-wide (txn_id -> prev_lsn) map and a
// global counter: callers that need either value hold a LogStream instance
// and pass it explicitly, typically one shared between the lock manager and
// every TableHeap in a Database.
type LogStream struct {
	mu      sync.Mutex
	nextLSN LSN
	prevOf  map[int64]LSN
	records []LogRecord
}

// NewLogStream returns a LogStream starting at LSN 0.
func NewLogStream() *LogStream {
	return &LogStream{prevOf: make(map[int64]LSN)}
}

// NextLSN allocates and returns the next LSN.
func (s *LogStream) NextLSN() LSN {
	s.mu.Lock()
	defer s.mu.Unlock()
	lsn := s.nextLSN
	s.nextLSN++
	return lsn
}

// PrevLSNOf returns the last LSN recorded for txnID, or InvalidLSN if the
// transaction has not appended any record yet.
func (s *LogStream) PrevLSNOf(txnID int64) LSN {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lsn, ok := s.prevOf[txnID]; ok {
		return lsn
	}
	return InvalidLSN
}

// Append assigns rec a fresh LSN, chains it to the transaction's previous
// LSN, records it, and returns the completed record.
func (s *LogStream) Append(txnID int64, typ LogRecordType, row RowID, oldTup, newTup []byte) LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	lsn := s.nextLSN
	s.nextLSN++
	prev, ok := s.prevOf[txnID]
	if !ok {
		prev = InvalidLSN
	}
	rec := LogRecord{
		LSN:     lsn,
		PrevLSN: prev,
		TxnID:   txnID,
		Type:    typ,
		Row:     row,
		OldTup:  oldTup,
		NewTup:  newTup,
	}
	s.prevOf[txnID] = lsn
	s.records = append(s.records, rec)
	return rec
}

// Forget drops a transaction's prev-LSN entry once it has committed or
// aborted, so long-lived streams don't accumulate one entry per txn forever.
func (s *LogStream) Forget(txnID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prevOf, txnID)
}
