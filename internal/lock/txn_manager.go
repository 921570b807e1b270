package locking

import "sync"

// TxnManager hands out monotonically increasing transaction ids and tracks
// every live Txn so the lock manager and deadlock detector can look one up
// by id.
type TxnManager struct {
	mu     sync.Mutex
	nextID int64
	txns   map[int64]*Txn
}

func NewTxnManager() *TxnManager {
	return &TxnManager{txns: make(map[int64]*Txn)}
}

// Begin starts a new transaction under the given isolation level.
func (m *TxnManager) Begin(isolation IsolationLevel) *Txn {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	txn := newTxn(m.nextID, isolation)
	m.txns[txn.ID] = txn
	return txn
}

// GetTransaction looks up a live transaction by id.
func (m *TxnManager) GetTransaction(id int64) (*Txn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	return t, ok
}

// Commit marks txn Committed and forgets it.
func (m *TxnManager) Commit(txn *Txn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn.State = Committed
	delete(m.txns, txn.ID)
}

// Abort marks txn Aborted and forgets it. The caller is still responsible
// for releasing txn's locks via LockManager.Unlock for each held row.
func (m *TxnManager) Abort(txn *Txn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn.State = Aborted
	delete(m.txns, txn.ID)
}
