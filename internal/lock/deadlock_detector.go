package locking

import (
	"log/slog"
	"sort"
	"time"
)

// DeadlockDetector periodically rebuilds the wait-for graph from the lock
// manager's current queues and aborts the youngest transaction in any cycle
// it finds, notifying its waiters so they can unblock and observe Aborted.
//
// Every pass rebuilds the graph from scratch rather than maintaining it
// incrementally, and the worker sleeps once per iteration regardless of
// whether a cycle was found: the source this is grounded on only slept in
// the no-cycle branch, starving the sleep entirely while cycles kept
// recurring.
type DeadlockDetector struct {
	lm       *LockManager
	txnMgr   *TxnManager
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewDeadlockDetector(lm *LockManager, txnMgr *TxnManager, interval time.Duration) *DeadlockDetector {
	return &DeadlockDetector{
		lm:       lm,
		txnMgr:   txnMgr,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the detector's background goroutine. Call Stop to shut it
// down.
func (d *DeadlockDetector) Start() {
	go d.run()
}

// Stop signals the background goroutine to exit and waits for it to do so.
func (d *DeadlockDetector) Stop() {
	close(d.stop)
	<-d.done
}

func (d *DeadlockDetector) run() {
	defer close(d.done)
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		d.runOnePass()

		select {
		case <-d.stop:
			return
		case <-time.After(d.interval):
		}
	}
}

// runOnePass rebuilds the wait-for graph and aborts victims until it is
// acyclic, then returns (the caller sleeps regardless of outcome).
func (d *DeadlockDetector) runOnePass() {
	for {
		aborted := d.lm.detectAndAbortOnce(d.txnMgr)
		if !aborted {
			return
		}
	}
}

// waitsFor builds the wait-for graph: edge u -> v means txn u is blocked
// waiting on a lock held (or queued ahead of it) by txn v on the same row.
func (lm *LockManager) waitsFor() map[int64]map[int64]bool {
	graph := make(map[int64]map[int64]bool)
	addEdge := func(u, v int64) {
		if graph[u] == nil {
			graph[u] = make(map[int64]bool)
		}
		graph[u][v] = true
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, q := range lm.table {
		for _, a := range q.reqs {
			if a.granted != ModeNone {
				continue
			}
			for _, b := range q.reqs {
				if a.txnID == b.txnID {
					continue
				}
				switch {
				case a.mode == ModeShared && b.granted == ModeExclusive:
					addEdge(a.txnID, b.txnID)
				case a.mode == ModeExclusive && b.granted != ModeNone:
					addEdge(a.txnID, b.txnID)
				}
			}
		}
	}
	return graph
}

// findCycle runs DFS from every node in deterministic (sorted) order and
// returns the transactions on the first cycle found, or nil if none.
func findCycle(graph map[int64]map[int64]bool) []int64 {
	var all []int64
	seen := make(map[int64]bool)
	for u, neighbors := range graph {
		if !seen[u] {
			seen[u] = true
			all = append(all, u)
		}
		for v := range neighbors {
			if !seen[v] {
				seen[v] = true
				all = append(all, v)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	visited := make(map[int64]bool)
	var path []int64
	onPath := make(map[int64]int) // txnID -> index in path

	var dfs func(u int64) []int64
	dfs = func(u int64) []int64 {
		if idx, ok := onPath[u]; ok {
			return append([]int64(nil), path[idx:]...)
		}
		if visited[u] {
			return nil
		}
		visited[u] = true
		onPath[u] = len(path)
		path = append(path, u)

		neighbors := make([]int64, 0, len(graph[u]))
		for v := range graph[u] {
			neighbors = append(neighbors, v)
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })

		for _, v := range neighbors {
			if cyc := dfs(v); cyc != nil {
				return cyc
			}
		}
		path = path[:len(path)-1]
		delete(onPath, u)
		return nil
	}

	for _, txnID := range all {
		if cyc := dfs(txnID); cyc != nil {
			return cyc
		}
	}
	return nil
}

// detectAndAbortOnce rebuilds the wait-for graph, and if it finds a cycle,
// aborts the youngest (largest id) transaction on it and notifies every
// queue so the victim's waiters re-check its state. Returns whether a
// victim was aborted.
func (lm *LockManager) detectAndAbortOnce(txnMgr *TxnManager) bool {
	graph := lm.waitsFor()
	cycle := findCycle(graph)
	if cycle == nil {
		return false
	}

	victimID := cycle[0]
	for _, id := range cycle {
		if id > victimID {
			victimID = id
		}
	}

	victim, ok := txnMgr.GetTransaction(victimID)
	if !ok {
		return true
	}

	lm.mu.Lock()
	victim.State = Aborted
	for _, q := range lm.table {
		q.cond.Broadcast()
	}
	lm.mu.Unlock()

	slog.Debug("locking.deadlockDetector: aborted victim", "txn", victimID, "cycle", cycle)
	return true
}
