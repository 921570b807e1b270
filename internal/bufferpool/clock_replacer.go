package bufferpool

import (
	"sync"

	"github.com/minisql-engine/core/pkg/clockx"
)

// CLOCKReplacer is a Replacer built on clockx.Clock's second-chance ring.
//
// Unpin always inserts the frame into the ring and sets its reference bit,
// even the first time the frame is seen: one variant of the original
// source only updated the reference bit of a frame already tracked, so a
// frame that was never independently Pin'd first stayed permanently absent
// from the ring and could never be evicted. Touch (used here) marks the
// slot present unconditionally, which avoids that degenerate case.
type CLOCKReplacer struct {
	mu sync.Mutex
	c  *clockx.Clock
}

func NewCLOCKReplacer(capacity int) *CLOCKReplacer {
	return &CLOCKReplacer{c: clockx.New(capacity)}
}

func (r *CLOCKReplacer) Victim(frameID *int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.c.Evict()
	if !ok {
		return false
	}
	*frameID = id
	return true
}

func (r *CLOCKReplacer) Pin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c.SetEvictable(frameID, false)
}

func (r *CLOCKReplacer) Unpin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c.Touch(frameID)
	r.c.SetEvictable(frameID, true)
}

func (r *CLOCKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.c.Size()
}
