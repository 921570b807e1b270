package bufferpool

import (
	"container/list"
	"sync"

	"github.com/minisql-engine/core/pkg/cache"
)

// LRUReplacer is a Replacer that evicts the least-recently-unpinned frame
// first, built on top of cache.LRUManager's container/list wrapper.
//
// Victim on an empty replacer leaves the out-parameter untouched: the
// original source wrote straight through the pointer parameter regardless,
// which meant a caller's existing frame_id could be silently clobbered on a
// failed victim search.
type LRUReplacer struct {
	mgr *cache.LRUManager

	mu    sync.Mutex
	elems map[int]*list.Element
}

func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		mgr:   cache.NewLRUManager(),
		elems: make(map[int]*list.Element),
	}
}

func (r *LRUReplacer) Victim(frameID *int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	back := r.mgr.Back()
	if back == nil {
		return false
	}
	id := back.Value.(int)
	r.mgr.Remove(back)
	delete(r.elems, id)
	*frameID = id
	return true
}

func (r *LRUReplacer) Pin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elem, ok := r.elems[frameID]; ok {
		r.mgr.Remove(elem)
		delete(r.elems, frameID)
	}
}

func (r *LRUReplacer) Unpin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elem, ok := r.elems[frameID]; ok {
		r.mgr.MoveToFront(elem)
		return
	}
	r.elems[frameID] = r.mgr.PushFront(frameID)
}

func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mgr.Len()
}
