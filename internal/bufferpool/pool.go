package bufferpool

import (
	"log/slog"
	"sync"

	"github.com/minisql-engine/core/internal/storage"
)

var logDebugPrefix = "bufferpool: "

// frame is one in-memory slot holding a page's bytes plus its bookkeeping.
// The pool owns a fixed-size slice of these; pageID == storage.InvalidPageID
// marks a frame not currently backing any page.
type frame struct {
	pageID int32
	buf    []byte
	pin    int32
	dirty  bool
}

// BufferPoolManager mediates all page I/O through a fixed pool of frames,
// evicting via a pluggable Replacer when the pool is full. One frame backs
// at most one resident page at a time; page_table[pageID]=f implies
// frames[f].pageID=pageID, and every frame is either on the free list or in
// the page table, never both.
type BufferPoolManager struct {
	disk     *storage.DiskManager
	replacer Replacer

	mu        sync.Mutex
	frames    []*frame
	pageTable map[int32]int
	freeList  []int
}

// NewBufferPoolManager creates a pool of poolSize frames backed by disk,
// evicting with replacer when full.
func NewBufferPoolManager(disk *storage.DiskManager, poolSize int, replacer Replacer) *BufferPoolManager {
	if poolSize <= 0 {
		poolSize = 128
	}
	frames := make([]*frame, poolSize)
	freeList := make([]int, poolSize)
	for i := range frames {
		frames[i] = &frame{pageID: storage.InvalidPageID, buf: make([]byte, storage.PageSize)}
		freeList[i] = poolSize - 1 - i
	}
	return &BufferPoolManager{
		disk:      disk,
		replacer:  replacer,
		frames:    frames,
		pageTable: make(map[int32]int),
		freeList:  freeList,
	}
}

// Capacity returns the number of frames in the pool.
func (bp *BufferPoolManager) Capacity() int { return len(bp.frames) }

// getFrameLocked returns an index ready to host a new resident page: either
// a genuinely free frame, or a victim evicted (and flushed if dirty) by the
// replacer. Caller holds bp.mu.
func (bp *BufferPoolManager) getFrameLocked() (int, error) {
	if n := len(bp.freeList); n > 0 {
		idx := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return idx, nil
	}

	var idx int
	if !bp.replacer.Victim(&idx) {
		return -1, ErrNoFreeFrame
	}

	f := bp.frames[idx]
	if f.dirty {
		if err := bp.disk.WritePage(f.pageID, f.buf); err != nil {
			return -1, err
		}
		f.dirty = false
	}
	delete(bp.pageTable, f.pageID)
	slog.Debug(logDebugPrefix+"evicted frame for reuse", "frameIdx", idx, "evictedPageID", f.pageID)
	return idx, nil
}

// FetchPage pins and returns the page identified by pageID, reading it from
// disk if it is not already resident.
func (bp *BufferPoolManager) FetchPage(pageID int32) (*PageGuard, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.pageTable[pageID]; ok {
		f := bp.frames[idx]
		f.pin++
		bp.replacer.Pin(idx)
		return newPageGuard(bp, f), nil
	}

	idx, err := bp.getFrameLocked()
	if err != nil {
		return nil, err
	}
	f := bp.frames[idx]
	if err := bp.disk.ReadPage(pageID, f.buf); err != nil {
		bp.freeList = append(bp.freeList, idx)
		return nil, err
	}
	f.pageID = pageID
	f.pin = 1
	f.dirty = false
	bp.pageTable[pageID] = idx
	bp.replacer.Pin(idx)

	slog.Debug(logDebugPrefix+"fetched page", "pageID", pageID, "frameIdx", idx)
	return newPageGuard(bp, f), nil
}

// NewPage allocates a fresh page on disk and returns it pinned and zeroed.
func (bp *BufferPoolManager) NewPage() (*PageGuard, error) {
	pageID, err := bp.disk.AllocatePage()
	if err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, err := bp.getFrameLocked()
	if err != nil {
		_ = bp.disk.DeAllocatePage(pageID)
		return nil, err
	}
	f := bp.frames[idx]
	storage.NewPage(f.buf, uint32(pageID))
	f.pageID = pageID
	f.pin = 1
	f.dirty = true
	bp.pageTable[pageID] = idx
	bp.replacer.Pin(idx)

	slog.Debug(logDebugPrefix+"allocated new page", "pageID", pageID, "frameIdx", idx)
	return newPageGuard(bp, f), nil
}

// UnpinPage decrements pageID's pin count and ORs in isDirty. It is a no-op
// if pageID is not resident. Once the pin count reaches zero the frame
// becomes eligible for eviction.
func (bp *BufferPoolManager) UnpinPage(pageID int32, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.pageTable[pageID]
	if !ok {
		return nil
	}
	f := bp.frames[idx]
	if isDirty {
		f.dirty = true
	}
	if f.pin > 0 {
		f.pin--
	}
	if f.pin == 0 {
		bp.replacer.Unpin(idx)
	}
	return nil
}

// DeletePage removes pageID from the pool and frees its backing disk page.
// It refuses with ErrPagePinned if the page's pin count is nonzero.
func (bp *BufferPoolManager) DeletePage(pageID int32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.pageTable[pageID]
	if !ok {
		return bp.disk.DeAllocatePage(pageID)
	}
	f := bp.frames[idx]
	if f.pin > 0 {
		return ErrPagePinned
	}

	bp.replacer.Pin(idx) // stop tracking idx as evictable before reuse
	delete(bp.pageTable, pageID)
	if err := bp.disk.DeAllocatePage(pageID); err != nil {
		return err
	}
	f.pageID = storage.InvalidPageID
	f.dirty = false
	bp.freeList = append(bp.freeList, idx)
	return nil
}

// FlushPage writes pageID's frame to disk regardless of pin count, clearing
// its dirty bit.
func (bp *BufferPoolManager) FlushPage(pageID int32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.pageTable[pageID]
	if !ok {
		return ErrPageNotFound
	}
	f := bp.frames[idx]
	if err := bp.disk.WritePage(pageID, f.buf); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// FlushAllPages flushes every dirty resident page.
func (bp *BufferPoolManager) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pageID, idx := range bp.pageTable {
		f := bp.frames[idx]
		if !f.dirty {
			continue
		}
		if err := bp.disk.WritePage(pageID, f.buf); err != nil {
			return err
		}
		f.dirty = false
	}
	return nil
}
