package bufferpool

import (
	"sync"

	"github.com/minisql-engine/core/internal/storage"
)

// PageGuard is a scoped pin/unpin obligation returned by FetchPage/NewPage.
// Release performs the matching UnpinPage exactly once, with the caller's
// chosen dirty flag, which removes the need to track pin/unpin pairing by
// hand at every call site.
type PageGuard struct {
	bp     *BufferPoolManager
	pageID int32
	buf    []byte
	once   sync.Once
}

func newPageGuard(bp *BufferPoolManager, f *frame) *PageGuard {
	return &PageGuard{bp: bp, pageID: f.pageID, buf: f.buf}
}

// PageID returns the guarded page's id.
func (g *PageGuard) PageID() int32 { return g.pageID }

// Page returns a typed slotted-page view over the guarded frame. It is only
// valid until Release is called.
func (g *PageGuard) Page() *storage.Page { return storage.WrapPage(g.buf) }

// Raw returns the guarded frame's raw bytes, for page layouts (e.g.
// B+-tree nodes) that don't use the slotted Page format.
func (g *PageGuard) Raw() []byte { return g.buf }

// Release unpins the page, marking it dirty if isDirty is true. Calling
// Release more than once is a no-op after the first call.
func (g *PageGuard) Release(isDirty bool) {
	g.once.Do(func() {
		_ = g.bp.UnpinPage(g.pageID, isDirty)
	})
}
