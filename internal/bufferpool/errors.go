package bufferpool

import "errors"

var (
	// ErrNoFreeFrame is returned when every frame is pinned and the
	// replacer cannot produce a victim.
	ErrNoFreeFrame = errors.New("bufferpool: no free frame available (all pinned)")

	// ErrPagePinned is returned by DeletePage when the page's pin count is
	// greater than zero.
	ErrPagePinned = errors.New("bufferpool: page is pinned")

	// ErrPageNotFound is returned by FlushPage for a page not resident in
	// the pool.
	ErrPageNotFound = errors.New("bufferpool: page not resident in pool")
)
