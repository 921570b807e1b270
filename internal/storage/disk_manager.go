package storage

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// DiskManager owns the single on-disk database file and maps logical page
// ids onto it using an extent + bitmap free-space scheme: physical page 0 is
// the meta page, followed by repeating groups of one bitmap page and
// BitmapSize data pages.
//
// All operations are serialized by a single, non-reentrant mutex (unlike the
// recursive I/O latch of the source this is grounded on); exported methods
// take the lock, unexported helpers assume it is already held and must never
// be called without it.
type DiskManager struct {
	mu   sync.Mutex
	f    *os.File
	path string

	metaBuf [PageSize]byte
	meta    *MetaPage
}

// Open opens (creating if necessary) the database file at path and loads its
// meta page. A freshly created file starts with an all-zero meta page, which
// is a valid "empty database" state.
func Open(path string) (*DiskManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", path, err)
	}

	d := &DiskManager{f: f, path: path}
	d.meta = WrapMetaPage(d.metaBuf[:])
	if err := d.readPhysicalLocked(0, d.metaBuf[:]); err != nil {
		_ = f.Close()
		return nil, err
	}

	// A brand-new database reserves logical pages 0 and 1 for the catalog
	// meta page and the shared index roots registry before anything else
	// can claim them via AllocatePage.
	if d.meta.NumAllocatedPages() == 0 {
		for _, want := range []int32{CatalogMetaPageID, IndexRootsPageID} {
			got, err := d.AllocatePage()
			if err != nil {
				_ = f.Close()
				return nil, err
			}
			if got != want {
				_ = f.Close()
				return nil, fmt.Errorf("storage: expected to reserve page %d, got %d", want, got)
			}
		}
	}
	return d, nil
}

// Close flushes the meta page and releases the underlying file descriptor.
func (d *DiskManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writePhysicalLocked(0, d.metaBuf[:]); err != nil {
		return err
	}
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("storage: sync %q: %w", d.path, err)
	}
	return d.f.Close()
}

func (d *DiskManager) readPhysicalLocked(phys int64, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("storage: buffer must be exactly %d bytes", PageSize)
	}
	n, err := d.f.ReadAt(buf, phys*PageSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: read physical page at %d: %v", ErrIO, phys, err)
	}
	for i := n; i < PageSize; i++ {
		buf[i] = 0
	}
	return nil
}

func (d *DiskManager) writePhysicalLocked(phys int64, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("storage: buffer must be exactly %d bytes", PageSize)
	}
	n, err := d.f.WriteAt(buf, phys*PageSize)
	if err != nil {
		return fmt.Errorf("%w: write physical page at %d: %v", ErrIO, phys, err)
	}
	if n != PageSize {
		return fmt.Errorf("%w: short write at physical page %d", ErrIO, phys)
	}
	return nil
}

func extentIDOf(logical int32) uint32  { return uint32(logical) / BitmapSize }
func pageOffsetOf(logical int32) uint32 { return uint32(logical) % BitmapSize }

func bitmapPhysicalOf(extentID uint32) int64 {
	return int64(1) + int64(extentID)*(int64(BitmapSize)+1)
}

// dataPhysicalOf implements phys = (logical / BITMAP_SIZE) + logical + 2.
func dataPhysicalOf(logical int32) int64 {
	return int64(logical) + int64(extentIDOf(logical)) + 2
}

func (d *DiskManager) flushMetaLocked() error {
	return d.writePhysicalLocked(0, d.metaBuf[:])
}

// AllocatePage finds the first extent with room, allocates its first free
// page, and returns the new logical page id.
func (d *DiskManager) AllocatePage() (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cursor := d.meta.NextFreeExtent()

	try := func(e uint32) (int32, bool, error) {
		isNew := e == d.meta.NumExtents()
		if !isNew && d.meta.ExtentUsedPages(e) >= BitmapSize {
			return 0, false, nil
		}

		var buf [PageSize]byte
		if err := d.readPhysicalLocked(bitmapPhysicalOf(e), buf[:]); err != nil {
			return 0, false, err
		}
		bm := WrapBitmapPage(buf[:])

		off, ok := bm.AllocatePage()
		if !ok {
			return 0, false, nil
		}
		if err := d.writePhysicalLocked(bitmapPhysicalOf(e), buf[:]); err != nil {
			return 0, false, err
		}

		if isNew {
			d.meta.setNumExtents(e + 1)
		}
		d.meta.setExtentUsedPages(e, bm.NumAllocated())
		d.meta.setNumAllocatedPages(d.meta.NumAllocatedPages() + 1)
		d.meta.setNextFreeExtent(e)
		if err := d.flushMetaLocked(); err != nil {
			return 0, false, err
		}

		logical := int32(e)*int32(BitmapSize) + int32(off)
		return logical, true, nil
	}

	for e := cursor; e <= d.meta.NumExtents() && e < MaxValidExtentID; e++ {
		logical, ok, err := try(e)
		if err != nil {
			return 0, err
		}
		if ok {
			return logical, nil
		}
	}
	for e := uint32(0); e < cursor && e < d.meta.NumExtents(); e++ {
		logical, ok, err := try(e)
		if err != nil {
			return 0, err
		}
		if ok {
			return logical, nil
		}
	}
	return 0, ErrNoFreeExtent
}

// DeAllocatePage clears the bit for a previously allocated page. Freeing a
// page that is already free (including one that was never allocated) is a
// silent no-op.
func (d *DiskManager) DeAllocatePage(logical int32) error {
	if logical < 0 {
		return ErrInvalidPageID
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e := extentIDOf(logical)
	off := pageOffsetOf(logical)
	if e >= d.meta.NumExtents() {
		return nil
	}

	var buf [PageSize]byte
	if err := d.readPhysicalLocked(bitmapPhysicalOf(e), buf[:]); err != nil {
		return err
	}
	bm := WrapBitmapPage(buf[:])
	if bm.IsPageFree(off) {
		return nil
	}
	bm.DeAllocatePage(off)
	if err := d.writePhysicalLocked(bitmapPhysicalOf(e), buf[:]); err != nil {
		return err
	}

	d.meta.setExtentUsedPages(e, bm.NumAllocated())
	if d.meta.NumAllocatedPages() > 0 {
		d.meta.setNumAllocatedPages(d.meta.NumAllocatedPages() - 1)
	}
	if e < d.meta.NextFreeExtent() {
		d.meta.setNextFreeExtent(e)
	}
	return d.flushMetaLocked()
}

// IsPageFree reports whether logical is free, including pages in an extent
// that has never been materialized.
func (d *DiskManager) IsPageFree(logical int32) (bool, error) {
	if logical < 0 {
		return false, ErrInvalidPageID
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e := extentIDOf(logical)
	if e >= d.meta.NumExtents() {
		return true, nil
	}

	var buf [PageSize]byte
	if err := d.readPhysicalLocked(bitmapPhysicalOf(e), buf[:]); err != nil {
		return false, err
	}
	return WrapBitmapPage(buf[:]).IsPageFree(pageOffsetOf(logical)), nil
}

// ReadPage reads exactly PageSize bytes for logical into buf. Pages beyond
// the current end of file read back as all zero.
func (d *DiskManager) ReadPage(logical int32, buf []byte) error {
	if logical < 0 {
		return ErrInvalidPageID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readPhysicalLocked(dataPhysicalOf(logical), buf)
}

// WritePage writes exactly PageSize bytes from buf for logical.
func (d *DiskManager) WritePage(logical int32, buf []byte) error {
	if logical < 0 {
		return ErrInvalidPageID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writePhysicalLocked(dataPhysicalOf(logical), buf)
}

// NumAllocatedPages reports the number of currently allocated data pages.
func (d *DiskManager) NumAllocatedPages() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.meta.NumAllocatedPages()
}

// NumExtents reports how many extents have been materialized so far.
func (d *DiskManager) NumExtents() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.meta.NumExtents()
}
