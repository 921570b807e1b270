package storage

import "errors"

var (
	// ErrNoFreeExtent is returned by AllocatePage when every extent up to
	// MaxValidExtentID is already full.
	ErrNoFreeExtent = errors.New("storage: no free extent available")

	// ErrInvalidPageID is returned for operations on a negative page id.
	ErrInvalidPageID = errors.New("storage: invalid page id")

	// ErrIO wraps unexpected filesystem errors encountered while servicing
	// a page read or write.
	ErrIO = errors.New("storage: i/o error")

	// ErrNoSpace is returned by Page.InsertTuple when the tuple does not fit
	// in the page's remaining free space.
	ErrNoSpace = errors.New("storage: page has no space for tuple")

	// ErrBadSlot is returned by Page.ReadTuple/MarkDelete/ApplyDelete when the
	// slot index is out of range or the slot does not hold a live tuple.
	ErrBadSlot = errors.New("storage: bad or deleted slot")

	// ErrIndexRootsFull is returned by IndexRootsPage.SetRoot when a new
	// index is registered but the page has no remaining slots.
	ErrIndexRootsFull = errors.New("storage: index roots registry is full")

	// ErrCatalogFull is returned by CatalogMetaPage.SetTableMetaPage /
	// SetIndexMetaPage when a new entry is registered but its region has no
	// remaining slots.
	ErrCatalogFull = errors.New("storage: catalog meta page has no remaining slots")

	// ErrTableMetaTooLarge is returned by InitTableMetaPage when a table's
	// name and serialized schema do not fit in a single page.
	ErrTableMetaTooLarge = errors.New("storage: table name and schema do not fit in one page")

	// ErrIndexMetaTooLarge is returned by InitIndexMetaPage when an index's
	// name and key column name do not fit in a single page.
	ErrIndexMetaTooLarge = errors.New("storage: index name and key column do not fit in one page")
)
