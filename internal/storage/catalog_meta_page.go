package storage

import "github.com/minisql-engine/core/internal/alias/bx"

// catalogMetaHeaderSize is the fixed header before the two entry regions:
// magic + numTables + numIndexes.
const catalogMetaHeaderSize = 12

// catalogEntrySize is one (id, metaPageID) pair.
const catalogEntrySize = 8

// CatalogMetaMagic frames the catalog meta page, checked on open.
const CatalogMetaMagic uint32 = 0x4341544c // "CATL"

// catalogTotalSlots is how many (id, metaPageID) pairs fit after the header;
// it is split evenly between the table region and the index region so
// neither can starve the other.
const catalogTotalSlots = (PageSize - catalogMetaHeaderSize) / catalogEntrySize

// MaxCatalogTables and MaxCatalogIndexes bound how many tables/indexes this
// database can register, per the fixed split above.
const (
	MaxCatalogTables  = catalogTotalSlots / 2
	MaxCatalogIndexes = catalogTotalSlots - MaxCatalogTables
)

// CatalogMetaPage is the typed view of the fixed page at CatalogMetaPageID:
// magic number plus a (table_id -> meta_page_id) map and a
// (index_id -> meta_page_id) map, each a dense array in its own region.
// Layout:
//
//	offset 0:  u32 magic
//	offset 4:  u32 numTables
//	offset 8:  u32 numIndexes
//	offset 12: numTables  * [u32 tableID  | u32 tableMetaPageID]
//	then:      numIndexes * [u32 indexID  | u32 indexMetaPageID]
type CatalogMetaPage struct {
	buf []byte
}

func WrapCatalogMetaPage(buf []byte) *CatalogMetaPage { return &CatalogMetaPage{buf: buf} }

func InitCatalogMetaPage(buf []byte) *CatalogMetaPage {
	for i := range buf {
		buf[i] = 0
	}
	c := &CatalogMetaPage{buf: buf}
	bx.PutU32(c.buf[0:4], CatalogMetaMagic)
	return c
}

func (c *CatalogMetaPage) Magic() uint32 { return bx.U32(c.buf[0:4]) }

func (c *CatalogMetaPage) numTables() int      { return int(bx.U32(c.buf[4:8])) }
func (c *CatalogMetaPage) setNumTables(n int)   { bx.PutU32(c.buf[4:8], uint32(n)) }
func (c *CatalogMetaPage) numIndexes() int      { return int(bx.U32(c.buf[8:12])) }
func (c *CatalogMetaPage) setNumIndexes(n int)  { bx.PutU32(c.buf[8:12], uint32(n)) }

func (c *CatalogMetaPage) tableOffset(i int) int {
	return catalogMetaHeaderSize + i*catalogEntrySize
}

func (c *CatalogMetaPage) indexOffset(i int) int {
	return catalogMetaHeaderSize + MaxCatalogTables*catalogEntrySize + i*catalogEntrySize
}

func (c *CatalogMetaPage) readPair(off int) (id uint32, metaPageID int32) {
	id = bx.U32(c.buf[off : off+4])
	metaPageID = int32(bx.U32(c.buf[off+4 : off+8]))
	return
}

func (c *CatalogMetaPage) writePair(off int, id uint32, metaPageID int32) {
	bx.PutU32(c.buf[off:off+4], id)
	bx.PutU32(c.buf[off+4:off+8], uint32(metaPageID))
}

func (c *CatalogMetaPage) findTable(tableID uint32) int {
	n := c.numTables()
	for i := 0; i < n; i++ {
		id, _ := c.readPair(c.tableOffset(i))
		if id == tableID {
			return i
		}
	}
	return -1
}

func (c *CatalogMetaPage) findIndex(indexID uint32) int {
	n := c.numIndexes()
	for i := 0; i < n; i++ {
		id, _ := c.readPair(c.indexOffset(i))
		if id == indexID {
			return i
		}
	}
	return -1
}

// GetTableMetaPage returns the meta page id registered for tableID.
func (c *CatalogMetaPage) GetTableMetaPage(tableID uint32) (metaPageID int32, ok bool) {
	i := c.findTable(tableID)
	if i < 0 {
		return InvalidPageID, false
	}
	_, p := c.readPair(c.tableOffset(i))
	return p, true
}

// SetTableMetaPage registers or updates tableID's meta page id.
func (c *CatalogMetaPage) SetTableMetaPage(tableID uint32, metaPageID int32) error {
	if i := c.findTable(tableID); i >= 0 {
		c.writePair(c.tableOffset(i), tableID, metaPageID)
		return nil
	}
	n := c.numTables()
	if n >= MaxCatalogTables {
		return ErrCatalogFull
	}
	c.writePair(c.tableOffset(n), tableID, metaPageID)
	c.setNumTables(n + 1)
	return nil
}

// RemoveTableMetaPage deletes tableID's entry, compacting the region.
func (c *CatalogMetaPage) RemoveTableMetaPage(tableID uint32) bool {
	i := c.findTable(tableID)
	if i < 0 {
		return false
	}
	n := c.numTables()
	last := n - 1
	if i != last {
		id, p := c.readPair(c.tableOffset(last))
		c.writePair(c.tableOffset(i), id, p)
	}
	c.setNumTables(last)
	return true
}

// ListTableIDs returns every registered table id, in registry order.
func (c *CatalogMetaPage) ListTableIDs() []uint32 {
	n := c.numTables()
	ids := make([]uint32, n)
	for i := 0; i < n; i++ {
		id, _ := c.readPair(c.tableOffset(i))
		ids[i] = id
	}
	return ids
}

// GetIndexMetaPage returns the meta page id registered for indexID.
func (c *CatalogMetaPage) GetIndexMetaPage(indexID uint32) (metaPageID int32, ok bool) {
	i := c.findIndex(indexID)
	if i < 0 {
		return InvalidPageID, false
	}
	_, p := c.readPair(c.indexOffset(i))
	return p, true
}

// SetIndexMetaPage registers or updates indexID's meta page id.
func (c *CatalogMetaPage) SetIndexMetaPage(indexID uint32, metaPageID int32) error {
	if i := c.findIndex(indexID); i >= 0 {
		c.writePair(c.indexOffset(i), indexID, metaPageID)
		return nil
	}
	n := c.numIndexes()
	if n >= MaxCatalogIndexes {
		return ErrCatalogFull
	}
	c.writePair(c.indexOffset(n), indexID, metaPageID)
	c.setNumIndexes(n + 1)
	return nil
}

// RemoveIndexMetaPage deletes indexID's entry, compacting the region.
func (c *CatalogMetaPage) RemoveIndexMetaPage(indexID uint32) bool {
	i := c.findIndex(indexID)
	if i < 0 {
		return false
	}
	n := c.numIndexes()
	last := n - 1
	if i != last {
		id, p := c.readPair(c.indexOffset(last))
		c.writePair(c.indexOffset(i), id, p)
	}
	c.setNumIndexes(last)
	return true
}

// ListIndexIDs returns every registered index id, in registry order.
func (c *CatalogMetaPage) ListIndexIDs() []uint32 {
	n := c.numIndexes()
	ids := make([]uint32, n)
	for i := 0; i < n; i++ {
		id, _ := c.readPair(c.indexOffset(i))
		ids[i] = id
	}
	return ids
}
