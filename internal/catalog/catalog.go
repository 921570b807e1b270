// Package catalog persists table and index metadata through the shared
// buffer pool: the catalog meta page (storage.CatalogMetaPageID) maps table
// and index ids to their own dedicated metadata pages, exactly as spec'd
// for L4 of the engine.
package catalog

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/minisql-engine/core/internal/btree"
	"github.com/minisql-engine/core/internal/bufferpool"
	"github.com/minisql-engine/core/internal/heap"
	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

// TableInfo is the catalog's public view of a registered table.
type TableInfo struct {
	ID              uint32
	Name            string
	Schema          record.Schema
	HeapFirstPageID int32
}

// IndexInfo is the catalog's public view of a registered index.
type IndexInfo struct {
	ID        uint32
	Name      string
	TableID   uint32
	KeyColumn string
}

// Catalog is the single source of truth for which tables and indexes exist,
// backed entirely by pages fetched through the buffer pool. It holds no
// page pinned across calls: every method fetches what it needs and
// releases it before returning.
type Catalog struct {
	bp *bufferpool.BufferPoolManager

	mu          sync.Mutex
	nextTableID uint32
	nextIndexID uint32
}

// Open loads (or, on a brand new database, initializes) the catalog meta
// page and scans its registry to seed the next table/index id counters.
func Open(bp *bufferpool.BufferPoolManager) (*Catalog, error) {
	g, err := bp.FetchPage(storage.CatalogMetaPageID)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch meta page: %w", err)
	}

	cm := storage.WrapCatalogMetaPage(g.Raw())
	dirty := false
	if cm.Magic() != storage.CatalogMetaMagic {
		cm = storage.InitCatalogMetaPage(g.Raw())
		dirty = true
	}
	tableIDs := cm.ListTableIDs()
	indexIDs := cm.ListIndexIDs()
	g.Release(dirty)

	c := &Catalog{bp: bp}
	for _, id := range tableIDs {
		if id+1 > c.nextTableID {
			c.nextTableID = id + 1
		}
	}
	for _, id := range indexIDs {
		if id+1 > c.nextIndexID {
			c.nextIndexID = id + 1
		}
	}
	slog.Debug("catalog.Open", "tables", len(tableIDs), "indexes", len(indexIDs))
	return c, nil
}

// withCatalogMeta fetches the catalog meta page, runs fn against it, and
// releases it with the dirty bit fn reports.
func (c *Catalog) withCatalogMeta(fn func(cm *storage.CatalogMetaPage) (dirty bool, err error)) error {
	g, err := c.bp.FetchPage(storage.CatalogMetaPageID)
	if err != nil {
		return fmt.Errorf("catalog: fetch meta page: %w", err)
	}
	cm := storage.WrapCatalogMetaPage(g.Raw())
	dirty, err := fn(cm)
	g.Release(dirty)
	return err
}

// findTableByName scans every registered table's meta page for a name
// match. Returns ok=false if no table is registered under that name.
func (c *Catalog) findTableByName(name string) (info TableInfo, metaPageID int32, ok bool, err error) {
	var tableIDs []uint32
	err = c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
		tableIDs = cm.ListTableIDs()
		return false, nil
	})
	if err != nil {
		return TableInfo{}, storage.InvalidPageID, false, err
	}

	for _, id := range tableIDs {
		var pageID int32
		err = c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
			p, exists := cm.GetTableMetaPage(id)
			if exists {
				pageID = p
			}
			return false, nil
		})
		if err != nil {
			return TableInfo{}, storage.InvalidPageID, false, err
		}

		ti, err := c.readTableMetaPage(pageID)
		if err != nil {
			return TableInfo{}, storage.InvalidPageID, false, err
		}
		if ti.Name == name {
			return ti, pageID, true, nil
		}
	}
	return TableInfo{}, storage.InvalidPageID, false, nil
}

func (c *Catalog) readTableMetaPage(pageID int32) (TableInfo, error) {
	g, err := c.bp.FetchPage(pageID)
	if err != nil {
		return TableInfo{}, fmt.Errorf("catalog: fetch table meta page %d: %w", pageID, err)
	}
	defer g.Release(false)

	tp := storage.WrapTableMetaPage(g.Raw())
	schema, err := record.DeserializeSchema(tp.SchemaBytes())
	if err != nil {
		return TableInfo{}, fmt.Errorf("catalog: decode schema for table meta page %d: %w", pageID, err)
	}
	return TableInfo{
		ID:              tp.TableID(),
		Name:            tp.Name(),
		Schema:          schema,
		HeapFirstPageID: tp.HeapFirstPageID(),
	}, nil
}

func (c *Catalog) readIndexMetaPage(pageID int32) (IndexInfo, error) {
	g, err := c.bp.FetchPage(pageID)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("catalog: fetch index meta page %d: %w", pageID, err)
	}
	defer g.Release(false)

	ip := storage.WrapIndexMetaPage(g.Raw())
	return IndexInfo{
		ID:        ip.IndexID(),
		Name:      ip.Name(),
		TableID:   ip.TableID(),
		KeyColumn: ip.KeyColumn(),
	}, nil
}

// CreateTable allocates a fresh TableHeap and registers a new table under
// name with the given schema.
func (c *Catalog) CreateTable(name string, schema record.Schema) (TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, _, ok, err := c.findTableByName(name); err != nil {
		return TableInfo{}, err
	} else if ok {
		return TableInfo{}, ErrTableAlreadyExists
	}

	th, err := heap.CreateTableHeap(c.bp)
	if err != nil {
		return TableInfo{}, fmt.Errorf("catalog: create table heap: %w", err)
	}

	tableID := c.nextTableID
	schemaBytes := schema.Serialize()

	g, err := c.bp.NewPage()
	if err != nil {
		return TableInfo{}, fmt.Errorf("catalog: allocate table meta page: %w", err)
	}
	metaPageID := g.PageID()
	if _, err := storage.InitTableMetaPage(g.Raw(), tableID, name, th.FirstPageID(), schemaBytes); err != nil {
		g.Release(false)
		_ = c.bp.DeletePage(metaPageID)
		return TableInfo{}, err
	}
	g.Release(true)

	if err := c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
		return true, cm.SetTableMetaPage(tableID, metaPageID)
	}); err != nil {
		return TableInfo{}, fmt.Errorf("catalog: register table: %w", err)
	}

	c.nextTableID++
	slog.Debug("catalog.CreateTable", "table", name, "id", tableID, "heapFirstPage", th.FirstPageID())
	return TableInfo{ID: tableID, Name: name, Schema: schema, HeapFirstPageID: th.FirstPageID()}, nil
}

// GetTable looks up a registered table by name.
func (c *Catalog) GetTable(name string) (TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, _, ok, err := c.findTableByName(name)
	if err != nil {
		return TableInfo{}, err
	}
	if !ok {
		return TableInfo{}, ErrTableNotExists
	}
	return info, nil
}

// OpenTableHeap looks up a registered table and opens its TableHeap.
func (c *Catalog) OpenTableHeap(name string) (*heap.TableHeap, TableInfo, error) {
	info, err := c.GetTable(name)
	if err != nil {
		return nil, TableInfo{}, err
	}
	th, err := heap.OpenTableHeap(c.bp, info.HeapFirstPageID)
	if err != nil {
		return nil, TableInfo{}, fmt.Errorf("catalog: open table heap for %q: %w", name, err)
	}
	return th, info, nil
}

// ListTables returns every registered table.
func (c *Catalog) ListTables() ([]TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var tableIDs []uint32
	var metaPageOf = map[uint32]int32{}
	if err := c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
		tableIDs = cm.ListTableIDs()
		for _, id := range tableIDs {
			p, _ := cm.GetTableMetaPage(id)
			metaPageOf[id] = p
		}
		return false, nil
	}); err != nil {
		return nil, err
	}

	out := make([]TableInfo, 0, len(tableIDs))
	for _, id := range tableIDs {
		ti, err := c.readTableMetaPage(metaPageOf[id])
		if err != nil {
			return nil, err
		}
		out = append(out, ti)
	}
	return out, nil
}

// DropTable removes a table's catalog registration and frees its metadata
// page. It does not touch the table's still-allocated heap pages or any
// indexes still registered on it: callers are expected to DropIndex every
// index on the table first (mirrors spec.md's catalog error taxonomy, which
// has no "table has dependent indexes" error of its own).
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, metaPageID, ok, err := c.findTableByName(name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTableNotExists
	}

	if err := c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
		cm.RemoveTableMetaPage(info.ID)
		return true, nil
	}); err != nil {
		return err
	}
	if err := c.bp.DeletePage(metaPageID); err != nil {
		return fmt.Errorf("catalog: delete table meta page %d: %w", metaPageID, err)
	}
	slog.Debug("catalog.DropTable", "table", name, "id", info.ID)
	return nil
}

// CreateIndex builds a new B+-tree index on table/keyColumn and registers
// it under indexName.
func (c *Catalog) CreateIndex(tableName, indexName, keyColumn string) (IndexInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tinfo, _, ok, err := c.findTableByName(tableName)
	if err != nil {
		return IndexInfo{}, err
	}
	if !ok {
		return IndexInfo{}, ErrTableNotExists
	}
	if _, _, ok := tinfo.Schema.ColumnByName(keyColumn); !ok {
		return IndexInfo{}, ErrColumnNameNotExists
	}
	if _, _, ok, err := c.findIndexByName(tinfo.ID, indexName); err != nil {
		return IndexInfo{}, err
	} else if ok {
		return IndexInfo{}, ErrIndexAlreadyExists
	}

	indexID := c.nextIndexID
	tree, err := btree.NewTree(c.bp, indexID)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("catalog: create index tree: %w", err)
	}
	_ = tree // root/height already persisted by NewTree via the index-roots page

	g, err := c.bp.NewPage()
	if err != nil {
		return IndexInfo{}, fmt.Errorf("catalog: allocate index meta page: %w", err)
	}
	metaPageID := g.PageID()
	if _, err := storage.InitIndexMetaPage(g.Raw(), indexID, tinfo.ID, indexName, keyColumn); err != nil {
		g.Release(false)
		_ = c.bp.DeletePage(metaPageID)
		return IndexInfo{}, err
	}
	g.Release(true)

	if err := c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
		return true, cm.SetIndexMetaPage(indexID, metaPageID)
	}); err != nil {
		return IndexInfo{}, fmt.Errorf("catalog: register index: %w", err)
	}

	c.nextIndexID++
	slog.Debug("catalog.CreateIndex", "table", tableName, "index", indexName, "id", indexID)
	return IndexInfo{ID: indexID, Name: indexName, TableID: tinfo.ID, KeyColumn: keyColumn}, nil
}

// findIndexByName scans every index registered on tableID for a name match.
func (c *Catalog) findIndexByName(tableID uint32, name string) (info IndexInfo, metaPageID int32, ok bool, err error) {
	var indexIDs []uint32
	err = c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
		indexIDs = cm.ListIndexIDs()
		return false, nil
	})
	if err != nil {
		return IndexInfo{}, storage.InvalidPageID, false, err
	}

	for _, id := range indexIDs {
		var pageID int32
		err = c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
			p, exists := cm.GetIndexMetaPage(id)
			if exists {
				pageID = p
			}
			return false, nil
		})
		if err != nil {
			return IndexInfo{}, storage.InvalidPageID, false, err
		}

		ii, err := c.readIndexMetaPage(pageID)
		if err != nil {
			return IndexInfo{}, storage.InvalidPageID, false, err
		}
		if ii.TableID == tableID && ii.Name == name {
			return ii, pageID, true, nil
		}
	}
	return IndexInfo{}, storage.InvalidPageID, false, nil
}

// GetIndex looks up a registered index by table/index name.
func (c *Catalog) GetIndex(tableName, indexName string) (IndexInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tinfo, _, ok, err := c.findTableByName(tableName)
	if err != nil {
		return IndexInfo{}, err
	}
	if !ok {
		return IndexInfo{}, ErrTableNotExists
	}
	info, _, ok, err := c.findIndexByName(tinfo.ID, indexName)
	if err != nil {
		return IndexInfo{}, err
	}
	if !ok {
		return IndexInfo{}, ErrIndexNotFound
	}
	return info, nil
}

// OpenIndex looks up a registered index and opens its B+-tree handle.
func (c *Catalog) OpenIndex(tableName, indexName string) (*btree.Tree, IndexInfo, error) {
	info, err := c.GetIndex(tableName, indexName)
	if err != nil {
		return nil, IndexInfo{}, err
	}
	tree, err := btree.OpenTree(c.bp, info.ID)
	if err != nil {
		return nil, IndexInfo{}, fmt.Errorf("catalog: open index tree %q: %w", indexName, err)
	}
	return tree, info, nil
}

// ListIndexes returns every index registered on tableName.
func (c *Catalog) ListIndexes(tableName string) ([]IndexInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tinfo, _, ok, err := c.findTableByName(tableName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTableNotExists
	}

	var indexIDs []uint32
	metaPageOf := map[uint32]int32{}
	if err := c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
		indexIDs = cm.ListIndexIDs()
		for _, id := range indexIDs {
			p, _ := cm.GetIndexMetaPage(id)
			metaPageOf[id] = p
		}
		return false, nil
	}); err != nil {
		return nil, err
	}

	out := make([]IndexInfo, 0)
	for _, id := range indexIDs {
		ii, err := c.readIndexMetaPage(metaPageOf[id])
		if err != nil {
			return nil, err
		}
		if ii.TableID == tinfo.ID {
			out = append(out, ii)
		}
	}
	return out, nil
}

// DropIndex drops an index's B+-tree pages and its catalog registration.
func (c *Catalog) DropIndex(tableName, indexName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tinfo, _, ok, err := c.findTableByName(tableName)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTableNotExists
	}
	info, metaPageID, ok, err := c.findIndexByName(tinfo.ID, indexName)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIndexNotFound
	}

	tree, err := btree.OpenTree(c.bp, info.ID)
	if err != nil {
		return fmt.Errorf("catalog: open index tree before drop: %w", err)
	}
	if err := tree.Drop(); err != nil {
		return fmt.Errorf("catalog: drop index tree: %w", err)
	}

	if err := c.withCatalogMeta(func(cm *storage.CatalogMetaPage) (bool, error) {
		cm.RemoveIndexMetaPage(info.ID)
		return true, nil
	}); err != nil {
		return err
	}
	if err := c.bp.DeletePage(metaPageID); err != nil {
		return fmt.Errorf("catalog: delete index meta page %d: %w", metaPageID, err)
	}
	slog.Debug("catalog.DropIndex", "table", tableName, "index", indexName, "id", info.ID)
	return nil
}
