// Package engine assembles the storage core's layers — DiskManager,
// BufferPoolManager, Catalog — into one handle per open database directory.
package engine

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/minisql-engine/core/internal/btree"
	"github.com/minisql-engine/core/internal/bufferpool"
	"github.com/minisql-engine/core/internal/catalog"
	"github.com/minisql-engine/core/internal/heap"
	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

var (
	ErrDatabaseClosed = errors.New("novasql: database is closed")
)

// DataFileName is the single on-disk file a Database owns; every table,
// index, and the catalog itself live in it as logical pages.
const DataFileName = "novasql.db"

// DefaultBufferPoolSize is how many frames NewDatabase allocates when the
// caller does not ask for a specific pool size.
const DefaultBufferPoolSize = 256

// Database is the top-level handle over one data directory: a single
// DiskManager-backed file, a shared buffer pool, and the Catalog that
// tracks every table and index registered in it.
type Database struct {
	DataDir string

	disk    *storage.DiskManager
	bp      *bufferpool.BufferPoolManager
	catalog *catalog.Catalog

	closed bool
}

// NewDatabase opens (creating if necessary) the database file under
// dataDir, with a buffer pool of the given capacity (DefaultBufferPoolSize
// if <= 0).
func NewDatabase(dataDir string, bufferPoolSize int) (*Database, error) {
	if bufferPoolSize <= 0 {
		bufferPoolSize = DefaultBufferPoolSize
	}

	disk, err := storage.Open(filepath.Join(dataDir, DataFileName))
	if err != nil {
		return nil, fmt.Errorf("novasql: open data file: %w", err)
	}

	bp := bufferpool.NewBufferPoolManager(disk, bufferPoolSize, bufferpool.NewLRUReplacer())

	cat, err := catalog.Open(bp)
	if err != nil {
		_ = disk.Close()
		return nil, fmt.Errorf("novasql: open catalog: %w", err)
	}

	return &Database{DataDir: dataDir, disk: disk, bp: bp, catalog: cat}, nil
}

func (db *Database) ensureOpen() error {
	if db.closed {
		return ErrDatabaseClosed
	}
	return nil
}

// CreateTable registers a new table with the given schema and allocates its
// heap's first page.
func (db *Database) CreateTable(name string, schema record.Schema) (catalog.TableInfo, error) {
	if err := db.ensureOpen(); err != nil {
		return catalog.TableInfo{}, err
	}
	return db.catalog.CreateTable(name, schema)
}

// OpenTable opens an existing table's heap for reading/writing.
func (db *Database) OpenTable(name string) (*heap.TableHeap, catalog.TableInfo, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, catalog.TableInfo{}, err
	}
	return db.catalog.OpenTableHeap(name)
}

// DropTable removes a table's catalog registration. See Catalog.DropTable
// for the cascade caveat (indexes must be dropped first).
func (db *Database) DropTable(name string) error {
	if err := db.ensureOpen(); err != nil {
		return err
	}
	return db.catalog.DropTable(name)
}

// ListTables returns every registered table.
func (db *Database) ListTables() ([]catalog.TableInfo, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.catalog.ListTables()
}

// CreateBTreeIndex builds a new B+-tree index on table/keyColumn.
func (db *Database) CreateBTreeIndex(table, indexName, keyColumn string) (catalog.IndexInfo, error) {
	if err := db.ensureOpen(); err != nil {
		return catalog.IndexInfo{}, err
	}
	return db.catalog.CreateIndex(table, indexName, keyColumn)
}

// OpenBTreeIndex opens an existing index's B+-tree handle.
func (db *Database) OpenBTreeIndex(table, indexName string) (*btree.Tree, catalog.IndexInfo, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, catalog.IndexInfo{}, err
	}
	return db.catalog.OpenIndex(table, indexName)
}

// DropIndex drops an index's B+-tree pages and its catalog registration.
func (db *Database) DropIndex(table, indexName string) error {
	if err := db.ensureOpen(); err != nil {
		return err
	}
	return db.catalog.DropIndex(table, indexName)
}

// ListIndexes returns every index registered on table.
func (db *Database) ListIndexes(table string) ([]catalog.IndexInfo, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.catalog.ListIndexes(table)
}

// Close flushes every dirty page and closes the underlying data file.
func (db *Database) Close() error {
	if db.closed {
		return nil
	}
	db.closed = true

	if err := db.bp.FlushAllPages(); err != nil {
		_ = db.disk.Close()
		return fmt.Errorf("novasql: flush on close: %w", err)
	}
	return db.disk.Close()
}
