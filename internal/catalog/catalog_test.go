package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minisql-engine/core/internal/bufferpool"
	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	dir := t.TempDir()
	dm, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	bp := bufferpool.NewBufferPoolManager(dm, 64, bufferpool.NewLRUReplacer())

	cat, err := Open(bp)
	require.NoError(t, err)
	return cat
}

func personSchema() record.Schema {
	return record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt64, Nullable: false},
		{Name: "name", Type: record.ColText, Nullable: false},
	}}
}

func TestCatalog_CreateAndGetTable(t *testing.T) {
	cat := newTestCatalog(t)
	schema := personSchema()

	created, err := cat.CreateTable("people", schema)
	require.NoError(t, err)
	require.Equal(t, "people", created.Name)
	require.True(t, created.HeapFirstPageID >= 0)

	fetched, err := cat.GetTable("people")
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, created.HeapFirstPageID, fetched.HeapFirstPageID)
	require.Equal(t, schema.NumCols(), fetched.Schema.NumCols())
}

func TestCatalog_CreateTableDuplicateNameRejected(t *testing.T) {
	cat := newTestCatalog(t)
	schema := personSchema()

	_, err := cat.CreateTable("people", schema)
	require.NoError(t, err)

	_, err = cat.CreateTable("people", schema)
	require.ErrorIs(t, err, ErrTableAlreadyExists)
}

func TestCatalog_GetTableNotExists(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.GetTable("ghost")
	require.ErrorIs(t, err, ErrTableNotExists)
}

func TestCatalog_InsertAndScanThroughOpenedHeap(t *testing.T) {
	cat := newTestCatalog(t)
	schema := personSchema()

	_, err := cat.CreateTable("people", schema)
	require.NoError(t, err)

	th, info, err := cat.OpenTableHeap("people")
	require.NoError(t, err)
	require.Equal(t, schema.NumCols(), info.Schema.NumCols())

	data, err := record.EncodeRow(schema, []any{int64(1), "alice"})
	require.NoError(t, err)
	rid, err := th.InsertTuple(data)
	require.NoError(t, err)

	got, err := th.GetTuple(rid)
	require.NoError(t, err)
	values, err := record.DecodeRow(schema, got)
	require.NoError(t, err)
	require.Equal(t, int64(1), values[0])
	require.Equal(t, "alice", values[1])
}

func TestCatalog_DropTableRemovesRegistration(t *testing.T) {
	cat := newTestCatalog(t)
	schema := personSchema()

	_, err := cat.CreateTable("people", schema)
	require.NoError(t, err)

	require.NoError(t, cat.DropTable("people"))

	_, err = cat.GetTable("people")
	require.ErrorIs(t, err, ErrTableNotExists)

	err = cat.DropTable("people")
	require.ErrorIs(t, err, ErrTableNotExists)
}

func TestCatalog_CreateIndexAndSearch(t *testing.T) {
	cat := newTestCatalog(t)
	schema := personSchema()

	_, err := cat.CreateTable("people", schema)
	require.NoError(t, err)

	idx, err := cat.CreateIndex("people", "idx_id", "id")
	require.NoError(t, err)
	require.Equal(t, "idx_id", idx.Name)
	require.Equal(t, "id", idx.KeyColumn)

	th, _, err := cat.OpenTableHeap("people")
	require.NoError(t, err)
	tree, _, err := cat.OpenIndex("people", "idx_id")
	require.NoError(t, err)

	for i := int64(1); i <= 5; i++ {
		data, err := record.EncodeRow(schema, []any{i, "row"})
		require.NoError(t, err)
		rid, err := th.InsertTuple(data)
		require.NoError(t, err)
		require.NoError(t, tree.Insert(i, rid))
	}

	rids, err := tree.SearchEqual(3)
	require.NoError(t, err)
	require.Len(t, rids, 1)
}

func TestCatalog_CreateIndexBadColumnRejected(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.CreateTable("people", personSchema())
	require.NoError(t, err)

	_, err = cat.CreateIndex("people", "idx_bad", "nonexistent")
	require.ErrorIs(t, err, ErrColumnNameNotExists)
}

func TestCatalog_CreateIndexDuplicateNameRejected(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.CreateTable("people", personSchema())
	require.NoError(t, err)

	_, err = cat.CreateIndex("people", "idx_id", "id")
	require.NoError(t, err)

	_, err = cat.CreateIndex("people", "idx_id", "id")
	require.ErrorIs(t, err, ErrIndexAlreadyExists)
}

func TestCatalog_DropIndexRemovesRegistrationAndTreePages(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.CreateTable("people", personSchema())
	require.NoError(t, err)

	_, err = cat.CreateIndex("people", "idx_id", "id")
	require.NoError(t, err)

	tree, _, err := cat.OpenIndex("people", "idx_id")
	require.NoError(t, err)
	rootPageID := int32(tree.Root)

	require.NoError(t, cat.DropIndex("people", "idx_id"))

	_, err = cat.GetIndex("people", "idx_id")
	require.ErrorIs(t, err, ErrIndexNotFound)

	_, _, err = cat.OpenIndex("people", "idx_id")
	require.ErrorIs(t, err, ErrIndexNotFound)

	// The tree's root page went back to the disk manager: it is the lowest
	// freed page, so the next allocation reuses it.
	g, err := cat.bp.NewPage()
	require.NoError(t, err)
	require.Equal(t, rootPageID, g.PageID())
	g.Release(false)
}

func TestCatalog_ListTablesAndIndexes(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.CreateTable("people", personSchema())
	require.NoError(t, err)
	_, err = cat.CreateTable("orders", personSchema())
	require.NoError(t, err)

	tables, err := cat.ListTables()
	require.NoError(t, err)
	require.Len(t, tables, 2)

	_, err = cat.CreateIndex("people", "idx_id", "id")
	require.NoError(t, err)

	indexes, err := cat.ListIndexes("people")
	require.NoError(t, err)
	require.Len(t, indexes, 1)

	none, err := cat.ListIndexes("orders")
	require.NoError(t, err)
	require.Empty(t, none)
}
