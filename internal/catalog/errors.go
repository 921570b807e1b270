package catalog

import "errors"

var (
	// ErrTableAlreadyExists is returned by CreateTable when a table with
	// the same name is already registered.
	ErrTableAlreadyExists = errors.New("catalog: table already exists")

	// ErrTableNotExists is returned by GetTable/DropTable/CreateIndex/... for
	// an unregistered table name.
	ErrTableNotExists = errors.New("catalog: table does not exist")

	// ErrIndexAlreadyExists is returned by CreateIndex when an index with
	// the same name is already registered on the table.
	ErrIndexAlreadyExists = errors.New("catalog: index already exists")

	// ErrIndexNotFound is returned by GetIndex/DropIndex for an
	// unregistered index name.
	ErrIndexNotFound = errors.New("catalog: index not found")

	// ErrColumnNameNotExists is returned by CreateIndex when the requested
	// key column is not part of the table's schema.
	ErrColumnNameNotExists = errors.New("catalog: column does not exist")
)
