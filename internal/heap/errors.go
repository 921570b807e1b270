package heap

import "errors"

// ErrTupleTooLarge is returned when a tuple does not fit on a fresh, empty
// page either, so TableHeap's single retry cannot place it.
var ErrTupleTooLarge = errors.New("heap: tuple too large for a page")

// ErrRowNotFound is returned when a RowID's slot has been deleted or never
// existed.
var ErrRowNotFound = errors.New("heap: row not found")
