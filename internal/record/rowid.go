package record

import "fmt"

// RowID identifies a tuple by the page that holds it and its slot within
// that page's slot array.
type RowID struct {
	PageID int32
	SlotID uint32
}

func (r RowID) String() string { return fmt.Sprintf("(%d,%d)", r.PageID, r.SlotID) }

// Valid reports whether r refers to a real page (InvalidPageID sentinel
// excluded). It does not check the slot against any page's actual slot
// count, which requires the page itself.
func (r RowID) Valid() bool { return r.PageID >= 0 }
