package heap

import (
	"github.com/minisql-engine/core/internal/alias/bx"
	"github.com/minisql-engine/core/internal/storage"
)

// TablePage is a storage.Page whose fixed Special trailer holds the id of
// the next page in the table's singly linked page chain.
type TablePage struct {
	*storage.Page
}

// WrapTablePage views an already-initialized slotted page as a TablePage.
func WrapTablePage(buf []byte) *TablePage {
	return &TablePage{Page: storage.WrapPage(buf)}
}

// NewTablePage initializes buf as an empty TablePage with no next page.
func NewTablePage(buf []byte, pageID uint32) *TablePage {
	storage.NewPage(buf, pageID)
	tp := &TablePage{Page: storage.WrapPage(buf)}
	tp.SetNextPageID(storage.InvalidPageID)
	return tp
}

func (tp *TablePage) NextPageID() int32 {
	return int32(bx.U32(tp.Special()[0:4]))
}

func (tp *TablePage) SetNextPageID(id int32) {
	bx.PutU32(tp.Special()[0:4], uint32(id))
}
