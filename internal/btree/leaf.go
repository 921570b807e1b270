package btree

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

// ErrOutOfOrderInsert is returned by Tree.Insert when a key smaller than the
// last inserted key is given; monotonic-insert checking happens at the
// Tree level, so leaves themselves accept entries in any order.
var ErrOutOfOrderInsert = fmt.Errorf("btree: keys must be inserted in non-decreasing order")

// LeafNode is a thin wrapper around storage.Page for leaf-level index
// entries. Every tuple on the page is a leaf entry encoded by EncodeLeafEntry.
type LeafNode struct {
	Page *storage.Page
}

// NumKeys returns how many entries (slots) are on this leaf.
func (n *LeafNode) NumKeys() int {
	return n.Page.NumSlots()
}

// MaxSize is the leaf_max_size from this page's header, stamped once at
// creation time.
func (n *LeafNode) MaxSize() int { return headerMaxSize(n.Page) }

// ParentPageID is the page id of this leaf's parent internal node, or
// storage.InvalidPageID for a root leaf.
func (n *LeafNode) ParentPageID() int32 { return headerParentPageID(n.Page) }

// SetParentPageID updates this leaf's parent pointer, e.g. after its parent
// node splits and this leaf is reassigned to the new sibling page.
func (n *LeafNode) SetParentPageID(id int32) { setHeaderParentPageID(n.Page, id) }

// NextPageID is this leaf's successor in the leaf sibling chain, or
// storage.InvalidPageID for the rightmost leaf.
func (n *LeafNode) NextPageID() int32 { return headerNextPageID(n.Page) }

// SetNextPageID updates this leaf's successor link.
func (n *LeafNode) SetNextPageID(id int32) { setHeaderNextPageID(n.Page, id) }

// initHeader stamps a brand-new leaf page's header. Must run before any
// entries are appended.
func (n *LeafNode) initHeader(maxSize int, parentPageID int32) {
	initNodeHeader(n.Page, NodePageTypeLeaf, maxSize, parentPageID)
}

// KeyAt decodes the key at the given slot.
func (n *LeafNode) KeyAt(i int) (KeyType, error) {
	data, err := n.Page.ReadTuple(i)
	if err != nil {
		return 0, err
	}
	key, _ := DecodeLeafEntry(data)
	return key, nil
}

// EntryAt decodes (key, RowID) at the given slot.
func (n *LeafNode) EntryAt(i int) (KeyType, record.RowID, error) {
	data, err := n.Page.ReadTuple(i)
	if err != nil {
		return 0, record.RowID{}, err
	}
	key, rid := DecodeLeafEntry(data)
	return key, rid, nil
}

// AppendEntry appends a new (key, RowID) at the end of the page. Leaves do
// not keep entries sorted on the page itself; query methods build a sorted
// view on demand.
func (n *LeafNode) AppendEntry(key KeyType, rid record.RowID) error {
	data := EncodeLeafEntry(key, rid)
	slot, err := n.Page.InsertTuple(data)
	if err == nil {
		slog.Debug("btree.Leaf.AppendEntry", "key", key, "pageID", n.Page.PageID(), "slot", slot)
	}
	return err
}

// leafEntry is an in-memory representation of a leaf tuple.
type leafEntry struct {
	key key
	rid record.RowID
}

type key = KeyType

// readEntries reads all entries from the leaf in physical slot order
// (unsorted), skipping nothing: leaves hold no tombstones.
func (n *LeafNode) readEntries() ([]leafEntry, error) {
	num := n.NumKeys()
	out := make([]leafEntry, 0, num)
	for i := 0; i < num; i++ {
		k, rid, err := n.EntryAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, leafEntry{key: k, rid: rid})
	}
	return out, nil
}

// rebuildSorted clears the page and re-inserts entries in the given order,
// preserving the page's header (page_type/max_size/parent/next) across the
// Reset, since Reset zeroes the whole buffer including the Special trailer.
func (n *LeafNode) rebuildSorted(entries []leafEntry) error {
	var hdr [storage.SpecialSize]byte
	copy(hdr[:], n.Page.Special())

	n.Page.Reset(n.Page.PageID())
	copy(n.Page.Special(), hdr[:])

	for _, e := range entries {
		if err := n.AppendEntry(e.key, e.rid); err != nil {
			return err
		}
	}
	return nil
}

func sortLeafEntries(entries []leafEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
}

// entriesSorted reads all entries from the leaf and returns them sorted by key.
func (n *LeafNode) entriesSorted() ([]leafEntry, error) {
	out, err := n.readEntries()
	if err != nil {
		return nil, err
	}
	sortLeafEntries(out)
	return out, nil
}

// lowerBoundSorted returns the first index i in entries such that
// entries[i].key >= target. If all keys < target, returns len(entries).
func lowerBoundSorted(entries []leafEntry, target KeyType) int {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if entries[mid].key < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// FindEqual finds all RowIDs with the given key using a sorted in-memory view.
func (n *LeafNode) FindEqual(k KeyType) ([]record.RowID, error) {
	var out []record.RowID

	entries, err := n.entriesSorted()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return out, nil
	}

	start := lowerBoundSorted(entries, k)
	for i := start; i < len(entries); i++ {
		e := entries[i]
		if e.key != k {
			break
		}
		out = append(out, e.rid)
	}
	slog.Debug("btree.Leaf.FindEqual", "pageID", n.Page.PageID(), "key", k, "numRIDs", len(out))
	return out, nil
}

// FirstGEKey returns the first index in the sorted view whose key >= target,
// or -1 if none. Index is into the sorted view, not a page slot.
func (n *LeafNode) FirstGEKey(target KeyType) (int, error) {
	entries, err := n.entriesSorted()
	if err != nil {
		return -1, err
	}
	if len(entries) == 0 {
		return -1, nil
	}
	i := lowerBoundSorted(entries, target)
	if i >= len(entries) {
		return -1, nil
	}
	return i, nil
}

// Range returns all RowIDs with minKey <= key <= maxKey in this leaf.
func (n *LeafNode) Range(minKey, maxKey KeyType) ([]record.RowID, error) {
	var out []record.RowID
	if minKey > maxKey {
		return out, nil
	}

	entries, err := n.entriesSorted()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return out, nil
	}

	i := lowerBoundSorted(entries, minKey)
	for i < len(entries) {
		e := entries[i]
		if e.key > maxKey {
			break
		}
		out = append(out, e.rid)
		i++
	}
	slog.Debug("btree.Leaf.Range", "pageID", n.Page.PageID(), "minKey", minKey, "maxKey", maxKey, "numRIDs", len(out))
	return out, nil
}

// DebugDump prints a human-readable representation of the leaf contents in
// physical slot order (not sorted).
func (n *LeafNode) DebugDump() string {
	s := "LeafNode{"
	for i := 0; i < n.Page.NumSlots(); i++ {
		k, rid, err := n.EntryAt(i)
		if err != nil {
			s += fmt.Sprintf(" [err: %v]", err)
			continue
		}
		s += fmt.Sprintf(" (%d -> %+v)", k, rid)
	}
	s += " }"
	return s
}
