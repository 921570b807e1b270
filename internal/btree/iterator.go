package btree

import (
	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

// Iterator walks a Tree's leaves in key order via the leaf sibling chain
// (next_page_id), pinning at most one leaf page at a time. Its zero value
// is not usable; obtain one from Tree.Begin or Tree.BeginAt.
type Iterator struct {
	t *Tree

	pageID     int32 // storage.InvalidPageID once exhausted
	nextPageID int32
	entries    []leafEntry
	idx        int
}

// Begin returns an iterator positioned at the first entry of the leftmost
// leaf, per spec.md §4.4's Begin().
func (t *Tree) Begin() (*Iterator, error) {
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	pageID, err := t.leftmostLeaf()
	if err != nil {
		return nil, err
	}
	it := &Iterator{t: t}
	if err := it.loadLeaf(int32(pageID)); err != nil {
		return nil, err
	}
	if err := it.skipToValid(); err != nil {
		return nil, err
	}
	return it, nil
}

// BeginAt returns an iterator positioned at the first entry with key >=
// the given key, per spec.md §4.4's Begin(key). Named distinctly from
// Begin since Go has no overloading.
func (t *Tree) BeginAt(key KeyType) (*Iterator, error) {
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	pageID, err := t.leafForKey(key)
	if err != nil {
		return nil, err
	}
	it := &Iterator{t: t}
	if err := it.loadLeaf(int32(pageID)); err != nil {
		return nil, err
	}
	it.idx = lowerBoundSorted(it.entries, key)
	if err := it.skipToValid(); err != nil {
		return nil, err
	}
	return it, nil
}

// leftmostLeaf descends the tree always following the first child, with no
// regard to key.
func (t *Tree) leftmostLeaf() (uint32, error) {
	pageID := t.Root
	level := t.Height
	for level > 1 {
		g, err := t.bp.FetchPage(int32(pageID))
		if err != nil {
			return 0, err
		}
		node := &InternalNode{Page: g.Page()}
		if node.NumKeys() == 0 {
			g.Release(false)
			return 0, ErrInternalNodeHasNoEntries
		}
		_, child, err := node.EntryAt(0)
		g.Release(false)
		if err != nil {
			return 0, err
		}
		pageID = child
		level--
	}
	return pageID, nil
}

// leafForKey descends the tree the same way SearchEqual/Insert do, landing
// on the leaf that would contain key.
func (t *Tree) leafForKey(key KeyType) (uint32, error) {
	pageID := t.Root
	level := t.Height
	for level > 1 {
		g, err := t.bp.FetchPage(int32(pageID))
		if err != nil {
			return 0, err
		}
		node := &InternalNode{Page: g.Page()}
		_, child, err := node.findChildIndex(key)
		g.Release(false)
		if err != nil {
			return 0, err
		}
		pageID = child
		level--
	}
	return pageID, nil
}

// loadLeaf fetches pageID, caches its sorted entries and next-leaf link,
// and resets idx to 0. Pins the page only for the duration of the read.
func (it *Iterator) loadLeaf(pageID int32) error {
	g, err := it.t.bp.FetchPage(pageID)
	if err != nil {
		return err
	}
	leaf := &LeafNode{Page: g.Page()}
	entries, err := leaf.entriesSorted()
	if err != nil {
		g.Release(false)
		return err
	}
	next := leaf.NextPageID()
	g.Release(false)

	it.pageID = pageID
	it.entries = entries
	it.nextPageID = next
	it.idx = 0
	return nil
}

// skipToValid advances across empty or exhausted leaves until idx points at
// a live entry, or the leaf chain is exhausted (End()).
func (it *Iterator) skipToValid() error {
	for it.idx >= len(it.entries) {
		if it.nextPageID == storage.InvalidPageID {
			it.pageID = storage.InvalidPageID
			it.entries = nil
			it.idx = 0
			return nil
		}
		if err := it.loadLeaf(it.nextPageID); err != nil {
			return err
		}
	}
	return nil
}

// Valid reports whether the iterator is positioned at a live entry. A
// false Valid is spec.md §4.4's End() sentinel.
func (it *Iterator) Valid() bool { return it.pageID != storage.InvalidPageID }

// Key returns the current entry's key. Only meaningful when Valid.
func (it *Iterator) Key() KeyType { return it.entries[it.idx].key }

// RowID returns the current entry's RowID. Only meaningful when Valid.
func (it *Iterator) RowID() record.RowID { return it.entries[it.idx].rid }

// Next advances the iterator by one entry, following next_page_id across
// leaf boundaries as needed.
func (it *Iterator) Next() error {
	it.idx++
	return it.skipToValid()
}
