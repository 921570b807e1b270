package btree

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/minisql-engine/core/internal/bufferpool"
	"github.com/minisql-engine/core/internal/record"
	"github.com/minisql-engine/core/internal/storage"
)

// ErrInvalidTreeHeight is returned when the tree height is not supported by the
// current implementation.
var (
	ErrTreeClosed                    = errors.New("btree: tree is closed")
	ErrInvalidTreeHeight             = errors.New("btree: invalid tree height")
	ErrInternalNodeHasNoEntries      = errors.New("btree: internal node has no entries")
	ErrLeafHasNoKey                  = errors.New("btree: leaf has no keys")
	ErrCannotSplitLeafGreaterThanTwo = errors.New("btree: cannot split leaf with <2 keys")
	ErrInternalChildIdxOutOfRange    = errors.New("btree: internal child index out of range")
	ErrInternalNodePageHasZeroCap    = errors.New("btree: internal node page has zero capacity")
	ErrSplitRequiredMoreThanTwoPages = errors.New("btree: internal split would require more than two pages")
	ErrIndexNotFound                 = errors.New("btree: index has no registered root")
	ErrDuplicateKey                  = errors.New("btree: duplicate key")
)

// Index is a minimal interface BTree should satisfy to be used by planner/executor.
type Index interface {
	Insert(key KeyType, rid record.RowID) error
	Delete(key KeyType) error
	SearchEqual(key KeyType) ([]record.RowID, error)
	RangeScan(minKey, maxKey KeyType) ([]record.RowID, error)
}

// Tree is a unique-key B+-tree with arbitrary height, backed by the shared
// buffer pool. Every node is exactly one storage.Page; its root page id and
// height are registered in the shared IndexRootsPage under indexID so the
// tree can be reopened after restart without a side file.
//
// Constraints for V1:
//   - Leaf and internal nodes are each backed by exactly one Page.
//   - Only int64 keys are supported (see DESIGN.md for why).
//   - Inserts must be in non-decreasing key order (see ErrOutOfOrderInsert).
//
// Invariants:
//   - Height >= 1.
//   - Height == 1 -> root is a leaf.
//   - Height > 1  -> root is an internal node.
type Tree struct {
	bp      *bufferpool.BufferPoolManager
	indexID uint32

	Root   uint32 // root page id
	Height int

	lastKeySet bool
	lastKey    KeyType

	closed atomic.Bool
}

// NewTree creates a brand-new, empty tree for indexID: a single empty leaf
// page is allocated as the root and registered in the shared roots registry.
func NewTree(bp *bufferpool.BufferPoolManager, indexID uint32) (*Tree, error) {
	t := &Tree{bp: bp, indexID: indexID, Height: 1}

	g, err := bp.NewPage()
	if err != nil {
		return nil, err
	}
	t.Root = uint32(g.PageID())
	root := &LeafNode{Page: g.Page()}
	root.initHeader(maxLeafEntriesPerPage(), storage.InvalidPageID)
	g.Release(true)

	if err := t.saveMeta(); err != nil {
		return nil, err
	}

	slog.Debug("btree.NewTree", "indexID", indexID, "root", t.Root, "height", t.Height)
	return t, nil
}

// OpenTree reopens an existing tree for indexID using its registered root
// page id and height. It returns ErrIndexNotFound if indexID was never
// registered (e.g. NewTree was never called for it).
func OpenTree(bp *bufferpool.BufferPoolManager, indexID uint32) (*Tree, error) {
	t := &Tree{bp: bp, indexID: indexID}

	root, height, ok, err := t.loadRoot()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIndexNotFound
	}
	t.Root = uint32(root)
	t.Height = height

	slog.Debug("btree.OpenTree", "indexID", indexID, "root", t.Root, "height", t.Height)
	return t, nil
}

// allocPage allocates a fresh, empty page from the buffer pool for this tree.
func (t *Tree) allocPage() (uint32, *bufferpool.PageGuard, error) {
	g, err := t.bp.NewPage()
	if err != nil {
		return 0, nil, err
	}
	pid := uint32(g.PageID())
	slog.Debug("btree.allocPage", "pageID", pid)
	return pid, g, nil
}

// setChildParent rewrites childID's parent_page_id header field, used
// whenever a node is split or merged into a page other than the one it
// last recorded as its parent.
func (t *Tree) setChildParent(childID uint32, parentID uint32) error {
	g, err := t.bp.FetchPage(int32(childID))
	if err != nil {
		return err
	}
	setHeaderParentPageID(g.Page(), int32(parentID))
	g.Release(true)
	return nil
}

func (t *Tree) syncMeta() {
	if err := t.saveMeta(); err != nil {
		slog.Warn("btree.syncMeta: saveMeta failed", "err", err)
	}
}

// ---- Public API ----

// Insert inserts (key, rid) into the tree, performing splits as needed.
// Height may increase if the root splits.
//
// Keys must be inserted in non-decreasing order; a key smaller than the last
// inserted key returns ErrOutOfOrderInsert. A key already present in the
// tree returns ErrDuplicateKey.
func (t *Tree) Insert(key KeyType, rid record.RowID) error {
	if err := t.ensureOpen(); err != nil {
		return err
	}

	slog.Debug("btree.Insert.start",
		"key", key,
		"ridPage", rid.PageID,
		"ridSlot", rid.SlotID,
		"height", t.Height,
		"root", t.Root,
	)

	if t.lastKeySet && key < t.lastKey {
		slog.Debug("btree.Insert.out_of_order", "key", key, "lastKey", t.lastKey)
		return ErrOutOfOrderInsert
	}

	newRootID, didSplit, rightMinKey, rightPageID, err := t.insertAt(t.Root, t.Height, key, rid)
	if err != nil {
		slog.Debug("btree.Insert.insertAt_error", "err", err)
		return err
	}

	if !didSplit {
		t.Root = newRootID
		t.syncMeta()
		t.lastKey = key
		t.lastKeySet = true
		slog.Debug("btree.Insert.done_no_root_split", "root", t.Root, "height", t.Height)
		return nil
	}

	// Root split: create a new internal root one level above.
	rootLevel := t.Height
	slog.Debug("btree.Insert.root_split",
		"oldRoot", t.Root,
		"newLeftRoot", newRootID,
		"rightRoot", rightPageID,
		"rightMinKey", rightMinKey,
		"oldHeight", t.Height,
	)

	rootID, rootGuard, err := t.allocPage()
	if err != nil {
		return err
	}
	rootNode := &InternalNode{Page: rootGuard.Page()}
	rootNode.initHeader(maxInternalEntriesPerPage(), storage.InvalidPageID)
	defer rootGuard.Release(true)

	leftMinKey, err := t.findMinKeyInSubtree(newRootID, rootLevel)
	if err != nil {
		return err
	}

	if err := rootNode.AppendEntry(leftMinKey, newRootID); err != nil {
		return err
	}
	if err := rootNode.AppendEntry(rightMinKey, rightPageID); err != nil {
		return err
	}

	t.Root = rootID
	t.Height++
	t.syncMeta()

	if err := t.setChildParent(newRootID, rootID); err != nil {
		return err
	}
	if err := t.setChildParent(rightPageID, rootID); err != nil {
		return err
	}

	t.lastKey = key
	t.lastKeySet = true

	slog.Debug("btree.Insert.done_with_new_root", "root", t.Root, "height", t.Height)
	return nil
}

// SearchEqual returns all RowIDs with the given key.
func (t *Tree) SearchEqual(key KeyType) ([]record.RowID, error) {
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	if t.Height < 1 {
		return nil, ErrInvalidTreeHeight
	}

	slog.Debug("btree.SearchEqual.start", "key", key, "root", t.Root, "height", t.Height)

	pageID := t.Root
	level := t.Height

	for level > 1 {
		g, err := t.bp.FetchPage(int32(pageID))
		if err != nil {
			return nil, err
		}
		node := &InternalNode{Page: g.Page()}
		idx, child, err := node.findChildIndex(key)
		_ = idx
		g.Release(false)
		if err != nil {
			return nil, err
		}
		slog.Debug("btree.SearchEqual.descend", "level", level, "pageID", pageID, "child", child)
		pageID = child
		level--
	}

	g, err := t.bp.FetchPage(int32(pageID))
	if err != nil {
		return nil, err
	}
	leaf := &LeafNode{Page: g.Page()}
	defer g.Release(false)

	rids, err := leaf.FindEqual(key)
	if err != nil {
		return nil, err
	}
	slog.Debug("btree.SearchEqual.done", "key", key, "numRIDs", len(rids))
	return rids, nil
}

// RangeScan returns all RowIDs with minKey <= key <= maxKey.
// This is a simple full-tree range scan: it traverses all leaves.
func (t *Tree) RangeScan(minKey, maxKey KeyType) ([]record.RowID, error) {
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}

	var out []record.RowID
	if t.Height < 1 {
		return out, ErrInvalidTreeHeight
	}
	slog.Debug("btree.RangeScan.start", "minKey", minKey, "maxKey", maxKey, "root", t.Root, "height", t.Height)
	if err := t.rangeScanAt(t.Root, t.Height, minKey, maxKey, &out); err != nil {
		return nil, err
	}
	slog.Debug("btree.RangeScan.done", "minKey", minKey, "maxKey", maxKey, "numRIDs", len(out))
	return out, nil
}

// ---- Recursive helpers ----

// insertAt inserts (key, rid) into the subtree rooted at pageID with the
// given level (1 = leaf, >1 = internal).
//
// Returns:
//   - newPageID: page id of the (possibly rebuilt) root of this subtree.
//   - didSplit: whether this subtree was split into left/right siblings.
//   - rightMinKey: if didSplit, the min key of the right sibling subtree.
//   - rightPageID: if didSplit, the page id of the right sibling.
func (t *Tree) insertAt(pageID uint32, level int, key KeyType, rid record.RowID) (newPageID uint32, didSplit bool, rightMinKey KeyType, rightPageID uint32, err error) {
	if level < 1 {
		return 0, false, 0, 0, ErrInvalidTreeHeight
	}
	if level == 1 {
		return t.insertIntoLeaf(pageID, key, rid)
	}
	return t.insertIntoInternal(pageID, level, key, rid)
}

// insertIntoLeaf handles insertion at leaf level (level == 1).
func (t *Tree) insertIntoLeaf(pageID uint32, key KeyType, rid record.RowID) (newPageID uint32, didSplit bool, rightMinKey KeyType, rightPageID uint32, err error) {
	g, err := t.bp.FetchPage(int32(pageID))
	if err != nil {
		return 0, false, 0, 0, err
	}
	dirty := false
	defer func() { g.Release(dirty) }()

	leaf := &LeafNode{Page: g.Page()}

	entries, err := leaf.readEntries()
	if err != nil {
		return 0, false, 0, 0, err
	}
	for _, e := range entries {
		if e.key == key {
			return 0, false, 0, 0, ErrDuplicateKey
		}
	}

	entries = append(entries, leafEntry{key: key, rid: rid})
	sortLeafEntries(entries)

	maxPerPage := maxLeafEntriesPerPage()
	if maxPerPage <= 0 {
		return 0, false, 0, 0, fmt.Errorf("btree: leaf page capacity is zero")
	}

	total := len(entries)

	// Case 1: fits -> rebuild in-place
	if total <= maxPerPage {
		if err := leaf.rebuildSorted(entries); err != nil {
			return 0, false, 0, 0, err
		}
		dirty = true
		return pageID, false, 0, 0, nil
	}

	// Case 2: split into 2 pages
	if total < 2 {
		return 0, false, 0, 0, ErrCannotSplitLeafGreaterThanTwo
	}

	mid := total / 2
	leftEnts := entries[:mid]
	rightEnts := entries[mid:]

	oldNext := leaf.NextPageID()
	parentID := leaf.ParentPageID()

	if err := leaf.rebuildSorted(leftEnts); err != nil {
		return 0, false, 0, 0, err
	}
	dirty = true

	rightID, rightGuard, err := t.allocPage()
	if err != nil {
		return 0, false, 0, 0, err
	}
	rightDirty := false
	defer func() { rightGuard.Release(rightDirty) }()

	rightLeaf := &LeafNode{Page: rightGuard.Page()}
	rightLeaf.initHeader(maxPerPage, parentID)
	rightLeaf.SetNextPageID(oldNext)
	if err := rightLeaf.rebuildSorted(rightEnts); err != nil {
		return 0, false, 0, 0, err
	}
	rightDirty = true

	leaf.SetNextPageID(int32(rightID))

	rightMin := rightEnts[0].key
	return pageID, true, rightMin, rightID, nil
}

// insertIntoInternal handles insertion into an internal node at the given level.
// level > 1.
func (t *Tree) insertIntoInternal(pageID uint32, level int, key KeyType, rid record.RowID) (newPageID uint32, didSplit bool, rightMinKey KeyType, rightPageID uint32, err error) {
	if level <= 1 {
		return 0, false, 0, 0, ErrInvalidTreeHeight
	}

	g, err := t.bp.FetchPage(int32(pageID))
	if err != nil {
		return 0, false, 0, 0, err
	}
	dirty := false
	defer func() { g.Release(dirty) }()

	node := &InternalNode{Page: g.Page()}

	idx, childID, err := node.findChildIndex(key)
	if err != nil {
		return 0, false, 0, 0, err
	}

	slog.Debug("btree.insertIntoInternal.descend", "key", key, "pageID", pageID, "level", level, "childIndex", idx, "childID", childID)

	childNewID, childSplit, childRightMin, childRightID, err := t.insertAt(childID, level-1, key, rid)
	if err != nil {
		return 0, false, 0, 0, err
	}

	entries, err := node.readEntries()
	if err != nil {
		return 0, false, 0, 0, err
	}

	if idx < 0 || idx >= len(entries) {
		return 0, false, 0, 0, ErrInternalChildIdxOutOfRange
	}
	entries[idx].child = childNewID

	if childSplit {
		// childRightID is a brand-new sibling page directly under this node.
		if err := t.setChildParent(childRightID, pageID); err != nil {
			return 0, false, 0, 0, err
		}
		entries = append(entries, internalEntry{key: childRightMin, child: childRightID})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].key != entries[j].key {
			return entries[i].key < entries[j].key
		}
		return entries[i].child < entries[j].child
	})

	maxPerPage := maxInternalEntriesPerPage()
	if maxPerPage <= 0 {
		return 0, false, 0, 0, ErrInternalNodePageHasZeroCap
	}

	total := len(entries)

	// Case 1: fits -> rebuild IN-PLACE on the SAME page.
	if total <= maxPerPage {
		if err := node.rebuildSorted(entries); err != nil {
			return 0, false, 0, 0, err
		}
		dirty = true
		return pageID, false, 0, 0, nil
	}

	// Case 2: split -> reuse current page as LEFT, allocate RIGHT only.
	leftCount := min(total/2, maxPerPage)
	rightCount := total - leftCount
	if rightCount > maxPerPage {
		return 0, false, 0, 0, ErrSplitRequiredMoreThanTwoPages
	}

	leftEnts := entries[:leftCount]
	rightEnts := entries[leftCount:]
	rightMin := rightEnts[0].key

	parentID := node.ParentPageID()

	if err := node.rebuildSorted(leftEnts); err != nil {
		return 0, false, 0, 0, err
	}
	dirty = true

	rightID, rightGuard, err := t.allocPage()
	if err != nil {
		return 0, false, 0, 0, err
	}
	rightDirty := false
	defer func() { rightGuard.Release(rightDirty) }()

	rightNode := &InternalNode{Page: rightGuard.Page()}
	rightNode.initHeader(maxPerPage, parentID)
	if err := rightNode.rebuildSorted(rightEnts); err != nil {
		return 0, false, 0, 0, err
	}
	rightDirty = true

	// Every child that moved to the right half now has a new parent page.
	for _, e := range rightEnts {
		if err := t.setChildParent(e.child, rightID); err != nil {
			return 0, false, 0, 0, err
		}
	}

	return pageID, true, rightMin, rightID, nil
}

// rangeScanAt recursively traverses the subtree rooted at (pageID, level)
// and appends all RowIDs where minKey <= key <= maxKey.
func (t *Tree) rangeScanAt(pageID uint32, level int, minKey, maxKey KeyType, out *[]record.RowID) error {
	if level < 1 {
		return ErrInvalidTreeHeight
	}

	if level == 1 {
		g, err := t.bp.FetchPage(int32(pageID))
		if err != nil {
			return err
		}
		leaf := &LeafNode{Page: g.Page()}
		rids, err := leaf.Range(minKey, maxKey)
		g.Release(false)
		if err != nil {
			return err
		}
		slog.Debug("btree.rangeScanAt.leaf", "pageID", pageID, "numRIDs", len(rids))
		*out = append(*out, rids...)
		return nil
	}

	g, err := t.bp.FetchPage(int32(pageID))
	if err != nil {
		return err
	}
	node := &InternalNode{Page: g.Page()}
	num := node.NumKeys()

	slog.Debug("btree.rangeScanAt.internal", "pageID", pageID, "level", level, "numChildren", num)

	for i := 0; i < num; i++ {
		_, child, err := node.EntryAt(i)
		if err != nil {
			g.Release(false)
			return err
		}
		if err := t.rangeScanAt(child, level-1, minKey, maxKey, out); err != nil {
			g.Release(false)
			return err
		}
	}

	g.Release(false)
	return nil
}

// findMinKeyInSubtree finds the minimum key in the subtree rooted at pageID
// with the given level.
func (t *Tree) findMinKeyInSubtree(pageID uint32, level int) (KeyType, error) {
	if level < 1 {
		return 0, ErrInvalidTreeHeight
	}

	if level == 1 {
		g, err := t.bp.FetchPage(int32(pageID))
		if err != nil {
			return 0, err
		}
		leaf := &LeafNode{Page: g.Page()}
		defer g.Release(false)

		entries, err := leaf.entriesSorted()
		if err != nil {
			return 0, err
		}
		if len(entries) == 0 {
			return 0, ErrLeafHasNoKey
		}
		return entries[0].key, nil
	}

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
	return t.findMinKeyInSubtree(child, level-1)
}

// Close flushes every dirty page of the shared buffer pool and marks the
// Tree closed: Insert, SearchEqual, RangeScan and Drop then return
// ErrTreeClosed. Calling Close again is a no-op.
func (t *Tree) Close() error {
	if t == nil {
		return nil
	}
	if t.closed.Swap(true) {
		return nil
	}
	return t.bp.FlushAllPages()
}

func (t *Tree) ensureOpen() error {
	if t == nil || t.closed.Load() {
		return ErrTreeClosed
	}
	return nil
}
