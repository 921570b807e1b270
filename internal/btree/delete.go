package btree

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/minisql-engine/core/internal/storage"
)

// ErrKeyNotFound is returned by Tree.Delete when no entry with the given key
// exists.
var ErrKeyNotFound = errors.New("btree: key not found")

// Delete removes the first entry with the given key, rebalancing the tree
// via redistribute/coalesce as needed, shrinking the root when it is left
// with a single child. Returns ErrKeyNotFound if no entry matches key.
func (t *Tree) Delete(key KeyType) error {
	if err := t.ensureOpen(); err != nil {
		return err
	}
	if t.Height < 1 {
		return ErrInvalidTreeHeight
	}

	slog.Debug("btree.Delete.start", "key", key, "root", t.Root, "height", t.Height)

	found, _, _, err := t.deleteAt(t.Root, t.Height, key)
	if err != nil {
		return err
	}
	if !found {
		return ErrKeyNotFound
	}

	for t.Height > 1 {
		g, err := t.bp.FetchPage(int32(t.Root))
		if err != nil {
			return err
		}
		root := &InternalNode{Page: g.Page()}
		num := root.NumKeys()
		if num != 1 {
			g.Release(false)
			break
		}
		_, childID, err := root.EntryAt(0)
		g.Release(false)
		if err != nil {
			return err
		}

		oldRoot := t.Root
		t.Root = childID
		t.Height--
		invalid := storage.InvalidPageID
		if err := t.setChildParent(childID, uint32(invalid)); err != nil {
			return err
		}
		if err := t.bp.DeletePage(int32(oldRoot)); err != nil {
			return err
		}
		slog.Debug("btree.Delete.root_shrink", "newRoot", t.Root, "newHeight", t.Height)
	}

	t.syncMeta()
	slog.Debug("btree.Delete.done", "key", key, "root", t.Root, "height", t.Height)
	return nil
}

// deleteAt removes the first entry matching key from the subtree rooted at
// pageID (level 1 = leaf). It reports whether an entry was found, the
// subtree's minimum key after removal (callers use it to patch their own
// separator for this child), and whether the subtree is now underflowed.
func (t *Tree) deleteAt(pageID uint32, level int, key KeyType) (found bool, newMinKey KeyType, underflow bool, err error) {
	if level < 1 {
		return false, 0, false, ErrInvalidTreeHeight
	}
	if level == 1 {
		return t.deleteFromLeaf(pageID, key)
	}
	return t.deleteFromInternal(pageID, level, key)
}

func (t *Tree) deleteFromLeaf(pageID uint32, key KeyType) (found bool, newMinKey KeyType, underflow bool, err error) {
	g, err := t.bp.FetchPage(int32(pageID))
	if err != nil {
		return false, 0, false, err
	}
	dirty := false
	defer func() { g.Release(dirty) }()

	leaf := &LeafNode{Page: g.Page()}
	entries, err := leaf.entriesSorted()
	if err != nil {
		return false, 0, false, err
	}

	idx := -1
	for i, e := range entries {
		if e.key == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		var min KeyType
		if len(entries) > 0 {
			min = entries[0].key
		}
		return false, min, false, nil
	}

	entries = append(entries[:idx], entries[idx+1:]...)
	if err := leaf.rebuildSorted(entries); err != nil {
		return false, 0, false, err
	}
	dirty = true

	isRoot := pageID == t.Root
	underflow = !isRoot && len(entries) < ceilDiv(leaf.MaxSize(), 2)

	var min KeyType
	if len(entries) > 0 {
		min = entries[0].key
	}

	slog.Debug("btree.deleteFromLeaf", "pageID", pageID, "key", key, "remaining", len(entries), "underflow", underflow)
	return true, min, underflow, nil
}

func (t *Tree) deleteFromInternal(pageID uint32, level int, key KeyType) (found bool, newMinKey KeyType, underflow bool, err error) {
	g, err := t.bp.FetchPage(int32(pageID))
	if err != nil {
		return false, 0, false, err
	}
	dirty := false
	defer func() { g.Release(dirty) }()

	node := &InternalNode{Page: g.Page()}

	idx, childID, err := node.findChildIndex(key)
	if err != nil {
		return false, 0, false, err
	}

	childFound, childMinKey, childUnderflow, err := t.deleteAt(childID, level-1, key)
	if err != nil {
		return false, 0, false, err
	}

	entries, err := node.readEntries()
	if err != nil {
		return false, 0, false, err
	}
	if idx < 0 || idx >= len(entries) {
		return false, 0, false, ErrInternalChildIdxOutOfRange
	}

	if !childFound {
		return false, entries[0].key, false, nil
	}

	entries[idx].key = childMinKey

	if childUnderflow {
		entries, err = t.fixUnderflowedChild(entries, idx, level-1)
		if err != nil {
			return false, 0, false, err
		}
	}

	if err := node.rebuildSorted(entries); err != nil {
		return false, 0, false, err
	}
	dirty = true

	isRoot := pageID == t.Root
	underflow = !isRoot && len(entries) < ceilDiv(node.MaxSize(), 2)

	slog.Debug("btree.deleteFromInternal", "pageID", pageID, "key", key, "remaining", len(entries), "underflow", underflow)
	return true, entries[0].key, underflow, nil
}

// fixUnderflowedChild rebalances entries[idx]'s child against a sibling
// chosen from entries: the left neighbor, unless idx is already 0, in which
// case the right neighbor. childLevel is the level of the underflowed
// child (1 = leaf). Returns the parent's entries slice with the sibling's
// separator updated (redistribute) or the sibling's entry removed
// (coalesce).
func (t *Tree) fixUnderflowedChild(entries []internalEntry, idx int, childLevel int) ([]internalEntry, error) {
	siblingIdx := idx - 1
	if idx == 0 {
		siblingIdx = idx + 1
	}
	if siblingIdx < 0 || siblingIdx >= len(entries) {
		// Only child in this node; nothing to borrow from or merge into.
		// The caller (or Delete's root-shrink loop) handles a node left
		// with a single entry.
		return entries, nil
	}

	leftIdx, rightIdx := idx, siblingIdx
	if rightIdx < leftIdx {
		leftIdx, rightIdx = rightIdx, leftIdx
	}

	if childLevel == 1 {
		return t.fixUnderflowedLeafChild(entries, leftIdx, rightIdx, idx)
	}
	return t.fixUnderflowedInternalChild(entries, leftIdx, rightIdx, idx)
}

func (t *Tree) fixUnderflowedLeafChild(entries []internalEntry, leftIdx, rightIdx, underflowedIdx int) ([]internalEntry, error) {
	leftID, rightID := entries[leftIdx].child, entries[rightIdx].child

	lg, err := t.bp.FetchPage(int32(leftID))
	if err != nil {
		return nil, err
	}
	leftLeaf := &LeafNode{Page: lg.Page()}

	rg, err := t.bp.FetchPage(int32(rightID))
	if err != nil {
		lg.Release(false)
		return nil, err
	}
	rightLeaf := &LeafNode{Page: rg.Page()}

	leftEntries, err := leftLeaf.entriesSorted()
	if err != nil {
		lg.Release(false)
		rg.Release(false)
		return nil, err
	}
	rightEntries, err := rightLeaf.entriesSorted()
	if err != nil {
		lg.Release(false)
		rg.Release(false)
		return nil, err
	}

	maxSize := leftLeaf.MaxSize()

	if len(leftEntries)+len(rightEntries) > maxSize {
		if underflowedIdx == rightIdx {
			moved := leftEntries[len(leftEntries)-1]
			leftEntries = leftEntries[:len(leftEntries)-1]
			rightEntries = append([]leafEntry{moved}, rightEntries...)
		} else {
			moved := rightEntries[0]
			rightEntries = rightEntries[1:]
			leftEntries = append(leftEntries, moved)
		}
		if err := leftLeaf.rebuildSorted(leftEntries); err != nil {
			lg.Release(false)
			rg.Release(false)
			return nil, err
		}
		if err := rightLeaf.rebuildSorted(rightEntries); err != nil {
			lg.Release(true)
			rg.Release(false)
			return nil, err
		}
		lg.Release(true)
		rg.Release(true)

		entries[leftIdx].key = leftEntries[0].key
		entries[rightIdx].key = rightEntries[0].key
		slog.Debug("btree.delete.redistribute.leaf", "left", leftID, "right", rightID)
		return entries, nil
	}

	merged := append(leftEntries, rightEntries...)
	sortLeafEntries(merged)
	nextID := rightLeaf.NextPageID()
	if err := leftLeaf.rebuildSorted(merged); err != nil {
		lg.Release(false)
		rg.Release(false)
		return nil, err
	}
	leftLeaf.SetNextPageID(nextID)
	lg.Release(true)
	rg.Release(false)

	if err := t.bp.DeletePage(int32(rightID)); err != nil {
		return nil, err
	}

	entries[leftIdx].key = merged[0].key
	entries = append(entries[:rightIdx], entries[rightIdx+1:]...)
	slog.Debug("btree.delete.coalesce.leaf", "survivor", leftID, "removed", rightID)
	return entries, nil
}

func (t *Tree) fixUnderflowedInternalChild(entries []internalEntry, leftIdx, rightIdx, underflowedIdx int) ([]internalEntry, error) {
	leftID, rightID := entries[leftIdx].child, entries[rightIdx].child

	lg, err := t.bp.FetchPage(int32(leftID))
	if err != nil {
		return nil, err
	}
	leftNode := &InternalNode{Page: lg.Page()}

	rg, err := t.bp.FetchPage(int32(rightID))
	if err != nil {
		lg.Release(false)
		return nil, err
	}
	rightNode := &InternalNode{Page: rg.Page()}

	leftEntries, err := leftNode.readEntries()
	if err != nil {
		lg.Release(false)
		rg.Release(false)
		return nil, err
	}
	rightEntries, err := rightNode.readEntries()
	if err != nil {
		lg.Release(false)
		rg.Release(false)
		return nil, err
	}

	maxSize := leftNode.MaxSize()

	if len(leftEntries)+len(rightEntries) > maxSize {
		var moved internalEntry
		if underflowedIdx == rightIdx {
			moved = leftEntries[len(leftEntries)-1]
			leftEntries = leftEntries[:len(leftEntries)-1]
			rightEntries = append([]internalEntry{moved}, rightEntries...)
			if err := t.setChildParent(moved.child, rightID); err != nil {
				lg.Release(false)
				rg.Release(false)
				return nil, err
			}
		} else {
			moved = rightEntries[0]
			rightEntries = rightEntries[1:]
			leftEntries = append(leftEntries, moved)
			if err := t.setChildParent(moved.child, leftID); err != nil {
				lg.Release(false)
				rg.Release(false)
				return nil, err
			}
		}
		if err := leftNode.rebuildSorted(leftEntries); err != nil {
			lg.Release(false)
			rg.Release(false)
			return nil, err
		}
		if err := rightNode.rebuildSorted(rightEntries); err != nil {
			lg.Release(true)
			rg.Release(false)
			return nil, err
		}
		lg.Release(true)
		rg.Release(true)

		entries[leftIdx].key = leftEntries[0].key
		entries[rightIdx].key = rightEntries[0].key
		slog.Debug("btree.delete.redistribute.internal", "left", leftID, "right", rightID)
		return entries, nil
	}

	merged := append(leftEntries, rightEntries...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].key != merged[j].key {
			return merged[i].key < merged[j].key
		}
		return merged[i].child < merged[j].child
	})
	if err := leftNode.rebuildSorted(merged); err != nil {
		lg.Release(false)
		rg.Release(false)
		return nil, err
	}
	lg.Release(true)
	rg.Release(false)

	for _, e := range rightEntries {
		if err := t.setChildParent(e.child, leftID); err != nil {
			return nil, err
		}
	}

	if err := t.bp.DeletePage(int32(rightID)); err != nil {
		return nil, err
	}

	entries[leftIdx].key = merged[0].key
	entries = append(entries[:rightIdx], entries[rightIdx+1:]...)
	slog.Debug("btree.delete.coalesce.internal", "survivor", leftID, "removed", rightID)
	return entries, nil
}
