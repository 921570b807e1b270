package btree

import (
	"log/slog"

	"github.com/minisql-engine/core/internal/storage"
)

// loadRoot reads this tree's (rootPageID, height) from the shared
// IndexRootsPage registry. ok is false if indexID has never been registered.
func (t *Tree) loadRoot() (rootPageID int32, height int, ok bool, err error) {
	g, err := t.bp.FetchPage(storage.IndexRootsPageID)
	if err != nil {
		return 0, 0, false, err
	}
	defer g.Release(false)

	root, h, found := storage.WrapIndexRootsPage(g.Raw()).GetRoot(t.indexID)
	return root, h, found, nil
}

// saveMeta registers this tree's current root page id and height in the
// shared IndexRootsPage, so OpenTree can find it again after restart.
func (t *Tree) saveMeta() error {
	g, err := t.bp.FetchPage(storage.IndexRootsPageID)
	if err != nil {
		return err
	}
	defer g.Release(true)

	if err := storage.WrapIndexRootsPage(g.Raw()).SetRoot(t.indexID, int32(t.Root), t.Height); err != nil {
		return err
	}
	slog.Debug("btree.meta.saved", "indexID", t.indexID, "root", t.Root, "height", t.Height)
	return nil
}

// forgetMeta removes this tree's entry from the shared registry.
func (t *Tree) forgetMeta() error {
	g, err := t.bp.FetchPage(storage.IndexRootsPageID)
	if err != nil {
		return err
	}
	defer g.Release(true)
	storage.WrapIndexRootsPage(g.Raw()).RemoveRoot(t.indexID)
	return nil
}
