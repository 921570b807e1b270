package btree

// Drop deallocates every page belonging to the tree and removes it from the
// shared index roots registry. The Tree must not be used afterward.
func (t *Tree) Drop() error {
	if err := t.ensureOpen(); err != nil {
		return err
	}

	if err := t.dropSubtree(t.Root, t.Height); err != nil {
		return err
	}
	if err := t.forgetMeta(); err != nil {
		return err
	}
	t.closed.Store(true)
	return nil
}

func (t *Tree) dropSubtree(pageID uint32, level int) error {
	if level > 1 {
		g, err := t.bp.FetchPage(int32(pageID))
		if err != nil {
			return err
		}
		node := &InternalNode{Page: g.Page()}
		children, err := node.readEntries()
		g.Release(false)
		if err != nil {
			return err
		}
		for _, e := range children {
			if err := t.dropSubtree(e.child, level-1); err != nil {
				return err
			}
		}
	}
	return t.bp.DeletePage(int32(pageID))
}
