// Package report renders scan results.
package report

import (
	"github.com/google/btree"

	"github.com/michaelscutari/diskscan/internal/entry"
	"github.com/michaelscutari/diskscan/internal/tree"
)

// Item is one ranked entry.
type Item struct {
	ID   tree.ID    `json:"-"`
	Path string     `json:"path"`
	Size uint64     `json:"size"`
	Kind entry.Kind `json:"kind"`
}

func itemLess(a, b Item) bool {
	if a.Size != b.Size {
		return a.Size < b.Size
	}
	// Equal sizes rank by ID so distinct nodes never collide.
	return a.ID > b.ID
}

// Largest returns the n largest nodes of the given kind, largest first. The
// root is never included. Paths are relative to the root.
func Largest(t *tree.Tree, n int, kind entry.Kind) []Item {
	if n <= 0 {
		return nil
	}
	top := btree.NewG[Item](16, itemLess)
	for id := range t.DepthFirst(t.Root()) {
		if id == t.Root() {
			continue
		}
		node := t.Node(id)
		if node.Kind != kind {
			continue
		}
		it := Item{ID: id, Size: node.Size, Kind: node.Kind}
		if top.Len() == n {
			if smallest, _ := top.Min(); !itemLess(smallest, it) {
				continue
			}
			top.DeleteMin()
		}
		top.ReplaceOrInsert(it)
	}

	out := make([]Item, 0, top.Len())
	top.Descend(func(it Item) bool {
		it.Path = t.RelPath(it.ID)
		out = append(out, it)
		return true
	})
	return out
}
