// Package rollup computes recursive directory sizes over a finished tree.
package rollup

import (
	"github.com/michaelscutari/diskscan/internal/tree"
)

// Totals summarizes a tree after aggregation.
type Totals struct {
	Bytes uint64
	Files uint64
	// Dirs counts directories below the root.
	Dirs uint64
}

// frame is an open directory waiting on its children.
type frame struct {
	id        tree.ID
	remaining uint32
	total     uint64
}

// Aggregate sets every directory's size to the sum of its children's sizes
// and returns the totals for the whole tree.
//
// The pass is a single depth-first walk with an explicit stack, so arbitrarily
// deep trees are fine. Directory sizes are overwritten, never incremented:
// calling Aggregate again on the same tree yields the same sizes.
// The tree must not be mutated concurrently.
func Aggregate(t *tree.Tree) Totals {
	var (
		totals Totals
		open   []frame
	)

	// complete folds a finished child size into the innermost open directory
	// and closes every directory that this resolves.
	complete := func(size uint64) {
		for len(open) > 0 {
			top := &open[len(open)-1]
			top.total += size
			top.remaining--
			if top.remaining > 0 {
				return
			}
			t.SetSize(top.id, top.total)
			size = top.total
			open = open[:len(open)-1]
		}
	}

	// Pre-order guarantees that a node's subtree is fully visited before any
	// of its later siblings, so the innermost open frame is always the parent.
	for id := range t.DepthFirst(t.Root()) {
		n := t.Node(id)
		if n.IsDir() {
			if id != t.Root() {
				totals.Dirs++
			}
			if n.Children > 0 {
				open = append(open, frame{id: id, remaining: n.Children})
				continue
			}
			t.SetSize(id, 0)
			complete(0)
			continue
		}
		totals.Files++
		totals.Bytes += n.Size
		complete(n.Size)
	}
	return totals
}
