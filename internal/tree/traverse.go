package tree

import (
	"encoding/binary"
	"iter"

	"github.com/cespare/xxhash/v2"

	"github.com/michaelscutari/diskscan/internal/entry"
)

// DepthFirst yields the subtree rooted at from in pre-order: every node is
// followed by the complete subtrees of its children.
func (t *Tree) DepthFirst(from ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		stack := []ID{from}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(id) {
				return
			}
			stack = t.childIDs(id, stack)
		}
	}
}

// BreadthFirst yields the subtree rooted at from level by level.
func (t *Tree) BreadthFirst(from ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		queue := []ID{from}
		for head := 0; head < len(queue); head++ {
			id := queue[head]
			if !yield(id) {
				return
			}
			queue = t.childIDs(id, queue)
		}
	}
}

// Record is a flattened view of one node.
type Record struct {
	Path  string     `json:"path"`
	Size  uint64     `json:"size"`
	Depth uint32     `json:"depth"`
	Kind  entry.Kind `json:"kind"`
}

// Records flattens the tree in depth-first order. Paths are relative to the
// root.
func (t *Tree) Records() []Record {
	out := make([]Record, 0, t.Len())
	for id := range t.DepthFirst(t.Root()) {
		n := t.Node(id)
		out = append(out, Record{
			Path:  t.RelPath(id),
			Size:  n.Size,
			Depth: n.Depth,
			Kind:  n.Kind,
		})
	}
	return out
}

// Fingerprint digests the multiset of (relative path, size, depth) triples.
// Per-node hashes are summed, so the result does not depend on child order.
func (t *Tree) Fingerprint() uint64 {
	var sum uint64
	var buf [12]byte
	h := xxhash.New()
	for _, r := range t.Records() {
		h.Reset()
		_, _ = h.WriteString(r.Path)
		binary.LittleEndian.PutUint64(buf[:8], r.Size)
		binary.LittleEndian.PutUint32(buf[8:], r.Depth)
		_, _ = h.Write(buf[:])
		sum += h.Sum64()
	}
	return sum
}
