// Package tree holds scan results as an arena of nodes addressed by ID.
//
// Parent and child links are indices into a single growable slice, so nodes
// can be appended from several goroutines without sharing pointers. The tree
// only grows; the whole arena is discarded together.
package tree

import (
	"fmt"
	"iter"
	"path/filepath"
	"sync"

	"github.com/michaelscutari/diskscan/internal/entry"
)

// ID identifies a node within its Tree.
type ID uint32

// None is the parent of the root and the end of a sibling chain.
const None ID = ^ID(0)

// maxNodes caps the arena so that every ID stays below None. A tree holds
// at most 2^32-1 nodes; growing past that panics.
var maxNodes = uint64(None)

// Node is a copy of one tree record.
type Node struct {
	Name     string
	Size     uint64
	Depth    uint32
	Kind     entry.Kind
	Parent   ID
	Children uint32

	firstChild  ID
	nextSibling ID
}

// IsDir reports whether the node is a directory.
func (n Node) IsDir() bool {
	return n.Kind == entry.KindDir
}

// Tree is an arena-backed filesystem tree.
// All methods are safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	nodes []Node
}

// New creates a tree whose root directory is rootPath.
func New(rootPath string) *Tree {
	t := &Tree{nodes: make([]Node, 0, 1024)}
	t.nodes = append(t.nodes, Node{
		Name:        rootPath,
		Kind:        entry.KindDir,
		Parent:      None,
		firstChild:  None,
		nextSibling: None,
	})
	return t
}

// Root returns the root node ID.
func (t *Tree) Root() ID {
	return 0
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// AddChild appends a single child under parent. Its depth is the parent's
// depth plus one.
func (t *Tree) AddChild(parent ID, e entry.Entry) ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reserveLocked(1)
	return t.addLocked(parent, e)
}

// AddChildren appends es under parent with one lock acquisition. The new
// nodes get the contiguous IDs first, first+1, ..., first+len(es)-1.
// It returns None if es is empty.
func (t *Tree) AddChildren(parent ID, es []entry.Entry) (first ID) {
	if len(es) == 0 {
		return None
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reserveLocked(len(es))
	first = ID(len(t.nodes))
	for _, e := range es {
		t.addLocked(parent, e)
	}
	return first
}

// reserveLocked panics if n more nodes would exhaust the ID space. Nothing
// is inserted in that case.
func (t *Tree) reserveLocked(n int) {
	if uint64(len(t.nodes))+uint64(n) > maxNodes {
		panic(fmt.Sprintf("tree: more than %d nodes", maxNodes))
	}
}

func (t *Tree) addLocked(parent ID, e entry.Entry) ID {
	p := &t.nodes[parent]
	id := ID(len(t.nodes))
	size := e.Size
	if e.Kind == entry.KindDir {
		size = 0
	}
	kind := e.Kind
	if kind == entry.KindOther {
		kind = entry.KindFile
	}
	n := Node{
		Name:        e.Name,
		Size:        size,
		Depth:       p.Depth + 1,
		Kind:        kind,
		Parent:      parent,
		firstChild:  None,
		nextSibling: p.firstChild,
	}
	p.firstChild = id
	p.Children++
	// p is invalid after append may reallocate.
	t.nodes = append(t.nodes, n)
	return id
}

// Node returns a copy of the node with the given ID.
func (t *Tree) Node(id ID) Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[id]
}

// Parent returns the parent of id, or false for the root.
func (t *Tree) Parent(id ID) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := t.nodes[id].Parent
	return p, p != None
}

// SetSize overwrites the size of a node.
func (t *Tree) SetSize(id ID, size uint64) {
	t.mu.Lock()
	t.nodes[id].Size = size
	t.mu.Unlock()
}

// Children yields the children of id in unspecified order.
func (t *Tree) Children(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for _, c := range t.childIDs(id, nil) {
			if !yield(c) {
				return
			}
		}
	}
}

// childIDs appends the children of id to buf.
func (t *Tree) childIDs(id ID, buf []ID) []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for c := t.nodes[id].firstChild; c != None; c = t.nodes[c].nextSibling {
		buf = append(buf, c)
	}
	return buf
}

// Path reconstructs the full path of id by walking its ancestors.
func (t *Tree) Path(id ID) string {
	t.mu.RLock()
	var parts []string
	for cur := id; cur != None; cur = t.nodes[cur].Parent {
		parts = append(parts, t.nodes[cur].Name)
	}
	t.mu.RUnlock()

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return filepath.Join(parts...)
}

// RelPath returns the path of id relative to the root, "." for the root.
func (t *Tree) RelPath(id ID) string {
	if id == t.Root() {
		return "."
	}
	t.mu.RLock()
	var parts []string
	for cur := id; cur != t.Root(); cur = t.nodes[cur].Parent {
		parts = append(parts, t.nodes[cur].Name)
	}
	t.mu.RUnlock()

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return filepath.ToSlash(filepath.Join(parts...))
}
