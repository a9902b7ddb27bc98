package entry

import (
	"os"
)

// Kind represents the type of filesystem entry.
type Kind uint8

const (
	KindFile    Kind = 0
	KindDir     Kind = 1
	KindSymlink Kind = 2
	KindOther   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// KindFromMode derives the Kind from an os.FileMode.
func KindFromMode(mode os.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&os.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}

// Traversable reports whether entries of this kind become tree nodes.
// Symlinks are never followed or materialized.
func (k Kind) Traversable() bool {
	return k != KindSymlink
}

// Entry is one immediate child reported by a directory enumerator.
type Entry struct {
	Name string
	Kind Kind
	// Size is the apparent (or allocated, see fsenum.Config.DiskUsage) size
	// in bytes. Only meaningful for non-directories.
	Size uint64
}

// IsDir reports whether the entry is a directory to be expanded.
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}
