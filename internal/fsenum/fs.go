package fsenum

import (
	"io/fs"
	"path"
	"path/filepath"

	"github.com/michaelscutari/diskscan/internal/entry"
)

// FS enumerates an fs.FS. Paths handed to it are the tree's paths; they are
// converted to slash form and cleaned, so a root of "." names the FS root.
type FS struct {
	FS fs.FS
}

func (e FS) name(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// Stat classifies the root of a scan.
func (e FS) Stat(p string) (entry.Entry, error) {
	info, err := fs.Stat(e.FS, e.name(p))
	if err != nil {
		return entry.Entry{}, err
	}
	return entry.Entry{
		Name: info.Name(),
		Kind: entry.KindFromMode(info.Mode()),
		Size: sizeOf(info),
	}, nil
}

// Enumerate lists dir without following symlinks.
func (e FS) Enumerate(dir string) ([]entry.Entry, error) {
	dirEntries, err := fs.ReadDir(e.FS, e.name(dir))
	if err != nil && len(dirEntries) == 0 {
		return nil, err
	}

	out := make([]entry.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		kind := entry.KindFromMode(de.Type())
		ent := entry.Entry{Name: de.Name(), Kind: kind}
		if kind != entry.KindDir && kind != entry.KindSymlink {
			info, err := de.Info()
			if err != nil {
				continue
			}
			ent.Size = sizeOf(info)
		}
		out = append(out, ent)
	}
	return out, nil
}

func sizeOf(info fs.FileInfo) uint64 {
	if info.IsDir() || info.Size() < 0 {
		return 0
	}
	return uint64(info.Size())
}

var _ Enumerator = FS{}
