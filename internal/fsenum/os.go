package fsenum

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/michaelscutari/diskscan/internal/entry"
)

// Config tunes the OS enumerator.
type Config struct {
	// Xdev skips entries that live on a different device than the root.
	Xdev bool

	// Exclude, if set, drops any entry whose full path it matches.
	Exclude func(path string) bool

	// DiskUsage reports allocated blocks instead of apparent file size.
	DiskUsage bool
}

// OS enumerates the host filesystem with os.ReadDir and os.Lstat.
type OS struct {
	cfg     Config
	rootDev uint64
	aliases map[string]struct{}
}

// NewOS creates an enumerator for a scan rooted at root.
func NewOS(root string, cfg Config) (*OS, error) {
	e := &OS{cfg: cfg, aliases: firmlinks()}
	if cfg.Xdev {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat root: %w", err)
		}
		e.rootDev = deviceID(info)
	}
	return e, nil
}

// Stat classifies path, following a symlink at the root itself.
func (e *OS) Stat(path string) (entry.Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entry.Entry{}, err
	}
	return entry.Entry{
		Name: info.Name(),
		Kind: entry.KindFromMode(info.Mode()),
		Size: e.size(info),
	}, nil
}

// Enumerate lists dir. Children are Lstat'ed so symlinks are never followed.
func (e *OS) Enumerate(dir string) ([]entry.Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil && len(dirEntries) == 0 {
		return nil, err
	}

	out := make([]entry.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		childPath := filepath.Join(dir, de.Name())

		if e.Excluded(childPath) {
			continue
		}

		info, err := os.Lstat(childPath)
		if err != nil {
			// Vanished or unreadable; skip it.
			continue
		}
		if ent, ok := e.Classify(childPath, info); ok {
			out = append(out, ent)
		}
	}
	return out, nil
}

// Classify applies the enumerator's policy to an entry that was Lstat'ed at
// path. It reports false for entries on another device when Xdev is set.
// Exclusion is the caller's job, since it should happen before the Lstat.
func (e *OS) Classify(path string, info fs.FileInfo) (entry.Entry, bool) {
	kind := entry.KindFromMode(info.Mode())
	if _, alias := e.aliases[path]; alias {
		kind = entry.KindSymlink
	}

	if e.cfg.Xdev && kind == entry.KindDir && e.rootDev != 0 {
		if dev := deviceID(info); dev != 0 && dev != e.rootDev {
			return entry.Entry{}, false
		}
	}

	ent := entry.Entry{Name: info.Name(), Kind: kind}
	if kind != entry.KindDir && kind != entry.KindSymlink {
		ent.Size = e.size(info)
	}
	return ent, true
}

// Excluded reports whether path matches the configured exclusion.
func (e *OS) Excluded(path string) bool {
	return e.cfg.Exclude != nil && e.cfg.Exclude(path)
}

func (e *OS) size(info fs.FileInfo) uint64 {
	if e.cfg.DiskUsage {
		if b, ok := allocated(info); ok {
			return b
		}
	}
	if info.Size() < 0 {
		return 0
	}
	return uint64(info.Size())
}

var _ Enumerator = (*OS)(nil)
