package scan

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/michaelscutari/diskscan/internal/entry"
	"github.com/michaelscutari/diskscan/internal/fsenum"
	"github.com/michaelscutari/diskscan/internal/tree"
)

var errCanceled = errors.New("scan canceled")

type walkEntry struct {
	rel   string
	depth int
	entry entry.Entry
}

// walk fills t using fastwalk. Callbacks run concurrently and may arrive in
// any order, so entries are collected first and attached parent-first
// afterwards. Progress is added per file rather than per directory.
func (s *Scanner) walk(t *tree.Tree, enum *fsenum.OS, progress *atomic.Uint64, cancel *atomic.Bool) error {
	root := t.Node(t.Root()).Name

	var (
		mu        sync.Mutex
		collected []walkEntry

		dirs, files atomic.Int64
		bytes       atomic.Uint64
	)

	conf := &fastwalk.Config{
		Follow:     false,
		NumWorkers: s.opts.Workers,
	}

	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if cancel != nil && cancel.Load() {
			return errCanceled
		}
		if err != nil {
			s.opts.Logger.Debug("cannot read directory", zap.String("path", path), zap.Error(err))
			s.opts.Metrics.RecordEnumerateError()
			return nil
		}
		if path == root {
			return nil
		}

		if enum.Excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		ent, ok := enum.Classify(path, info)
		if !ok || !ent.Kind.Traversable() {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		ent.Name = d.Name()

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if ent.IsDir() {
			dirs.Add(1)
		} else {
			files.Add(1)
			bytes.Add(ent.Size)
			if progress != nil {
				progress.Add(ent.Size)
			}
		}

		mu.Lock()
		collected = append(collected, walkEntry{
			rel:   rel,
			depth: strings.Count(rel, string(filepath.Separator)),
			entry: ent,
		})
		mu.Unlock()
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, errCanceled) {
		return walkErr
	}
	// The root is expanded too.
	s.opts.Metrics.RecordWalk(int(dirs.Load())+1, int(files.Load()), bytes.Load())

	buildTree(t, collected)
	return nil
}

// buildTree attaches collected entries to t, shallowest first.
func buildTree(t *tree.Tree, entries []walkEntry) {
	slices.SortFunc(entries, func(a, b walkEntry) int {
		return a.depth - b.depth
	})

	ids := make(map[string]tree.ID, len(entries)/4+1)
	ids["."] = t.Root()
	for _, e := range entries {
		parent, ok := ids[filepath.Dir(e.rel)]
		if !ok {
			// Parent was skipped or the walk was canceled before it was seen.
			continue
		}
		id := t.AddChild(parent, e.entry)
		if e.entry.IsDir() {
			ids[e.rel] = id
		}
	}
}
