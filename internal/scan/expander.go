package scan

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/michaelscutari/diskscan/internal/fsenum"
	"github.com/michaelscutari/diskscan/internal/metrics"
	"github.com/michaelscutari/diskscan/internal/tree"
)

// dirExpander enumerates one directory node, attaches its children and
// returns the subdirectories still to be expanded. It is shared by the
// sequential and parallel engines and is safe for concurrent use.
type dirExpander struct {
	tree     *tree.Tree
	enum     fsenum.Enumerator
	progress *atomic.Uint64
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func (x *dirExpander) Expand(id tree.ID) []tree.ID {
	dirPath := x.tree.Path(id)

	children, err := x.enum.Enumerate(dirPath)
	if err != nil {
		x.log.Debug("cannot read directory", zap.String("path", dirPath), zap.Error(err))
		x.metrics.RecordEnumerateError()
		return nil
	}

	kept := children[:0]
	var (
		bytes uint64
		files int
		dirs  int
	)
	for _, c := range children {
		if !c.Kind.Traversable() {
			continue
		}
		kept = append(kept, c)
		if c.IsDir() {
			dirs++
		} else {
			files++
			bytes += c.Size
		}
	}

	first := x.tree.AddChildren(id, kept)

	if x.progress != nil && bytes > 0 {
		x.progress.Add(bytes)
	}
	x.metrics.RecordDirectory(files, bytes)

	if dirs == 0 {
		return nil
	}
	subdirs := make([]tree.ID, 0, dirs)
	for i, c := range kept {
		if c.IsDir() {
			subdirs = append(subdirs, first+tree.ID(i))
		}
	}
	return subdirs
}
