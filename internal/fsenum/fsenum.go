// Package fsenum lists the immediate children of a directory and classifies
// them for the scanner.
//
// Enumerators report symlinks (and, on darwin, firmlink aliases) as
// entry.KindSymlink; the scanner never descends into or materializes those.
// Failures on individual entries are swallowed: the entry is left out.
package fsenum

import (
	"github.com/michaelscutari/diskscan/internal/entry"
)

// Enumerator is the directory listing capability the scanner depends on.
type Enumerator interface {
	// Stat classifies the scan root itself.
	Stat(path string) (entry.Entry, error)

	// Enumerate returns the immediate children of dir. A non-nil error means
	// the directory itself could not be read; per-entry failures never
	// surface here. The caller owns the returned slice.
	Enumerate(dir string) ([]entry.Entry, error)
}
