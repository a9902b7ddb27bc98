package scan

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelscutari/diskscan/internal/entry"
	"github.com/michaelscutari/diskscan/internal/fsenum"
	"github.com/michaelscutari/diskscan/internal/metrics"
	"github.com/michaelscutari/diskscan/internal/tree"
)

var sandboxFiles = map[string]int{
	"Documents/Personal/ProfilePicture": 524288,
	"Documents/ResearchPaper":           1048576,
	"Journal":                           2097152,
	"ProgramData/Reader":                104857,
	"ProgramData/Report":                262144,
}

const sandboxTotal = 4037017

// makeSandbox lays out the Sandbox fixture under a temp dir and returns its
// path.
func makeSandbox(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Sandbox")
	for rel, size := range sandboxFiles {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Temp", "Empty"), 0o755))
	return root
}

// sizes maps root-relative paths to node sizes.
func sizes(tr *tree.Tree) map[string]uint64 {
	out := make(map[string]uint64, tr.Len())
	for _, r := range tr.Records() {
		out[r.Path] = r.Size
	}
	return out
}

func engines(s *Scanner) map[Engine]func(string, *atomic.Uint64, *atomic.Bool) (*tree.Tree, error) {
	return map[Engine]func(string, *atomic.Uint64, *atomic.Bool) (*tree.Tree, error){
		EngineSequential: s.Sequential,
		EngineParallel:   s.Parallel,
		EngineFastwalk:   s.Walk,
	}
}

func TestSandboxAllEngines(t *testing.T) {
	root := makeSandbox(t)
	s := New(DefaultOptions().WithWorkers(4))

	for name, run := range engines(s) {
		t.Run(string(name), func(t *testing.T) {
			var progress atomic.Uint64
			var cancel atomic.Bool

			tr, err := run(root, &progress, &cancel)
			require.NoError(t, err)

			got := sizes(tr)
			assert.Equal(t, uint64(sandboxTotal), got["."])
			assert.Equal(t, uint64(1572864), got["Documents"])
			assert.Equal(t, uint64(524288), got["Documents/Personal"])
			assert.Equal(t, uint64(367001), got["ProgramData"])
			assert.Equal(t, uint64(0), got["Temp"])
			assert.Equal(t, uint64(0), got["Temp/Empty"])
			for rel, size := range sandboxFiles {
				assert.Equal(t, uint64(size), got[rel], rel)
			}
			assert.Len(t, got, 1+5+5)

			assert.Equal(t, uint64(sandboxTotal), progress.Load())
			assert.Equal(t, root, tr.Node(tr.Root()).Name)
		})
	}
}

func TestEnginesAgree(t *testing.T) {
	root := makeSandbox(t)
	// Widen the fixture so the parallel engine has something to share.
	for i := range 20 {
		dir := filepath.Join(root, "wide", string(rune('a'+i)))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "f"), make([]byte, i*7), 0o644))
	}

	s := New(DefaultOptions().WithWorkers(8))
	var fingerprints []uint64
	for _, e := range Engines {
		res, err := s.Run(e, root, nil, nil)
		require.NoError(t, err)
		require.False(t, res.Canceled)
		fingerprints = append(fingerprints, res.Tree.Fingerprint())
	}
	assert.Equal(t, fingerprints[0], fingerprints[1], "sequential vs parallel")
	assert.Equal(t, fingerprints[0], fingerprints[2], "sequential vs fastwalk")
}

func TestDepthInvariant(t *testing.T) {
	root := makeSandbox(t)
	tr, err := ParallelScan(root, nil, nil)
	require.NoError(t, err)
	checkDepths(t, tr)
}

func checkDepths(t *testing.T, tr *tree.Tree) {
	t.Helper()
	for id := range tr.DepthFirst(tr.Root()) {
		parent, ok := tr.Parent(id)
		if !ok {
			require.Equal(t, tr.Root(), id)
			require.Zero(t, tr.Node(id).Depth)
			continue
		}
		require.Equal(t, tr.Node(parent).Depth+1, tr.Node(id).Depth)
	}
}

func TestSymlinksAreSkipped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := makeSandbox(t)
	// A link back to the root must not loop, and a file link must not count.
	require.NoError(t, os.Symlink(root, filepath.Join(root, "Documents", "loop")))
	require.NoError(t, os.Symlink(filepath.Join(root, "Journal"), filepath.Join(root, "journal-link")))

	s := New(nil)
	for name, run := range engines(s) {
		t.Run(string(name), func(t *testing.T) {
			tr, err := run(root, nil, nil)
			require.NoError(t, err)
			got := sizes(tr)
			assert.Equal(t, uint64(sandboxTotal), got["."])
			assert.NotContains(t, got, "Documents/loop")
			assert.NotContains(t, got, "journal-link")
		})
	}
}

func TestExcludePattern(t *testing.T) {
	root := makeSandbox(t)
	opts := DefaultOptions()
	require.NoError(t, opts.AddExcludePattern(`/ProgramData$`))
	s := New(opts)

	for name, run := range engines(s) {
		t.Run(string(name), func(t *testing.T) {
			tr, err := run(root, nil, nil)
			require.NoError(t, err)
			got := sizes(tr)
			assert.NotContains(t, got, "ProgramData")
			assert.Equal(t, uint64(sandboxTotal-367001), got["."])
		})
	}
}

func TestDiskUsage(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("block counts are not available on windows")
	}
	root := makeSandbox(t)
	tr, err := New(DefaultOptions().WithDiskUsage(true)).Sequential(root, nil, nil)
	require.NoError(t, err)
	for _, r := range tr.Records() {
		assert.Zero(t, r.Size%512, r.Path)
	}
}

func TestPreCanceled(t *testing.T) {
	root := makeSandbox(t)
	s := New(nil)
	for name := range engines(s) {
		t.Run(string(name), func(t *testing.T) {
			var cancel atomic.Bool
			cancel.Store(true)
			res, err := s.Run(name, root, nil, &cancel)
			require.NoError(t, err)
			assert.True(t, res.Canceled)
			assert.Equal(t, 1, res.Tree.Len())
			assert.Zero(t, res.Totals.Bytes)
		})
	}
}

func TestInvalidRoot(t *testing.T) {
	s := New(nil)
	missing := filepath.Join(t.TempDir(), "missing")
	for name, run := range engines(s) {
		t.Run(string(name), func(t *testing.T) {
			_, err := run(missing, nil, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, os.ErrNotExist), "%v", err)
		})
	}

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err := s.Sequential(file, nil, nil)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestUnknownEngine(t *testing.T) {
	_, err := New(nil).Run("bogus", t.TempDir(), nil, nil)
	assert.Error(t, err)
	_, err = ParseEngine("bogus")
	assert.Error(t, err)
	e, err := ParseEngine("fastwalk")
	require.NoError(t, err)
	assert.Equal(t, EngineFastwalk, e)
}

func TestUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := makeSandbox(t)
	locked := filepath.Join(root, "Documents", "Personal")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	m := metrics.New(false)
	tr, err := New(DefaultOptions().WithMetrics(m)).Parallel(root, nil, nil)
	require.NoError(t, err)

	got := sizes(tr)
	assert.Equal(t, uint64(0), got["Documents/Personal"])
	assert.Equal(t, uint64(sandboxTotal-524288), got["."])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnumerateErrors))
}

func TestMapFS(t *testing.T) {
	fsys := fstest.MapFS{
		"a/b/c.bin": {Data: make([]byte, 100)},
		"a/d.bin":   {Data: make([]byte, 20)},
		"e.bin":     {Data: make([]byte, 3)},
		"link":      {Data: []byte("a"), Mode: 0o777 | os.ModeSymlink},
		"empty":     {Mode: 0o755 | os.ModeDir},
	}
	s := New(DefaultOptions().WithEnumerator(fsenum.FS{FS: fsys}))

	seq, err := s.Sequential(".", nil, nil)
	require.NoError(t, err)
	par, err := s.Parallel(".", nil, nil)
	require.NoError(t, err)

	got := sizes(seq)
	assert.Equal(t, uint64(123), got["."])
	assert.Equal(t, uint64(120), got["a"])
	assert.Equal(t, uint64(100), got["a/b"])
	assert.Equal(t, uint64(0), got["empty"])
	assert.NotContains(t, got, "link")
	assert.Equal(t, seq.Fingerprint(), par.Fingerprint())

	_, err = s.Walk(".", nil, nil)
	assert.ErrorIs(t, err, ErrHostOnly)
}

func TestWalkRejectsNonHostEnumerator(t *testing.T) {
	m := metrics.New(false)
	fsys := fstest.MapFS{"f": {Data: []byte("x")}}
	s := New(NewOptions().WithEnumerator(fsenum.FS{FS: fsys}).WithMetrics(m))

	res, err := s.Run(EngineFastwalk, ".", nil, nil)
	require.ErrorIs(t, err, ErrHostOnly)
	assert.Nil(t, res.Tree)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(string(EngineFastwalk), metrics.OutcomeError)))
}

func TestScanKeepsEveryEntry(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".snapshot"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".snapshot", "f"), make([]byte, 1000), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "g"), make([]byte, 10), 0o644))

	for name, run := range map[string]func(string, *atomic.Uint64, *atomic.Bool) (*tree.Tree, error){
		"Scan":         Scan,
		"ParallelScan": ParallelScan,
	} {
		t.Run(name, func(t *testing.T) {
			var progress atomic.Uint64
			tr, err := run(root, &progress, nil)
			require.NoError(t, err)

			got := sizes(tr)
			assert.Equal(t, 4, tr.Len())
			assert.Equal(t, uint64(1000), got[".snapshot"])
			assert.Equal(t, uint64(1010), got["."])
			assert.Equal(t, uint64(1010), progress.Load())
		})
	}

	// The command-line defaults still skip snapshot directories.
	tr, err := New(DefaultOptions()).Sequential(root, nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, sizes(tr), ".snapshot")
}

func TestNewCopiesOptions(t *testing.T) {
	opts := &Options{}
	s := New(opts)
	assert.Nil(t, opts.Logger)
	assert.NotNil(t, s.Options().Logger)
	assert.NotSame(t, opts, s.Options())
}

func TestMetricsMatchTotals(t *testing.T) {
	root := makeSandbox(t)
	for _, e := range Engines {
		t.Run(string(e), func(t *testing.T) {
			m := metrics.New(false)
			res, err := New(DefaultOptions().WithMetrics(m)).Run(e, root, nil, nil)
			require.NoError(t, err)

			assert.Equal(t, float64(res.Totals.Bytes), testutil.ToFloat64(m.BytesDiscovered))
			assert.Equal(t, float64(res.Totals.Files), testutil.ToFloat64(m.FilesDiscovered))
			// Every directory is expanded once, the root included.
			assert.Equal(t, float64(res.Totals.Dirs+1), testutil.ToFloat64(m.DirectoriesExpanded))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(string(e), metrics.OutcomeComplete)))
			assert.Equal(t, float64(res.Tree.Len()), testutil.ToFloat64(m.TreeNodes))
		})
	}
}

// endless is a directory hierarchy with no bottom.
type endless struct {
	calls atomic.Int64
}

func (e *endless) Stat(string) (entry.Entry, error) {
	return entry.Entry{Name: "endless", Kind: entry.KindDir}, nil
}

func (e *endless) Enumerate(string) ([]entry.Entry, error) {
	e.calls.Add(1)
	return []entry.Entry{
		{Name: "left", Kind: entry.KindDir},
		{Name: "right", Kind: entry.KindDir},
		{Name: "data", Kind: entry.KindFile, Size: 1},
	}, nil
}
