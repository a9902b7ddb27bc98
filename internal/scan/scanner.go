// Package scan builds a size-annotated tree of a directory.
//
// Three engines produce the same tree: a sequential depth-first walk, a
// work-stealing parallel walk, and a reference engine on top of fastwalk.
// Each takes a caller-owned progress counter (bytes discovered so far) and a
// cancellation flag; either may be nil. A canceled scan returns the partial
// tree with directory sizes aggregated over what was discovered.
package scan

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/michaelscutari/diskscan/internal/fsenum"
	"github.com/michaelscutari/diskscan/internal/metrics"
	"github.com/michaelscutari/diskscan/internal/parallel"
	"github.com/michaelscutari/diskscan/internal/pathutil"
	"github.com/michaelscutari/diskscan/internal/rollup"
	"github.com/michaelscutari/diskscan/internal/tree"
)

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ErrHostOnly is returned when the fastwalk engine is given a non-host
// enumerator.
var ErrHostOnly = errors.New("engine needs the host filesystem")

// Engine names a scan strategy.
type Engine string

const (
	EngineSequential Engine = "sequential"
	EngineParallel   Engine = "parallel"
	EngineFastwalk   Engine = "fastwalk"
)

// Engines lists every engine in a stable order.
var Engines = []Engine{EngineSequential, EngineParallel, EngineFastwalk}

// ParseEngine validates an engine name.
func ParseEngine(s string) (Engine, error) {
	for _, e := range Engines {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown engine %q (want sequential, parallel or fastwalk)", s)
}

// Result is the outcome of Run.
type Result struct {
	Engine   Engine
	Root     string
	Tree     *tree.Tree
	Totals   rollup.Totals
	Duration time.Duration
	// Canceled is set when the cancellation flag stopped the scan early.
	Canceled bool
}

// Scanner runs scans with a fixed set of options. It holds no per-scan
// state, so one Scanner may run several scans at once.
type Scanner struct {
	opts *Options
}

// New creates a scanner from a copy of opts. A nil opts means NewOptions().
func New(opts *Options) *Scanner {
	if opts == nil {
		opts = NewOptions()
	}
	o := *opts
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Scanner{opts: &o}
}

// Options returns the scanner's copy of its options.
func (s *Scanner) Options() *Options {
	return s.opts
}

// Sequential scans root on the calling goroutine.
func (s *Scanner) Sequential(root string, progress *atomic.Uint64, cancel *atomic.Bool) (*tree.Tree, error) {
	res, err := s.Run(EngineSequential, root, progress, cancel)
	return res.Tree, err
}

// Parallel scans root with a pool of workers sharing surplus directories.
func (s *Scanner) Parallel(root string, progress *atomic.Uint64, cancel *atomic.Bool) (*tree.Tree, error) {
	res, err := s.Run(EngineParallel, root, progress, cancel)
	return res.Tree, err
}

// Walk scans root with fastwalk. It only supports the host filesystem.
func (s *Scanner) Walk(root string, progress *atomic.Uint64, cancel *atomic.Bool) (*tree.Tree, error) {
	res, err := s.Run(EngineFastwalk, root, progress, cancel)
	return res.Tree, err
}

// Run scans root with the given engine and aggregates directory sizes.
// The only errors are an invalid root or an unsupported engine; cancellation
// is reported through Result.Canceled.
func (s *Scanner) Run(engine Engine, root string, progress *atomic.Uint64, cancel *atomic.Bool) (Result, error) {
	res := Result{Engine: engine}
	if _, err := ParseEngine(string(engine)); err != nil {
		return res, err
	}
	log := s.opts.Logger.With(zap.String("engine", string(engine)))

	root, enum, err := s.prepare(engine, root)
	if err != nil {
		s.opts.Metrics.RecordScan(string(engine), metrics.OutcomeError, 0, 0)
		return res, err
	}
	res.Root = root

	log.Info("scan started", zap.String("root", root))
	start := time.Now()

	t := tree.New(root)
	switch engine {
	case EngineSequential:
		s.sequential(t, enum, progress, cancel)
	case EngineParallel:
		s.parallel(t, enum, progress, cancel)
	case EngineFastwalk:
		if err := s.walk(t, enum.(*fsenum.OS), progress, cancel); err != nil {
			s.opts.Metrics.RecordScan(string(engine), metrics.OutcomeError, time.Since(start), 0)
			return res, err
		}
	}

	res.Tree = t
	res.Totals = rollup.Aggregate(t)
	res.Duration = time.Since(start)
	res.Canceled = cancel != nil && cancel.Load()

	outcome := metrics.OutcomeComplete
	if res.Canceled {
		outcome = metrics.OutcomeCanceled
	}
	s.opts.Metrics.RecordScan(string(engine), outcome, res.Duration, t.Len())

	log.Info("scan finished",
		zap.String("root", root),
		zap.Int("nodes", t.Len()),
		zap.Uint64("bytes", res.Totals.Bytes),
		zap.Duration("duration", res.Duration),
		zap.Bool("canceled", res.Canceled),
	)
	return res, nil
}

// prepare resolves the root and the enumerator, and checks that the root is
// a directory the engine can scan.
func (s *Scanner) prepare(engine Engine, root string) (string, fsenum.Enumerator, error) {
	enum := s.opts.Enumerator
	if enum == nil {
		abs, err := pathutil.Abs(root)
		if err != nil {
			return "", nil, err
		}
		root = abs

		cfg := fsenum.Config{Xdev: s.opts.Xdev, DiskUsage: s.opts.DiskUsage}
		if len(s.opts.ExcludePatterns) > 0 {
			cfg.Exclude = s.opts.ShouldExclude
		}
		osEnum, err := fsenum.NewOS(root, cfg)
		if err != nil {
			return "", nil, fmt.Errorf("stat root %q: %w", root, err)
		}
		enum = osEnum
	} else if root == "" {
		root = "."
	}
	if _, host := enum.(*fsenum.OS); engine == EngineFastwalk && !host {
		return "", nil, fmt.Errorf("%s: %w", engine, ErrHostOnly)
	}

	info, err := enum.Stat(root)
	if err != nil {
		return "", nil, fmt.Errorf("stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("scan %q: %w", root, ErrNotDirectory)
	}
	return root, enum, nil
}

func (s *Scanner) expander(t *tree.Tree, enum fsenum.Enumerator, progress *atomic.Uint64) *dirExpander {
	return &dirExpander{
		tree:     t,
		enum:     enum,
		progress: progress,
		log:      s.opts.Logger,
		metrics:  s.opts.Metrics,
	}
}

func (s *Scanner) sequential(t *tree.Tree, enum fsenum.Enumerator, progress *atomic.Uint64, cancel *atomic.Bool) {
	x := s.expander(t, enum, progress)
	stack := []tree.ID{t.Root()}
	for len(stack) > 0 {
		if cancel != nil && cancel.Load() {
			return
		}
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, x.Expand(id)...)
	}
}

func (s *Scanner) parallel(t *tree.Tree, enum fsenum.Enumerator, progress *atomic.Uint64, cancel *atomic.Bool) {
	opts := parallel.Options{Workers: s.opts.Workers}
	if s.opts.Metrics != nil {
		opts.OnShare = s.opts.Metrics.RecordShared
	}
	parallel.Execute[tree.ID](s.expander(t, enum, progress), t.Root(), cancel, opts)
}

// Scan runs a sequential scan with NewOptions.
func Scan(root string, progress *atomic.Uint64, cancel *atomic.Bool) (*tree.Tree, error) {
	return New(nil).Sequential(root, progress, cancel)
}

// ParallelScan runs a parallel scan with NewOptions.
func ParallelScan(root string, progress *atomic.Uint64, cancel *atomic.Bool) (*tree.Tree, error) {
	return New(nil).Parallel(root, progress, cancel)
}
