package scan

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/michaelscutari/diskscan/internal/fsenum"
	"github.com/michaelscutari/diskscan/internal/metrics"
)

// Options configures the scanning behavior.
type Options struct {
	// Workers is the number of concurrent directory processors used by the
	// parallel and fastwalk engines. Zero picks a default from the CPU count.
	Workers int

	// Xdev prevents crossing filesystem boundaries.
	Xdev bool

	// DiskUsage reports allocated blocks instead of apparent sizes.
	DiskUsage bool

	// ExcludePatterns are regular expressions for paths to skip.
	ExcludePatterns []*regexp.Regexp

	// Enumerator replaces the host filesystem enumerator. Xdev, DiskUsage and
	// ExcludePatterns only apply to the host enumerator.
	Enumerator fsenum.Enumerator

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// NewOptions returns options that keep every enumerated entry: no exclude
// patterns, and mount points below the root are descended into. Scan and
// ParallelScan use these.
func NewOptions() *Options {
	return &Options{Logger: zap.NewNop()}
}

// DefaultOptions returns the command-line defaults: devices other than the
// root's are not crossed and NFS snapshot directories are skipped.
func DefaultOptions() *Options {
	opts := &Options{
		Xdev:   true,
		Logger: zap.NewNop(),
	}
	// Exclude NFS snapshot directories by default
	opts.AddExcludePattern(`/\.snapshot(/|$)`)
	return opts
}

// WithWorkers sets the number of workers.
func (o *Options) WithWorkers(n int) *Options {
	o.Workers = n
	return o
}

// WithXdev sets cross-device behavior.
func (o *Options) WithXdev(xdev bool) *Options {
	o.Xdev = xdev
	return o
}

// WithDiskUsage switches sizes to allocated blocks.
func (o *Options) WithDiskUsage(du bool) *Options {
	o.DiskUsage = du
	return o
}

// WithEnumerator scans through e instead of the host filesystem.
func (o *Options) WithEnumerator(e fsenum.Enumerator) *Options {
	o.Enumerator = e
	return o
}

// WithLogger sets the logger. A nil logger disables logging.
func (o *Options) WithLogger(l *zap.Logger) *Options {
	if l == nil {
		l = zap.NewNop()
	}
	o.Logger = l
	return o
}

// WithMetrics sets the metrics sink.
func (o *Options) WithMetrics(m *metrics.Metrics) *Options {
	o.Metrics = m
	return o
}

// AddExcludePattern adds a pattern to exclude.
func (o *Options) AddExcludePattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	o.ExcludePatterns = append(o.ExcludePatterns, re)
	return nil
}

// ShouldExclude checks if a path matches any exclude pattern.
func (o *Options) ShouldExclude(path string) bool {
	for _, re := range o.ExcludePatterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
