// Package metrics exposes Prometheus metrics for scans.
//
// Each Metrics owns its registry so tests and concurrent scans in one process
// do not collide. A nil *Metrics is a valid no-op.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome labels for ScansTotal.
const (
	OutcomeComplete = "complete"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// Metrics holds the scan collectors.
type Metrics struct {
	Registry *prometheus.Registry

	DirectoriesExpanded prometheus.Counter
	FilesDiscovered     prometheus.Counter
	BytesDiscovered     prometheus.Counter
	EnumerateErrors     prometheus.Counter
	TasksShared         prometheus.Counter
	ScanDuration        *prometheus.HistogramVec
	ScansTotal          *prometheus.CounterVec
	TreeNodes           prometheus.Gauge
}

// New creates a Metrics with a fresh registry. With process set, Go runtime
// and process collectors are registered as well.
func New(process bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		DirectoriesExpanded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskscan_directories_expanded_total",
			Help: "Directories whose children were enumerated",
		}),
		FilesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskscan_files_discovered_total",
			Help: "Non-directory entries added to the tree",
		}),
		BytesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskscan_bytes_discovered_total",
			Help: "Bytes of files added to the tree",
		}),
		EnumerateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskscan_enumerate_errors_total",
			Help: "Directories that could not be opened",
		}),
		TasksShared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskscan_tasks_shared_total",
			Help: "Tasks published to the shared work list by parallel workers",
		}),
		ScanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diskscan_scan_duration_seconds",
			Help:    "Wall time of a scan including aggregation",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"engine"}),
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diskscan_scans_total",
			Help: "Scans finished, by engine and outcome",
		}, []string{"engine", "outcome"}),
		TreeNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "diskscan_tree_nodes",
			Help: "Nodes in the most recently finished tree",
		}),
	}
	reg.MustRegister(
		m.DirectoriesExpanded,
		m.FilesDiscovered,
		m.BytesDiscovered,
		m.EnumerateErrors,
		m.TasksShared,
		m.ScanDuration,
		m.ScansTotal,
		m.TreeNodes,
	)
	if process {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// RecordDirectory records one expanded directory with its file count and
// byte total.
func (m *Metrics) RecordDirectory(files int, bytes uint64) {
	if m == nil {
		return
	}
	m.DirectoriesExpanded.Inc()
	m.FilesDiscovered.Add(float64(files))
	m.BytesDiscovered.Add(float64(bytes))
}

// RecordWalk records the totals of a walk that does not report per
// directory.
func (m *Metrics) RecordWalk(dirs, files int, bytes uint64) {
	if m == nil {
		return
	}
	m.DirectoriesExpanded.Add(float64(dirs))
	m.FilesDiscovered.Add(float64(files))
	m.BytesDiscovered.Add(float64(bytes))
}

// RecordEnumerateError counts a directory that could not be read.
func (m *Metrics) RecordEnumerateError() {
	if m == nil {
		return
	}
	m.EnumerateErrors.Inc()
}

// RecordShared counts tasks handed to the shared work list.
func (m *Metrics) RecordShared(n int) {
	if m == nil {
		return
	}
	m.TasksShared.Add(float64(n))
}

// RecordScan records a finished scan.
func (m *Metrics) RecordScan(engine, outcome string, d time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.ScanDuration.WithLabelValues(engine).Observe(d.Seconds())
	m.ScansTotal.WithLabelValues(engine, outcome).Inc()
	m.TreeNodes.Set(float64(nodes))
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
