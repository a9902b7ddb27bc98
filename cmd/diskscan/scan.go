package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/michaelscutari/diskscan/internal/logging"
	"github.com/michaelscutari/diskscan/internal/metrics"
	"github.com/michaelscutari/diskscan/internal/report"
	"github.com/michaelscutari/diskscan/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path...]",
	Short: "Scan directories and report their sizes",
	Long: heredoc.Doc(`
		Scan one or more directory trees and print their total size together
		with the largest files and directories.

		Press Ctrl+C once to stop early and print partial results; press it again
		to exit immediately.
	`),
	Example: heredoc.Doc(`
		diskscan scan /home
		diskscan scan --engine sequential --format tree --depth 2 .
		diskscan scan -j 2 -e '/node_modules$' ~/src ~/work
	`),
	RunE: runScan,
}

var (
	scanEngine      string
	scanWorkers     int
	scanXdev        bool
	scanExclude     []string
	scanDiskUsage   bool
	scanTop         int
	scanFormat      string
	scanDepth       int
	scanJobs        int
	scanProgress    time.Duration
	scanMetricsFile string
)

func init() {
	scanCmd.Flags().StringVar(&scanEngine, "engine", string(scan.EngineParallel), "Scan engine: sequential|parallel|fastwalk")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 0, "Worker goroutines per scan (0 = twice the CPU count)")
	scanCmd.Flags().BoolVar(&scanXdev, "xdev", true, "Don't cross filesystem boundaries")
	scanCmd.Flags().StringSliceVarP(&scanExclude, "exclude", "e", nil, "Regex patterns to exclude (can be repeated)")
	scanCmd.Flags().BoolVar(&scanDiskUsage, "disk-usage", false, "Report allocated blocks instead of apparent size")
	scanCmd.Flags().IntVarP(&scanTop, "top", "n", 10, "Number of largest files and directories to list")
	scanCmd.Flags().StringVar(&scanFormat, "format", "table", "Output format: table|json|tree")
	scanCmd.Flags().IntVar(&scanDepth, "depth", 2, "Levels to print with --format tree (0 = unlimited)")
	scanCmd.Flags().IntVarP(&scanJobs, "jobs", "j", 1, "Roots scanned concurrently")
	scanCmd.Flags().DurationVar(&scanProgress, "progress-interval", 30*time.Second, "Emit progress lines to stderr at this interval when not a TTY (0 to disable)")
	scanCmd.Flags().StringVar(&scanMetricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file after the scan")
}

// scanOptions builds scanner options from the command's flags.
func scanOptions(m *metrics.Metrics) (*scan.Options, error) {
	opts := scan.DefaultOptions().
		WithWorkers(scanWorkers).
		WithXdev(scanXdev).
		WithDiskUsage(scanDiskUsage).
		WithLogger(logging.L()).
		WithMetrics(m)

	for _, pattern := range scanExclude {
		if err := opts.AddExcludePattern(pattern); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}
	return opts, nil
}

// interruptContext is canceled on the first SIGINT or SIGTERM. A second
// signal exits the process.
func interruptContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Fprintln(os.Stderr, "\nCanceling... (press Ctrl+C again to force)")
		cancel()
		<-sigCh
		os.Exit(130)
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	engine, err := scan.ParseEngine(scanEngine)
	if err != nil {
		return err
	}
	switch scanFormat {
	case "table", "json", "tree":
	default:
		return fmt.Errorf("invalid format %q (expected table|json|tree)", scanFormat)
	}

	var m *metrics.Metrics
	if scanMetricsFile != "" {
		m = metrics.New(true)
	}
	opts, err := scanOptions(m)
	if err != nil {
		return err
	}
	scanner := scan.New(opts)

	ctx, stop := interruptContext()
	defer stop()

	counters := make([]*atomic.Uint64, len(args))
	for i := range counters {
		counters[i] = new(atomic.Uint64)
	}
	progress := newProgressReporter(counters, scanProgress)
	go progress.run()

	results := make([]scan.Result, len(args))
	g := new(errgroup.Group)
	g.SetLimit(max(scanJobs, 1))
	for i, root := range args {
		g.Go(func() error {
			// One flag per in-flight scan.
			var cancel atomic.Bool
			detach := scan.CancelOnDone(ctx, &cancel)
			defer detach()

			res, err := scanner.Run(engine, root, counters[i], &cancel)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			results[i] = res
			return nil
		})
	}
	err = g.Wait()
	progress.stop()
	if err != nil {
		return err
	}

	if err := printResults(cmd, results); err != nil {
		return err
	}

	if m != nil {
		if err := m.WriteTextfile(scanMetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		logging.L().Info("metrics written", zap.String("path", scanMetricsFile))
	}
	return nil
}

func printResults(cmd *cobra.Command, results []scan.Result) error {
	out := cmd.OutOrStdout()

	sums := make([]report.Summary, len(results))
	for i, res := range results {
		s := report.Summarize(res.Tree, res.Totals, scanTop)
		s.Engine = string(res.Engine)
		s.Elapsed = res.Duration
		s.Canceled = res.Canceled
		sums[i] = s
	}

	switch scanFormat {
	case "json":
		return report.PrintJSON(out, sums)
	case "tree":
		for _, res := range results {
			if err := report.PrintTree(out, res.Tree, scanDepth); err != nil {
				return err
			}
		}
		return nil
	default:
		for i, s := range sums {
			if i > 0 {
				fmt.Fprintln(out)
			}
			if err := report.PrintTable(out, s); err != nil {
				return err
			}
		}
		return nil
	}
}
