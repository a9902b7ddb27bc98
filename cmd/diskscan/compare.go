package main

import (
	"fmt"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/michaelscutari/diskscan/internal/report"
	"github.com/michaelscutari/diskscan/internal/scan"
)

var compareCmd = &cobra.Command{
	Use:   "compare [path]",
	Short: "Scan a directory with every engine and check they agree",
	Long: heredoc.Doc(`
		Scan the same directory with the sequential, parallel and fastwalk
		engines one after another, then compare their trees. Each engine
		reports its wall time, node count, total size and a fingerprint of
		every (path, size, depth) triple.

		Exits with status 2 if any engine disagrees with the sequential one.
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 0, "Worker goroutines for the parallel engines (0 = twice the CPU count)")
	compareCmd.Flags().BoolVar(&scanXdev, "xdev", true, "Don't cross filesystem boundaries")
	compareCmd.Flags().StringSliceVarP(&scanExclude, "exclude", "e", nil, "Regex patterns to exclude (can be repeated)")
	compareCmd.Flags().BoolVar(&scanDiskUsage, "disk-usage", false, "Report allocated blocks instead of apparent size")
}

type engineRun struct {
	engine      scan.Engine
	nodes       int
	bytes       uint64
	fingerprint uint64
	elapsed     time.Duration
}

func runCompare(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	opts, err := scanOptions(nil)
	if err != nil {
		return err
	}
	scanner := scan.New(opts)

	ctx, stop := interruptContext()
	defer stop()

	var runs []engineRun
	for _, engine := range scan.Engines {
		var progress atomic.Uint64
		var cancel atomic.Bool
		detach := scan.CancelOnDone(ctx, &cancel)

		res, err := scanner.Run(engine, root, &progress, &cancel)
		detach()
		if err != nil {
			return fmt.Errorf("%s: %w", engine, err)
		}
		if res.Canceled {
			return fmt.Errorf("comparison canceled")
		}
		runs = append(runs, engineRun{
			engine:      engine,
			nodes:       res.Tree.Len(),
			bytes:       res.Totals.Bytes,
			fingerprint: res.Tree.Fingerprint(),
			elapsed:     res.Duration,
		})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, report.TabSpacing, ' ', 0)
	fmt.Fprintln(w, "ENGINE\tTIME\tNODES\tSIZE\tFINGERPRINT\t")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%016x\t\n",
			r.engine, r.elapsed.Round(time.Millisecond), humanize.Comma(int64(r.nodes)),
			humanize.IBytes(r.bytes), r.fingerprint)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	var mismatched []scan.Engine
	for _, r := range runs[1:] {
		if r.fingerprint != runs[0].fingerprint || r.nodes != runs[0].nodes || r.bytes != runs[0].bytes {
			mismatched = append(mismatched, r.engine)
		}
	}
	if len(mismatched) > 0 {
		return &exitError{code: 2, msg: fmt.Sprintf("engines disagree with %s: %v", runs[0].engine, mismatched)}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All engines agree.")
	return nil
}
