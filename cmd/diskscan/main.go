package main

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/michaelscutari/diskscan/internal/logging"
)

var version = "0.1.0"

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	err := rootCmd.Execute()
	_ = logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if ee, ok := err.(*exitError); ok {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

var (
	logLevel  string
	logFormat string
	logOutput string
)

var rootCmd = &cobra.Command{
	Use:   "diskscan",
	Short: "Measure how much space a directory tree uses",
	Long: heredoc.Doc(`
		diskscan walks a directory tree, builds it in memory and computes the
		recursive size of every directory.

		The parallel engine spreads directories over a pool of workers that hand
		surplus work to each other; the sequential engine walks on a single
		goroutine. Symbolic links are never followed.
	`),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Init(logging.Config{
			Level:  logLevel,
			Format: logFormat,
			Output: logOutput,
		})
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console|json")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-file", "stderr", "Log destination: stderr, stdout or a file path")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(compareCmd)
}
