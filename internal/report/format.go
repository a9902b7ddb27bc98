package report

import (
	"bufio"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/michaelscutari/diskscan/internal/entry"
	"github.com/michaelscutari/diskscan/internal/rollup"
	"github.com/michaelscutari/diskscan/internal/tree"
)

// TabSpacing is the number of spaces between tabwriter columns.
const TabSpacing = 2

// Summary is everything the formatters print for one scanned root.
type Summary struct {
	Root     string        `json:"root"`
	Engine   string        `json:"engine"`
	Bytes    uint64        `json:"bytes"`
	Files    uint64        `json:"files"`
	Dirs     uint64        `json:"dirs"`
	Nodes    int           `json:"nodes"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Canceled bool          `json:"canceled,omitempty"`
	TopFiles []Item        `json:"top_files"`
	TopDirs  []Item        `json:"top_dirs"`
}

// Summarize collects the totals and top-n lists for t.
func Summarize(t *tree.Tree, totals rollup.Totals, top int) Summary {
	return Summary{
		Root:     t.Node(t.Root()).Name,
		Bytes:    totals.Bytes,
		Files:    totals.Files,
		Dirs:     totals.Dirs,
		Nodes:    t.Len(),
		TopFiles: Largest(t, top, entry.KindFile),
		TopDirs:  Largest(t, top, entry.KindDir),
	}
}

// PrintJSON writes summaries as an indented JSON array.
func PrintJSON(w io.Writer, sums []Summary) error {
	data, err := json.MarshalIndent(sums, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// PrintTable writes a human-readable summary.
func PrintTable(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, TabSpacing, ' ', 0)

	fmt.Fprintf(tw, "%s\t\t\n", s.Root)
	if s.Canceled {
		fmt.Fprintln(tw, "  (canceled, totals are partial)\t\t")
	}

	printItems := func(title string, items []Item) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(tw, "\n%s:\t\t\n", title)
		for i, it := range items {
			fmt.Fprintf(tw, "  %d) %s\t%s\t(%.1f%%)\n",
				i+1, it.Path, humanize.IBytes(it.Size), percent(it.Size, s.Bytes))
		}
	}
	printItems("Largest directories", s.TopDirs)
	printItems("Largest files", s.TopFiles)

	fmt.Fprintln(tw, "\nStats:\t\t")
	fmt.Fprintf(tw, "Total size:\t%s (%d bytes)\t\n", humanize.IBytes(s.Bytes), s.Bytes)
	fmt.Fprintf(tw, "Files:\t%s\t\n", humanize.Comma(int64(s.Files)))
	fmt.Fprintf(tw, "Directories:\t%s\t\n", humanize.Comma(int64(s.Dirs)))
	if s.Engine != "" {
		fmt.Fprintf(tw, "Engine:\t%s\t\n", s.Engine)
	}
	fmt.Fprintf(tw, "Elapsed:\t%v\t\n", s.Elapsed.Round(time.Millisecond))

	return tw.Flush()
}

// PrintTree writes the directory hierarchy down to maxDepth levels below the
// root (0 means unlimited), children largest first.
func PrintTree(w io.Writer, t *tree.Tree, maxDepth int) error {
	type frame struct {
		id    tree.ID
		depth int
	}
	stack := []frame{{id: t.Root()}}
	bw := bufio.NewWriter(w)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.Node(f.id)
		name := n.Name
		if n.IsDir() && f.id != t.Root() {
			name += "/"
		}
		fmt.Fprintf(bw, "%s%s  %s\n", strings.Repeat("  ", f.depth), name, humanize.IBytes(n.Size))

		if maxDepth > 0 && f.depth >= maxDepth {
			continue
		}
		children := slices.Collect(t.Children(f.id))
		// Pushed smallest first so the largest is printed first.
		slices.SortFunc(children, func(a, c tree.ID) int {
			na, nc := t.Node(a), t.Node(c)
			if r := cmp.Compare(na.Size, nc.Size); r != 0 {
				return r
			}
			return cmp.Compare(nc.Name, na.Name)
		})
		for _, c := range children {
			stack = append(stack, frame{id: c, depth: f.depth + 1})
		}
	}
	return bw.Flush()
}
