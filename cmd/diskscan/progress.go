package main

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// progressReporter prints the bytes discovered so far across a set of
// counters: a spinner line on a terminal, periodic lines otherwise.
type progressReporter struct {
	out      io.Writer
	tty      bool
	interval time.Duration
	counters []*atomic.Uint64
	start    time.Time
	done     chan struct{}
	stopped  chan struct{}
}

func newProgressReporter(counters []*atomic.Uint64, interval time.Duration) *progressReporter {
	return &progressReporter{
		out:      os.Stderr,
		tty:      isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		interval: interval,
		counters: counters,
		start:    time.Now(),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (p *progressReporter) total() uint64 {
	var sum uint64
	for _, c := range p.counters {
		sum += c.Load()
	}
	return sum
}

func (p *progressReporter) run() {
	defer close(p.stopped)
	if !p.tty && p.interval <= 0 {
		<-p.done
		return
	}

	tick := 80 * time.Millisecond
	if !p.tty {
		tick = p.interval
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var frame int
	for {
		select {
		case <-p.done:
			if p.tty {
				fmt.Fprint(p.out, "\r\033[K")
			}
			return
		case <-ticker.C:
			bytes := p.total()
			elapsed := time.Since(p.start).Round(time.Millisecond)
			rate := uint64(0)
			if s := elapsed.Seconds(); s > 0 {
				rate = uint64(float64(bytes) / s)
			}
			if p.tty {
				spinner := spinnerFrames[frame%len(spinnerFrames)]
				frame++
				fmt.Fprintf(p.out, "\r\033[K%s Scanning... %s | %s/s | %s",
					spinner, humanize.IBytes(bytes), humanize.IBytes(rate), elapsed)
			} else {
				fmt.Fprintf(p.out, "PROGRESS bytes=%d (%s) rate=%s/s elapsed=%s\n",
					bytes, humanize.IBytes(bytes), humanize.IBytes(rate), elapsed)
			}
		}
	}
}

// stop ends the reporter and clears the spinner line.
func (p *progressReporter) stop() {
	close(p.done)
	<-p.stopped
}
