// Package parallel runs a self-expanding set of tasks on a pool of workers.
//
// Each worker holds exactly one task at a time. Expanding a task yields new
// tasks; the worker keeps one of them and publishes the rest to a shared
// pending list. Idle workers sleep on a condition variable until work is
// published or the whole computation has drained.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Expander turns one task into zero or more follow-up tasks.
// Expand is called from many goroutines at once. The returned slice is owned
// by the scheduler afterwards.
type Expander[T any] interface {
	Expand(task T) []T
}

// ExpanderFunc adapts a function to Expander.
type ExpanderFunc[T any] func(T) []T

// Expand calls f(task).
func (f ExpanderFunc[T]) Expand(task T) []T { return f(task) }

// Options tunes Execute.
type Options struct {
	// Workers is the pool size. Zero means DefaultWorkers().
	Workers int

	// OnShare, if set, is called with the number of tasks each time a worker
	// publishes surplus tasks to the shared list.
	OnShare func(n int)
}

// DefaultWorkers is twice the number of CPUs. Expansion is dominated by
// filesystem latency, so oversubscription keeps the CPUs busy.
func DefaultWorkers() int {
	return runtime.NumCPU() * 2
}

type scheduler[T any] struct {
	exp     Expander[T]
	cancel  *atomic.Bool
	onShare func(int)

	mu      sync.Mutex
	cond    *sync.Cond
	pending []T
	// active counts workers that are holding a task or may still publish one.
	active int
}

// Execute expands seed and everything it transitively produces, then returns.
//
// When cancel is set, workers stop expanding; tasks still pending are
// discarded, and Execute returns once every worker has drained. cancel may be
// nil.
func Execute[T any](exp Expander[T], seed T, cancel *atomic.Bool, opts Options) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	s := &scheduler[T]{
		exp:     exp,
		cancel:  cancel,
		onShare: opts.OnShare,
		pending: []T{seed},
		active:  workers,
	}
	s.cond = sync.NewCond(&s.mu)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			s.work()
		}()
	}
	wg.Wait()
}

func (s *scheduler[T]) canceled() bool {
	return s.cancel != nil && s.cancel.Load()
}

func (s *scheduler[T]) work() {
	var (
		task T
		have bool
	)
	for {
		if !have {
			var ok bool
			task, ok = s.take()
			if !ok {
				return
			}
		}

		if s.canceled() {
			have = false
			continue
		}

		next := s.exp.Expand(task)
		switch len(next) {
		case 0:
			have = false
		case 1:
			task, have = next[0], true
		default:
			task, have = s.share(next), true
		}
	}
}

// take blocks until a pending task is available, or returns false once no
// worker holds a task and nothing is pending.
func (s *scheduler[T]) take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active--
	for len(s.pending) == 0 {
		if s.active == 0 {
			// Wake everyone else so they observe the drained state too.
			s.cond.Broadcast()
			var zero T
			return zero, false
		}
		s.cond.Wait()
	}
	s.active++

	n := len(s.pending) - 1
	task := s.pending[n]
	var zero T
	s.pending[n] = zero
	s.pending = s.pending[:n]
	return task, true
}

// share keeps the last task of next for the calling worker and publishes the
// rest. If the surplus is larger than the shared list, the two are swapped so
// the append copies the shorter one.
func (s *scheduler[T]) share(next []T) T {
	keep := next[len(next)-1]
	surplus := next[:len(next)-1]

	s.mu.Lock()
	if len(surplus) > len(s.pending) {
		s.pending, surplus = surplus, s.pending
	}
	s.pending = append(s.pending, surplus...)
	s.mu.Unlock()
	s.cond.Broadcast()

	if s.onShare != nil {
		s.onShare(len(next) - 1)
	}
	return keep
}
