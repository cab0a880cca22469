package typsthighlight

import (
	"context"
	"runtime"
)

// Worker sizing constants.
const (
	// MinWorkers ensures at least one worker is available.
	MinWorkers = 1

	// MaxWorkers caps concurrent compiler processes to limit memory and
	// file-descriptor use.
	MaxWorkers = 8

	// cpuDivisor leaves headroom for the compiler's own threads.
	cpuDivisor = 2
)

// ResolveWorkers determines the worker count.
// Priority: explicit value > GOMAXPROCS-based calculation.
func ResolveWorkers(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// renderSlots is a counting semaphore bounding concurrent compiler
// invocations across all chapters. Render work is gated here so chapter
// parallelism never fans out into unbounded subprocess spawning.
type renderSlots chan struct{}

func newRenderSlots(n int) renderSlots {
	if n < 1 {
		n = 1
	}
	return make(renderSlots, n)
}

// acquire blocks until a slot is free or the context is cancelled.
func (s renderSlots) acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s renderSlots) release() {
	<-s
}
