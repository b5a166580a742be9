// Package workload generates sample traced activity for demos and tests.
package workload

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/callscope/callscope/profiler"
)

var workAmount = 20_000_000

// Spin burns CPU deterministically.
func Spin(count int) int {
	for i := 0; i < workAmount; i++ {
		count += i
		if i%2 == 0 {
			count = count / 2
		}
	}
	return count
}

// Run drives a full demo pipeline under a single root: a nested call chain,
// then an asynchronous handoff to another goroutine.
func Run(ctx context.Context, p *profiler.Profiler) error {
	return p.Trace(ctx, "pipeline", func(ctx context.Context) error {
		StageOne(ctx, p, 1)
		return Handoff(ctx, p)
	})
}

func StageOne(ctx context.Context, p *profiler.Profiler, count int) {
	span := p.StartSpan(ctx, "stage_one")
	defer span.End()
	StageTwo(span.Context(), p, Spin(count))
}

func StageTwo(ctx context.Context, p *profiler.Profiler, count int) {
	span := p.StartSpan(ctx, "stage_two")
	defer span.End()
	StageThree(span.Context(), p, Spin(count))
}

func StageThree(ctx context.Context, p *profiler.Profiler, count int) {
	span := p.StartSpan(ctx, "stage_three")
	defer span.End()
	_ = Spin(count)
}

// Handoff suspends the flow on one goroutine and resumes it on another. The
// resumed work keeps nesting under the handoff span because its context
// travels with it.
func Handoff(ctx context.Context, p *profiler.Profiler) error {
	span := p.StartSpan(ctx, "handoff")
	defer span.End()

	eg, egCtx := errgroup.WithContext(span.Context())
	eg.Go(func() error {
		resumed := p.StartSpan(egCtx, "resumed")
		defer resumed.End()
		_ = Spin(1)
		return nil
	})
	return eg.Wait()
}

// Worker burns one unit of work for a named stage. Serve loops call this per
// allocated thread.
func Worker(ctx context.Context, p *profiler.Profiler, stage string) {
	span := p.StartSpan(ctx, stage)
	defer span.End()
	_ = Spin(1)
}
