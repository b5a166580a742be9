package profiler

import (
	"context"
	"sync/atomic"
)

// Span ties a trace node's lifetime to a block of code. StartSpan begins the
// node immediately; End stops it exactly once, so `defer span.End()` keeps the
// tree balanced on every exit path, panics included.
type Span struct {
	profiler *Profiler
	ctx      context.Context
	ended    atomic.Bool
}

// StartSpan begins a node named name and returns the span guarding it.
func (p *Profiler) StartSpan(ctx context.Context, name string) *Span {
	return &Span{
		profiler: p,
		ctx:      p.Begin(ctx, name),
	}
}

// Context returns the context carrying the span's node. Pass it to nested
// calls (or to another goroutine) so their nodes attach under this one.
func (s *Span) Context() context.Context {
	return s.ctx
}

// Node returns the span's trace node.
func (s *Span) Node() *TraceNode {
	return s.profiler.CurrentNode(s.ctx)
}

// End stops the span's node. Safe to call more than once; only the first call
// has an effect.
func (s *Span) End() {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.profiler.End(s.ctx)
}

// Trace runs fn inside a span named name. The span is ended before any error
// or panic from fn continues outward.
func (p *Profiler) Trace(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	span := p.StartSpan(ctx, name)
	defer span.End()
	return fn(span.Context())
}

// StartSpan begins a span on the Default profiler.
func StartSpan(ctx context.Context, name string) *Span {
	return Default().StartSpan(ctx, name)
}
