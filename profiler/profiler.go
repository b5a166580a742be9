// Package profiler records a hierarchical trace of instrumented calls per
// goroutine, with wall-clock, self, CPU, memory and GC metrics per call.
//
// The current node travels in a context.Context, so a logical flow that hops
// goroutines keeps nesting under the right parent as long as the context is
// handed along. Roots are bucketed by the goroutine that actually called
// Begin.
package profiler

import (
	"context"
	"sync"
)

type nodeCtxKey struct{}

// Profiler is the trace registry. The zero value is not usable; construct one
// with New or use Default.
type Profiler struct {
	sampler *sampler

	mu     sync.Mutex
	traces map[uint64]*GoroutineTrace
}

func New() *Profiler {
	return &Profiler{
		sampler: newSampler(),
		traces:  make(map[uint64]*GoroutineTrace),
	}
}

var (
	defaultOnce     sync.Once
	defaultProfiler *Profiler
)

// Default returns the process-wide profiler, created on first use.
func Default() *Profiler {
	defaultOnce.Do(func() {
		defaultProfiler = New()
	})
	return defaultProfiler
}

// Begin opens a new trace node named name and returns a derived context
// carrying it. If ctx already carries an open node, the new node becomes its
// child; otherwise it becomes a new root in the calling goroutine's bucket.
// Begin never fails.
func (p *Profiler) Begin(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	node := &TraceNode{Name: name}
	gid := goroutineID()
	start := p.sampler.take()

	p.mu.Lock()
	// A stopped node left in the context is stale; attach under its nearest
	// open ancestor instead, mirroring the pop that happened at End.
	parent := openAncestor(nodeFromContext(ctx))
	if parent != nil {
		node.Parent = parent
		parent.Children = append(parent.Children, node)
	} else {
		tr, ok := p.traces[gid]
		if !ok {
			tr = &GoroutineTrace{GoroutineID: gid}
			p.traces[gid] = tr
		}
		tr.Roots = append(tr.Roots, node)
	}
	node.start = start
	p.mu.Unlock()

	return context.WithValue(ctx, nodeCtxKey{}, node)
}

// End stops the node carried by ctx, records its stop snapshot and computes
// its self time. It is a no-op if ctx carries no node or the node was already
// stopped; misuse never panics.
func (p *Profiler) End(ctx context.Context) {
	node := nodeFromContext(ctx)
	if node == nil {
		return
	}
	stop := p.sampler.take()

	p.mu.Lock()
	defer p.mu.Unlock()
	if node.stopped {
		return
	}
	node.stop = stop
	node.stopped = true
	node.selfTime = node.TotalTime() - node.childrenTotal()
}

// CurrentNode returns the trace node carried by ctx, or nil. Read-only, for
// diagnostics and tests.
func (p *Profiler) CurrentNode(ctx context.Context) *TraceNode {
	return nodeFromContext(ctx)
}

func nodeFromContext(ctx context.Context) *TraceNode {
	if ctx == nil {
		return nil
	}
	if n, ok := ctx.Value(nodeCtxKey{}).(*TraceNode); ok {
		return n
	}
	return nil
}

// openAncestor walks up from n to the nearest node that is still open.
// Callers must hold the profiler lock.
func openAncestor(n *TraceNode) *TraceNode {
	for n != nil && n.stopped {
		n = n.Parent
	}
	return n
}

// Reset drops every recorded forest. Nodes still open keep recording into
// their detached trees; fresh roots after Reset start clean buckets.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.traces = make(map[uint64]*GoroutineTrace)
}

// Begin opens a node on the Default profiler.
func Begin(ctx context.Context, name string) context.Context {
	return Default().Begin(ctx, name)
}

// End stops the current node on the Default profiler.
func End(ctx context.Context) {
	Default().End(ctx)
}
