package profiler

import (
	"time"
)

// TraceNode records a single traced call. It is open from creation until the
// profiler stops it, and owned by its parent (or by the goroutine bucket if it
// is a root).
type TraceNode struct {
	Name string

	// Parent is nil for root nodes. Children are in call order.
	Parent   *TraceNode
	Children []*TraceNode

	start    sample
	stop     sample
	stopped  bool
	selfTime time.Duration
}

// TotalTime is the wall-clock duration of the call. For a node that is still
// open it returns the elapsed time so far.
func (n *TraceNode) TotalTime() time.Duration {
	if !n.stopped {
		return time.Since(n.start.wall)
	}
	return n.stop.wall.Sub(n.start.wall)
}

// SelfTime is TotalTime minus the total time of all stopped direct children.
// Idle time between children is attributed to the parent, and coarse clocks
// can make the result slightly negative. Both are reported as-is.
func (n *TraceNode) SelfTime() time.Duration {
	if n.stopped {
		return n.selfTime
	}
	return n.TotalTime() - n.childrenTotal()
}

func (n *TraceNode) childrenTotal() time.Duration {
	var sum time.Duration
	for _, c := range n.Children {
		if c.stopped {
			sum += c.TotalTime()
		}
	}
	return sum
}

// CPUTime is the process CPU time consumed while the node was open. Zero until
// the node is stopped.
func (n *TraceNode) CPUTime() time.Duration {
	if !n.stopped {
		return 0
	}
	return n.stop.cpu - n.start.cpu
}

// MemoryDelta is the change in live heap bytes over the node's lifetime. It
// can be negative if a collection ran while the node was open.
func (n *TraceNode) MemoryDelta() int64 {
	if !n.stopped {
		return 0
	}
	return int64(n.stop.heapAlloc) - int64(n.start.heapAlloc)
}

// GCCollections is the number of GC cycles that completed while the node was
// open.
func (n *TraceNode) GCCollections() uint32 {
	if !n.stopped {
		return 0
	}
	return n.stop.numGC - n.start.numGC
}

// Stopped reports whether End has been called for this node.
func (n *TraceNode) Stopped() bool {
	return n.stopped
}
