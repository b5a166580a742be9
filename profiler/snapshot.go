package profiler

import (
	"sort"
	"time"
)

// NodeSnapshot is a detached copy of one trace node, safe to use without the
// profiler lock. Exporters consume these instead of live nodes.
type NodeSnapshot struct {
	Name          string
	TotalTime     time.Duration
	SelfTime      time.Duration
	CPUTime       time.Duration
	MemoryDelta   int64
	GCCollections uint32
	Open          bool
	Children      []NodeSnapshot
}

// ThreadSnapshot is a detached copy of one goroutine's forest.
type ThreadSnapshot struct {
	GoroutineID uint64
	Roots       []NodeSnapshot
}

// Snapshot copies every goroutine forest under the lock, ordered by goroutine
// ID with roots and children in call order.
func (p *Profiler) Snapshot() []ThreadSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ThreadSnapshot, 0, len(p.traces))
	for _, tr := range p.traces {
		ts := ThreadSnapshot{
			GoroutineID: tr.GoroutineID,
			Roots:       make([]NodeSnapshot, 0, len(tr.Roots)),
		}
		for _, root := range tr.Roots {
			ts.Roots = append(ts.Roots, snapshotNode(root))
		}
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GoroutineID < out[j].GoroutineID
	})
	return out
}

func snapshotNode(n *TraceNode) NodeSnapshot {
	ns := NodeSnapshot{
		Name:          n.Name,
		TotalTime:     n.TotalTime(),
		SelfTime:      n.SelfTime(),
		CPUTime:       n.CPUTime(),
		MemoryDelta:   n.MemoryDelta(),
		GCCollections: n.GCCollections(),
		Open:          !n.stopped,
		Children:      make([]NodeSnapshot, 0, len(n.Children)),
	}
	for _, c := range n.Children {
		ns.Children = append(ns.Children, snapshotNode(c))
	}
	return ns
}
