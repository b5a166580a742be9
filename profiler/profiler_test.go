package profiler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/callscope/callscope/profiler"
)

func countNodes(threads []profiler.ThreadSnapshot) int {
	count := 0
	var walk func(profiler.NodeSnapshot)
	walk = func(n profiler.NodeSnapshot) {
		count++
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, ts := range threads {
		for _, root := range ts.Roots {
			walk(root)
		}
	}
	return count
}

func TestBalancedPairs(t *testing.T) {
	t.Parallel()
	p := profiler.New()
	ctx := context.Background()

	const begins = 10
	for i := 0; i < begins; i++ {
		nodeCtx := p.Begin(ctx, "A")
		p.End(nodeCtx)
	}

	threads := p.Snapshot()
	require.Equal(t, begins, countNodes(threads))
	for _, ts := range threads {
		for _, root := range ts.Roots {
			require.False(t, root.Open)
			require.GreaterOrEqual(t, root.TotalTime, time.Duration(0))
		}
	}
}

func TestNestedSelfTime(t *testing.T) {
	t.Parallel()
	p := profiler.New()

	rootCtx := p.Begin(context.Background(), "root")
	root := p.CurrentNode(rootCtx)

	childCtx := p.Begin(rootCtx, "child_one")
	time.Sleep(10 * time.Millisecond)
	p.End(childCtx)

	childCtx = p.Begin(rootCtx, "child_two")
	time.Sleep(10 * time.Millisecond)
	p.End(childCtx)

	p.End(rootCtx)

	require.Len(t, root.Children, 2)
	require.Equal(t, "child_one", root.Children[0].Name)
	require.Equal(t, "child_two", root.Children[1].Name)

	// Self time subtracts exactly the direct children's totals.
	expected := root.TotalTime() - root.Children[0].TotalTime() - root.Children[1].TotalTime()
	require.Equal(t, expected, root.SelfTime())
	require.Less(t, root.SelfTime(), root.TotalTime())
}

func TestLeafSelfTimeEqualsTotal(t *testing.T) {
	t.Parallel()
	p := profiler.New()

	ctx := p.Begin(context.Background(), "leaf")
	time.Sleep(5 * time.Millisecond)
	p.End(ctx)

	node := p.CurrentNode(ctx)
	require.Equal(t, node.TotalTime(), node.SelfTime())
}

func TestEndWithoutBeginIsNoOp(t *testing.T) {
	t.Parallel()
	p := profiler.New()

	require.NotPanics(t, func() {
		p.End(context.Background())
		p.End(nil)
	})
	require.Empty(t, p.Snapshot())
}

func TestDoubleEndIsNoOp(t *testing.T) {
	t.Parallel()
	p := profiler.New()

	ctx := p.Begin(context.Background(), "once")
	p.End(ctx)
	node := p.CurrentNode(ctx)
	total := node.TotalTime()

	time.Sleep(5 * time.Millisecond)
	p.End(ctx)
	require.Equal(t, total, node.TotalTime())
}

func TestBeginOnEndedContextAttachesToParent(t *testing.T) {
	t.Parallel()
	p := profiler.New()

	rootCtx := p.Begin(context.Background(), "root")
	childCtx := p.Begin(rootCtx, "child")
	p.End(childCtx)

	// The child context is stale now; a new node must become the root's
	// child, not the stopped child's.
	siblingCtx := p.Begin(childCtx, "sibling")
	p.End(siblingCtx)
	p.End(rootCtx)

	root := p.CurrentNode(rootCtx)
	require.Len(t, root.Children, 2)
	require.Equal(t, "sibling", root.Children[1].Name)
	require.Empty(t, root.Children[0].Children)
}

func TestFlowCrossesGoroutines(t *testing.T) {
	t.Parallel()
	p := profiler.New()

	parentCtx := p.Begin(context.Background(), "parent")

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Resumed on a different goroutine, same logical flow.
		resumedCtx := p.Begin(parentCtx, "resumed")
		time.Sleep(5 * time.Millisecond)
		p.End(resumedCtx)
	}()
	<-done
	p.End(parentCtx)

	threads := p.Snapshot()
	// The resumed node nests under the parent; no extra bucket was opened.
	require.Len(t, threads, 1)
	require.Len(t, threads[0].Roots, 1)
	root := threads[0].Roots[0]
	require.Equal(t, "parent", root.Name)
	require.Len(t, root.Children, 1)
	require.Equal(t, "resumed", root.Children[0].Name)
}

func TestFreshRootsBucketByGoroutine(t *testing.T) {
	t.Parallel()
	p := profiler.New()

	ctx := p.Begin(context.Background(), "here")
	p.End(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		other := p.Begin(context.Background(), "there")
		p.End(other)
	}()
	<-done

	threads := p.Snapshot()
	require.Len(t, threads, 2)
	require.NotEqual(t, threads[0].GoroutineID, threads[1].GoroutineID)
}

func TestConcurrentBeginEnd(t *testing.T) {
	t.Parallel()
	p := profiler.New()

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				outer := p.Begin(context.Background(), "outer")
				inner := p.Begin(outer, "inner")
				p.End(inner)
				p.End(outer)
			}
		}()
	}
	wg.Wait()

	threads := p.Snapshot()
	require.Equal(t, workers*perWorker*2, countNodes(threads))
	require.Len(t, threads, workers)
}

func TestReset(t *testing.T) {
	t.Parallel()
	p := profiler.New()

	ctx := p.Begin(context.Background(), "gone")
	p.End(ctx)
	require.NotEmpty(t, p.Snapshot())

	p.Reset()
	require.Empty(t, p.Snapshot())
}

func TestDefaultIsSingleton(t *testing.T) {
	t.Parallel()
	require.Same(t, profiler.Default(), profiler.Default())
}
