package profiler

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// WriteReport renders every goroutine's forest depth-first: a "Thread ID"
// header per goroutine, one line per node indented two spaces per depth, and
// a blank line between forests.
func (p *Profiler) WriteReport(w io.Writer) error {
	for i, ts := range p.Snapshot() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "Thread ID: %d\n", ts.GoroutineID); err != nil {
			return err
		}
		for _, root := range ts.Roots {
			if err := writeNode(w, root, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeNode(w io.Writer, n NodeSnapshot, depth int) error {
	_, err := fmt.Fprintf(w, "%s%s: Total Time = %.2f ms, Self Time = %.2f ms, CPU Time = %.2f ms, Memory Allocated = %d KB, GC Collections = %d\n",
		strings.Repeat("  ", depth),
		n.Name,
		millis(n.TotalTime),
		millis(n.SelfTime),
		millis(n.CPUTime),
		n.MemoryDelta/1024,
		n.GCCollections,
	)
	if err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := writeNode(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// PrintResults writes the report to stdout.
func (p *Profiler) PrintResults() {
	_ = p.WriteReport(os.Stdout)
}

// PrintResults writes the Default profiler's report to stdout.
func PrintResults() {
	Default().PrintResults()
}
