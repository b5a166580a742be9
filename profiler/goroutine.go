package profiler

// GoroutineTrace holds the root-level calls first observed on one goroutine.
// A logical flow that began elsewhere and was handed over via its context does
// not open a new bucket here; only fresh roots do.
type GoroutineTrace struct {
	GoroutineID uint64
	Roots       []*TraceNode
}
