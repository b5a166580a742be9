package profiler

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// sample is a point-in-time resource snapshot taken at begin and end.
type sample struct {
	wall      time.Time
	cpu       time.Duration
	heapAlloc uint64
	numGC     uint32
}

type sampler struct {
	proc *process.Process
}

func newSampler() *sampler {
	// If the process handle cannot be resolved, CPU deltas read as zero and
	// everything else still works.
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	return &sampler{proc: proc}
}

func (s *sampler) take() sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	smp := sample{
		wall:      time.Now(),
		heapAlloc: ms.HeapAlloc,
		numGC:     ms.NumGC,
	}
	if s.proc != nil {
		if times, err := s.proc.Times(); err == nil {
			smp.cpu = time.Duration((times.User + times.System) * float64(time.Second))
		}
	}
	return smp
}
