// Package promexport exposes a recorded call forest as prometheus metrics.
package promexport

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/callscope/callscope/profiler"
)

var _ prometheus.Collector = (*Collector)(nil)

// callStats aggregates every node sharing a name across all goroutine forests.
type callStats struct {
	calls         float64
	totalSeconds  float64
	selfSeconds   float64
	cpuSeconds    float64
	gcCollections float64
}

type Collector struct {
	logger      zerolog.Logger
	namespace   string
	constLabels prometheus.Labels
	profiler    *profiler.Profiler

	lastUpdated prometheus.Gauge
	stats       atomic.Pointer[map[string]callStats]
}

// New builds a collector over p. Call Update to refresh the exposed snapshot;
// Collect serves whatever Update last captured.
func New(logger zerolog.Logger, p *profiler.Profiler, namespace string, labels prometheus.Labels) *Collector {
	return &Collector{
		logger:      logger,
		namespace:   namespace,
		constLabels: labels,
		profiler:    p,
		lastUpdated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "profiler",
			Name:        "last_updated_unix_s",
			Help:        "Timestamp in unix seconds of the last snapshot.",
			ConstLabels: labels,
		}),
	}
}

// Update captures a fresh snapshot from the profiler and aggregates it per
// call name. Returns the number of distinct call names seen.
func (c *Collector) Update() int {
	stats := make(map[string]callStats)
	for _, ts := range c.profiler.Snapshot() {
		for _, root := range ts.Roots {
			aggregate(stats, root)
		}
	}

	c.lastUpdated.Set(float64(time.Now().Unix()))
	c.stats.Store(&stats)
	return len(stats)
}

func aggregate(stats map[string]callStats, n profiler.NodeSnapshot) {
	s := stats[n.Name]
	s.calls++
	s.totalSeconds += n.TotalTime.Seconds()
	s.selfSeconds += n.SelfTime.Seconds()
	s.cpuSeconds += n.CPUTime.Seconds()
	s.gcCollections += float64(n.GCCollections)
	stats[n.Name] = s
	for _, child := range n.Children {
		aggregate(stats, child)
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, descs)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.stats.Load()
	if stats == nil {
		return
	}

	for name, s := range *stats {
		for metric, value := range map[string]float64{
			"calls":               s.calls,
			"call_total_seconds":  s.totalSeconds,
			"call_self_seconds":   s.selfSeconds,
			"call_cpu_seconds":    s.cpuSeconds,
			"call_gc_collections": s.gcCollections,
		} {
			pm, err := prometheus.NewConstMetric(
				prometheus.NewDesc(
					fmt.Sprintf("%s_%s", c.namespace, metric),
					"Aggregated from the recorded call tree.",
					[]string{"name"},
					c.constLabels,
				),
				prometheus.GaugeValue,
				value,
				name,
			)
			if err != nil {
				c.logger.Warn().
					Str("metric_name", metric).
					Str("call", name).
					Err(err).
					Msg("failed to create metric")
				continue
			}
			ch <- pm
		}
	}

	ch <- c.lastUpdated
}
