// Package pprofexport turns a recorded call forest into a pprof profile.
package pprofexport

import (
	"bytes"
	"time"

	"github.com/google/pprof/profile"

	"github.com/callscope/callscope/profiler"
)

type Converter struct {
	fid       uint64
	functions map[string]*profile.Function
	locations map[string]*profile.Location

	protobuf *profile.Profile
}

func New() *Converter {
	return &Converter{
		functions: make(map[string]*profile.Function),
		locations: make(map[string]*profile.Location),
		protobuf: &profile.Profile{
			SampleType: []*profile.ValueType{
				{Type: "cpu", Unit: "nanoseconds"},
				{Type: "samples", Unit: "count"},
			},
			DefaultSampleType: "cpu",
			Sample:            []*profile.Sample{},
			Mapping:           []*profile.Mapping{},
			Location:          []*profile.Location{},
			Function:          []*profile.Function{},
			Comments:          []string{},
			TimeNanos:         time.Now().UnixNano(),
		},
	}
}

// Convert adds every root of every goroutine forest as a stack of samples.
// Each node contributes its self time, so the flame graph's cumulative values
// reconstruct the totals.
func (c *Converter) Convert(threads []profiler.ThreadSnapshot) *profile.Profile {
	var longest time.Duration
	for _, ts := range threads {
		for _, root := range ts.Roots {
			c.recurseNodes(root, nil)
			if root.TotalTime > longest {
				longest = root.TotalTime
			}
		}
	}
	if longest.Nanoseconds() > c.protobuf.DurationNanos {
		c.protobuf.DurationNanos = longest.Nanoseconds()
	}
	return c.protobuf
}

func (c *Converter) Encode() ([]byte, error) {
	var buf bytes.Buffer
	err := c.protobuf.Write(&buf)
	return buf.Bytes(), err
}

func (c *Converter) recurseNodes(node profiler.NodeSnapshot, sample *profile.Sample) {
	_, loc := c.function(node.Name)
	// If no sample exists, bootstrap the first sample.
	if sample == nil {
		sample = &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{node.SelfTime.Nanoseconds(), 1},
		}
		c.protobuf.Sample = append(c.protobuf.Sample, sample)
	}

	for _, child := range node.Children {
		// Prepend the child's location, as location[0] is the leaf node.
		_, childLoc := c.function(child.Name)
		childSample := &profile.Sample{
			Location: prepend(childLoc, sample.Location),
			Value:    []int64{child.SelfTime.Nanoseconds(), 1},
		}
		c.protobuf.Sample = append(c.protobuf.Sample, childSample)
		c.recurseNodes(child, childSample)
	}
}

func (c *Converter) function(name string) (*profile.Function, *profile.Location) {
	if fn, found := c.functions[name]; found {
		return fn, c.locations[name]
	}

	c.fid++
	fn := &profile.Function{
		ID:         c.fid,
		Name:       name,
		SystemName: name,
	}

	c.functions[name] = fn
	c.protobuf.Function = append(c.protobuf.Function, fn)

	loc := &profile.Location{
		ID: c.fid,
		Line: []profile.Line{
			{Function: fn},
		},
	}
	c.locations[name] = loc
	c.protobuf.Location = append(c.protobuf.Location, loc)
	return fn, loc
}

func prepend[T any](x T, s []T) []T {
	return append([]T{x}, s...)
}
