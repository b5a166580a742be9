package pprofexport_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/require"

	"github.com/callscope/callscope/profiler"
	"github.com/callscope/callscope/profiler/pprofexport"
)

func recordTree(t *testing.T) *profiler.Profiler {
	t.Helper()
	p := profiler.New()

	rootCtx := p.Begin(context.Background(), "tick")
	childCtx := p.Begin(rootCtx, "gather")
	p.End(childCtx)
	childCtx = p.Begin(rootCtx, "emit")
	grandCtx := p.Begin(childCtx, "encode")
	p.End(grandCtx)
	p.End(childCtx)
	time.Sleep(time.Millisecond)
	p.End(rootCtx)
	return p
}

func TestConvert(t *testing.T) {
	t.Parallel()
	p := recordTree(t)

	converter := pprofexport.New()
	pb := converter.Convert(p.Snapshot())

	// One sample per node, one interned function per distinct name.
	require.Len(t, pb.Sample, 4)
	require.Len(t, pb.Function, 4)
	require.Len(t, pb.Location, 4)
	require.Greater(t, pb.DurationNanos, int64(0))

	// The deepest sample carries the whole stack, leaf first.
	var encode *profile.Sample
	for _, sample := range pb.Sample {
		if sample.Location[0].Line[0].Function.Name == "encode" {
			encode = sample
		}
	}
	require.NotNil(t, encode)
	require.Len(t, encode.Location, 3)
	require.Equal(t, "emit", encode.Location[1].Line[0].Function.Name)
	require.Equal(t, "tick", encode.Location[2].Line[0].Function.Name)
}

func TestEncodeRoundTrips(t *testing.T) {
	t.Parallel()
	p := recordTree(t)

	converter := pprofexport.New()
	converter.Convert(p.Snapshot())
	data, err := converter.Encode()
	require.NoError(t, err)

	parsed, err := profile.ParseData(data)
	require.NoError(t, err)
	require.NoError(t, parsed.CheckValid())
	require.Equal(t, "cpu", parsed.SampleType[0].Type)
}
