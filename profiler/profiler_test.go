package profiler

import (
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_RecordOperation(t *testing.T) {
	p := New(3)
	for _, ms := range []int{4, 2, 6, 8} {
		p.RecordOperation("decode", time.Duration(ms)*time.Millisecond)
	}

	s, ok := p.Operation("decode")
	require.True(t, ok)
	assert.Equal(t, int64(4), s.Count)
	assert.Equal(t, 2*time.Millisecond, s.Min)
	assert.Equal(t, 8*time.Millisecond, s.Max)
	// The window only holds the last three samples.
	assert.Equal(t, 16*time.Millisecond/3, s.Mean)
	assert.Equal(t, 8*time.Millisecond, s.Last)

	_, ok = p.Operation("track")
	assert.False(t, ok)
}

func TestProfiler_StartOperation(t *testing.T) {
	p := New(0)
	stop := p.StartOperation("suppress")
	time.Sleep(time.Millisecond)
	stop()

	s, ok := p.Operation("suppress")
	require.True(t, ok)
	assert.Equal(t, int64(1), s.Count)
	assert.GreaterOrEqual(t, s.Min, time.Millisecond)
}

func TestProfiler_RecordMetric(t *testing.T) {
	p := New(2)
	p.RecordMetric("objects", 3)
	p.RecordMetric("objects", 1)
	p.RecordMetric("objects", 5)

	s, ok := p.Metric("objects")
	require.True(t, ok)
	assert.Equal(t, int64(3), s.Count)
	assert.Equal(t, float64(1), s.Min)
	assert.Equal(t, float64(5), s.Max)
	assert.Equal(t, float64(3), s.Mean)
	assert.Equal(t, float64(5), s.Last)
}

func TestProfiler_Report(t *testing.T) {
	p := New(10)
	p.RecordOperation("track", time.Millisecond)
	p.RecordOperation("decode", 2*time.Millisecond)
	p.RecordMetric("fps", 30)

	ops := p.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "decode", ops[0].Name)
	assert.Equal(t, "track", ops[1].Name)

	report := p.Report()
	assert.Contains(t, report, "decode: avg=2ms, min=2ms, max=2ms, count=1")
	assert.Contains(t, report, "fps: avg=30.00")

	p.LogReport(logs.NewTestingLog(t))

	p.Reset()
	assert.Empty(t, p.Operations())
	assert.Empty(t, p.Metrics())
}
