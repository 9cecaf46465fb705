// Package profiler keeps rolling timing and value statistics for the
// stages of a frame loop.
package profiler

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"
)

// DefaultMaxSamples is the rolling window used when none is given.
const DefaultMaxSamples = 600

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	name string
	// Rolling window; totalTime is the sum of what it holds.
	durations ringbuffer.RingP[time.Duration]
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// MetricTracker tracks statistics for a custom metric.
type MetricTracker struct {
	name   string
	values ringbuffer.RingP[float64]
	sum    float64
	min    float64
	max    float64
	count  int64
}

// OperationStats is a snapshot of one timed operation. Mean covers the
// rolling window; Min, Max and Count cover the whole run.
type OperationStats struct {
	Name  string
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	Last  time.Duration
}

func (s OperationStats) String() string {
	return fmt.Sprintf("%s: avg=%v, min=%v, max=%v, count=%d",
		s.Name, s.Mean.Truncate(time.Microsecond), s.Min.Truncate(time.Microsecond),
		s.Max.Truncate(time.Microsecond), s.Count)
}

// MetricStats is a snapshot of one custom metric.
type MetricStats struct {
	Name  string
	Count int64
	Min   float64
	Max   float64
	Mean  float64
	Last  float64
}

func (s MetricStats) String() string {
	return fmt.Sprintf("%s: avg=%.2f, min=%.2f, max=%.2f, samples=%d", s.Name, s.Mean, s.Min, s.Max, s.Count)
}

// Profiler records operation timings and custom metrics. It is safe for
// concurrent use.
type Profiler struct {
	mu         sync.Mutex
	maxSamples int
	startTime  time.Time
	operations map[string]*TimeTracker
	metrics    map[string]*MetricTracker
}

// New creates a profiler that averages over the last maxSamples values.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		maxSamples: maxSamples,
		startTime:  time.Now(),
		operations: make(map[string]*TimeTracker),
		metrics:    make(map[string]*MetricTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.RecordOperation(name, time.Since(start))
	}
}

// RecordOperation records the duration of a completed operation.
func (p *Profiler) RecordOperation(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operations[name]
	if !exists {
		tracker = &TimeTracker{
			name:      name,
			durations: ringbuffer.NewRingP[time.Duration](p.maxSamples),
			minTime:   duration,
			maxTime:   duration,
		}
		p.operations[name] = tracker
	}

	if tracker.durations.Len() == p.maxSamples {
		// The oldest sample is about to be overwritten
		tracker.totalTime -= tracker.durations.Peek(0)
	}
	tracker.durations.Add(duration)
	tracker.totalTime += duration
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// RecordMetric records a custom metric value.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.metrics[name]
	if !exists {
		tracker = &MetricTracker{
			name:   name,
			values: ringbuffer.NewRingP[float64](p.maxSamples),
			min:    value,
			max:    value,
		}
		p.metrics[name] = tracker
	}

	if tracker.values.Len() == p.maxSamples {
		tracker.sum -= tracker.values.Peek(0)
	}
	tracker.values.Add(value)
	tracker.sum += value
	tracker.count++

	if value < tracker.min {
		tracker.min = value
	}
	if value > tracker.max {
		tracker.max = value
	}
}

func (t *TimeTracker) stats() OperationStats {
	s := OperationStats{
		Name:  t.name,
		Count: t.count,
		Min:   t.minTime,
		Max:   t.maxTime,
	}
	if n := t.durations.Len(); n > 0 {
		s.Mean = t.totalTime / time.Duration(n)
		s.Last = t.durations.Peek(n - 1)
	}
	return s
}

func (t *MetricTracker) stats() MetricStats {
	s := MetricStats{
		Name:  t.name,
		Count: t.count,
		Min:   t.min,
		Max:   t.max,
	}
	if n := t.values.Len(); n > 0 {
		s.Mean = t.sum / float64(n)
		s.Last = t.values.Peek(n - 1)
	}
	return s
}

// Operation returns the statistics of one operation.
func (p *Profiler) Operation(name string) (OperationStats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracker, ok := p.operations[name]
	if !ok {
		return OperationStats{}, false
	}
	return tracker.stats(), true
}

// Metric returns the statistics of one custom metric.
func (p *Profiler) Metric(name string) (MetricStats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracker, ok := p.metrics[name]
	if !ok {
		return MetricStats{}, false
	}
	return tracker.stats(), true
}

// Operations returns every operation sorted by name.
func (p *Profiler) Operations() []OperationStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]OperationStats, 0, len(p.operations))
	for _, tracker := range p.operations {
		out = append(out, tracker.stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Metrics returns every custom metric sorted by name.
func (p *Profiler) Metrics() []MetricStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]MetricStats, 0, len(p.metrics))
	for _, tracker := range p.metrics {
		out = append(out, tracker.stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report returns a multi-line status report.
func (p *Profiler) Report() string {
	p.mu.Lock()
	uptime := time.Since(p.startTime)
	p.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Uptime: %v\n", uptime.Truncate(time.Millisecond))
	if ops := p.Operations(); len(ops) > 0 {
		b.WriteString("Operation timings:\n")
		for _, s := range ops {
			fmt.Fprintf(&b, "  %v\n", s)
		}
	}
	if metrics := p.Metrics(); len(metrics) > 0 {
		b.WriteString("Metrics:\n")
		for _, s := range metrics {
			fmt.Fprintf(&b, "  %v\n", s)
		}
	}
	return b.String()
}

// LogReport writes one line per operation and metric to log.
func (p *Profiler) LogReport(log logs.Log) {
	for _, s := range p.Operations() {
		log.Infof("%v", s)
	}
	for _, s := range p.Metrics() {
		log.Infof("%v", s)
	}
}

// Reset drops all statistics.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTime = time.Now()
	p.operations = make(map[string]*TimeTracker)
	p.metrics = make(map[string]*MetricTracker)
}
