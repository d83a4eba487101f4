package metrics

import (
	"sync"
	"sync/atomic"
)

// Operation names recorded by the access evaluator and the reconciler.
const (
	OpCheckTerm    = "check_term"
	OpCheckItem    = "check_item"
	OpFilterItems  = "filter_items"
	OpComputeDelta = "compute_delta"
	OpApplyDelta   = "apply_delta"
)

// Recorder receives operation outcomes from the access services.
// Both Collector and PrometheusExporter implement it.
type Recorder interface {
	RecordRequest(op string)
	RecordDenial(op string)
	RecordError(op string)
	RecordDuration(op string, durationSeconds float64)
}

// Collector collects and aggregates metrics for the application.
type Collector struct {
	requests sync.Map // map[string]*uint64 - operation -> count
	denials  sync.Map // map[string]*uint64 - operation -> denied decision count
	errors   sync.Map // map[string]*uint64 - operation -> error count
	duration sync.Map // map[string]*durationValue - operation -> total duration in seconds
}

// durationValue holds duration with mutex for thread-safe updates.
type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// OperationMetrics holds aggregated per-operation metrics.
type OperationMetrics struct {
	RequestCounts        map[string]uint64
	DenialCounts         map[string]uint64
	ErrorCounts          map[string]uint64
	TotalDurationSeconds map[string]float64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordRequest records one evaluated operation.
func (c *Collector) RecordRequest(op string) {
	counter := c.getOrCreateCounter(&c.requests, op)
	atomic.AddUint64(counter, 1)
}

// RecordDenial records an operation that resulted in a denied decision.
func (c *Collector) RecordDenial(op string) {
	counter := c.getOrCreateCounter(&c.denials, op)
	atomic.AddUint64(counter, 1)
}

// RecordError records an operation that failed.
func (c *Collector) RecordError(op string) {
	counter := c.getOrCreateCounter(&c.errors, op)
	atomic.AddUint64(counter, 1)
}

// RecordDuration records the duration of an operation in seconds.
func (c *Collector) RecordDuration(op string, durationSeconds float64) {
	val, _ := c.duration.LoadOrStore(op, &durationValue{})
	dv := val.(*durationValue)

	dv.mu.Lock()
	dv.totalSeconds += durationSeconds
	dv.mu.Unlock()
}

// GetOperationMetrics returns a snapshot of all recorded metrics.
func (c *Collector) GetOperationMetrics() *OperationMetrics {
	result := &OperationMetrics{
		RequestCounts:        make(map[string]uint64),
		DenialCounts:         make(map[string]uint64),
		ErrorCounts:          make(map[string]uint64),
		TotalDurationSeconds: make(map[string]float64),
	}

	c.requests.Range(func(key, value interface{}) bool {
		result.RequestCounts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.denials.Range(func(key, value interface{}) bool {
		result.DenialCounts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.errors.Range(func(key, value interface{}) bool {
		result.ErrorCounts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.duration.Range(func(key, value interface{}) bool {
		dv := value.(*durationValue)
		dv.mu.Lock()
		result.TotalDurationSeconds[key.(string)] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})

	return result
}

// getOrCreateCounter gets or creates a counter for the given key.
func (c *Collector) getOrCreateCounter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}
