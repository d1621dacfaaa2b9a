// Package metrics keeps process-local counters and gauges and renders them
// in the Prometheus text format.
package metrics

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

type MetricType string

const (
	Counter MetricType = "counter"
	Gauge   MetricType = "gauge"
)

// Names recorded by the service.
const (
	SessionsCreated   = "wizard_sessions_created_total"
	SessionsLive      = "wizard_sessions_live"
	FieldUpdates      = "wizard_field_updates_total"
	ValidationErrors  = "wizard_validation_errors_total"
	Navigations       = "wizard_navigations_total"
	Predictions       = "wizard_predictions_total"
	PredictionErrors  = "wizard_prediction_errors_total"
	PredictionSeconds = "wizard_prediction_seconds_total"
)

var help = map[string]string{
	SessionsCreated:   "Wizard sessions created",
	SessionsLive:      "Wizard sessions currently held in memory",
	FieldUpdates:      "Accepted field updates",
	ValidationErrors:  "Rejected field updates",
	Navigations:       "Page moves by direction",
	Predictions:       "Successful predictions by class",
	PredictionErrors:  "Failed predictions by error kind",
	PredictionSeconds: "Time spent in successful predictions",
}

type series struct {
	labels string
	value  float64
}

type family struct {
	kind   MetricType
	series map[string]*series
}

type Collector struct {
	mu        sync.RWMutex
	families  map[string]*family
	startTime time.Time
}

func NewCollector() *Collector {
	return &Collector{
		families:  make(map[string]*family),
		startTime: time.Now(),
	}
}

func (c *Collector) IncrCounter(name string, value float64, labels map[string]string) {
	c.record(name, Counter, labels, func(s *series) { s.value += value })
}

func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	c.record(name, Gauge, labels, func(s *series) { s.value = value })
}

func (c *Collector) record(name string, kind MetricType, labels map[string]string, update func(*series)) {
	if c == nil {
		return
	}
	key := formatLabels(labels)

	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.families[name]
	if !ok {
		f = &family{kind: kind, series: make(map[string]*series)}
		c.families[name] = f
	}
	s, ok := f.series[key]
	if !ok {
		s = &series{labels: key}
		f.series[key] = s
	}
	update(s)
}

// Value returns the current value of one series, or 0 if it was never
// recorded.
func (c *Collector) Value(name string, labels map[string]string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.families[name]
	if !ok {
		return 0
	}
	if s, ok := f.series[formatLabels(labels)]; ok {
		return s.value
	}
	return 0
}

// ExportPrometheus renders every family sorted by name, followed by the
// runtime gauges.
func (c *Collector) ExportPrometheus() string {
	c.mu.RLock()
	names := make([]string, 0, len(c.families))
	for name := range c.families {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		f := c.families[name]
		text := help[name]
		if text == "" {
			text = fmt.Sprintf("Metric %s", name)
		}
		fmt.Fprintf(&b, "# HELP %s %s\n", name, text)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, f.kind)

		keys := make([]string, 0, len(f.series))
		for key := range f.series {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "%s%s %g\n", name, key, f.series[key].value)
		}
	}
	c.mu.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	writeGauge(&b, "process_uptime_seconds", "Seconds since start", c.Uptime().Seconds())
	writeGauge(&b, "go_goroutines", "Number of goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "go_memstats_heap_alloc_bytes", "Heap bytes allocated", float64(m.HeapAlloc))
	return b.String()
}

func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// SystemStats is the short runtime summary shown on the health endpoint.
func (c *Collector) SystemStats() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]any{
		"uptime":     c.Uptime().Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": m.HeapAlloc,
		"gc_count":   m.NumGC,
	}
}

func writeGauge(b *strings.Builder, name, text string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", name, text, name, name, value)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(pairs, ",") + "}"
}
