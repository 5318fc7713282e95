// Package metrics is a small Prometheus text-exposition registry
// covering exactly the series this process emits. Every Gauge / Counter
// / CounterVec method is nil-receiver safe so components built without a
// registry (tests, ad-hoc tooling) need no guards at call sites.
package metrics

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Gauge is a single named, unlabeled gauge series.
type Gauge struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewGauge(name, help string) *Gauge { return &Gauge{name: name, help: help} }

func (g *Gauge) Set(v float64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.val = v
	g.mu.Unlock()
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.val
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.name, g.help, g.name); err != nil {
		return err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, err := fmt.Fprintf(w, "%s %f\n", g.name, g.val)
	return err
}

// CounterVec is a named counter series labeled by a fixed set of label
// names.
type CounterVec struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labelNames: labels, values: map[string]float64{}}
}

func (c *CounterVec) Inc(values ...string) {
	if c == nil {
		return
	}
	lbl := labelString(c.labelNames, values)
	c.mu.Lock()
	c.values[lbl]++
	c.mu.Unlock()
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for lbl, v := range c.values {
		if _, err := fmt.Fprintf(w, "%s%s %f\n", c.name, lbl, v); err != nil {
			return err
		}
	}
	return nil
}

// Counter is a single named, unlabeled counter series.
type Counter struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewCounter(name, help string) *Counter { return &Counter{name: name, help: help} }

func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.val++
	c.mu.Unlock()
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, err := fmt.Fprintf(w, "%s %f\n", c.name, c.val)
	return err
}

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("{")
	for i, name := range names {
		if i > 0 {
			b.WriteString(",")
		}
		val := "unknown"
		if i < len(values) {
			val = escapeLabel(values[i])
		}
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(val)
		b.WriteString(`"`)
	}
	b.WriteString("}")
	return b.String()
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}

// Registry is the batchcore process's fixed set of operator-facing
// series, exposed through the admin HTTP surface's /metrics endpoint.
type Registry struct {
	LockQueueDepth   *Gauge
	TriggersTotal    *CounterVec
	ExecutionsTotal  *CounterVec
	StepCompleted    *Counter
	AggregationFlush *Counter
}

// New constructs the fixed registry of series this repo emits.
func New() *Registry {
	return &Registry{
		LockQueueDepth:   NewGauge("batchcore_lock_queue_depth", "Current metadata lock wait-queue depth"),
		TriggersTotal:    NewCounterVec("batchcore_triggers_total", "Trigger requests by result", []string{"result"}),
		ExecutionsTotal:  NewCounterVec("batchcore_executions_total", "Terminal executions by status", []string{"status"}),
		StepCompleted:    NewCounter("batchcore_step_completed_total", "Step executions that reached COMPLETED"),
		AggregationFlush: NewCounter("batchcore_aggregation_flush_total", "Streaming aggregator flushes performed"),
	}
}

// WritePrometheus renders every series in Prometheus text exposition
// format.
func (r *Registry) WritePrometheus(w io.Writer) error {
	writers := []interface{ WritePrometheus(io.Writer) error }{
		r.LockQueueDepth, r.TriggersTotal, r.ExecutionsTotal, r.StepCompleted, r.AggregationFlush,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}
