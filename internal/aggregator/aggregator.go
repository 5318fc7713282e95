// Package aggregator implements the streaming aggregation engine: it
// reads a large record stream, maintains per-group in-memory buffers, and
// flushes to the aggregation store once a configured record threshold is
// crossed, so a run of any size can be reduced in bounded memory.
package aggregator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/aggstore"
	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/metrics"
	"github.com/brightloop/batchcore/internal/platform/logger"
)

// RecordSource is a lazy sequence of records: Next returns (record, true,
// nil) for a parseable record, (_, false, nil) at end of input, or
// (_, false, err) when a record fails to parse. A parse failure still
// counts toward the flush-cadence counter but is not buffered.
type RecordSource interface {
	Next() (domain.Record, bool, error)
}

// Stats is the aggregate() return value: per-aggregation-type distinct
// group counts plus total records processed.
type Stats struct {
	RecordsProcessed int64
	ParseErrors      int64
	GroupsByType     map[domain.AggregationType]int
	FlushCount       int64
}

type groupBuffer struct {
	count       int64
	totalSalary float64
	totalHours  float64
	totalBonus  float64
	minSalary   float64
	maxSalary   float64
	seen        bool
}

func (b *groupBuffer) observe(r domain.Record) {
	if !b.seen {
		b.minSalary = r.Salary
		b.maxSalary = r.Salary
		b.seen = true
	} else {
		if r.Salary < b.minSalary {
			b.minSalary = r.Salary
		}
		if r.Salary > b.maxSalary {
			b.maxSalary = r.Salary
		}
	}
	b.count++
	b.totalSalary += r.Salary
	b.totalHours += r.HoursWorked
	b.totalBonus += r.Bonus
}

// Engine runs aggregate() against a configured AggregationStore.
type Engine struct {
	store   aggstore.AggregationStore
	log     *logger.Logger
	metrics *metrics.Registry
}

// NewEngine constructs an Engine. metricsReg may be nil, in which case a
// private registry absorbs flush-count increments.
func NewEngine(store aggstore.AggregationStore, baseLog *logger.Logger, metricsReg *metrics.Registry) *Engine {
	if metricsReg == nil {
		metricsReg = metrics.New()
	}
	return &Engine{store: store, log: baseLog.With("component", "StreamingAggregator"), metrics: metricsReg}
}

// Aggregate reduces input into per-group aggregates, flushing to the
// store every flushSize records and returning the resulting group counts.
//
// The flush trigger is an explicit recordsSinceFlush counter incremented
// once per input record — parseable or not — and reset to zero
// immediately after each flush. It is never derived as
// `recordsParsed % flushSize`; a modulo-based trigger would let a run of
// parse errors quietly desynchronize flush cadence from the configured
// threshold, since parse errors don't get counted the same way records
// parsed so far would be.
func (e *Engine) Aggregate(ctx context.Context, execID uuid.UUID, input RecordSource, aggregationDepth, flushSize int) (Stats, error) {
	if flushSize <= 0 {
		return Stats{}, fmt.Errorf("aggregator: flushSize must be positive")
	}
	types := domain.AggregationTypesForDepth(aggregationDepth)

	buffers := make(map[domain.AggregationType]map[string]*groupBuffer, len(types))
	for _, t := range types {
		buffers[t] = make(map[string]*groupBuffer)
	}

	stats := Stats{GroupsByType: make(map[domain.AggregationType]int, len(types))}
	recordsSinceFlush := 0

	flush := func() error {
		if recordsSinceFlush == 0 {
			return nil
		}
		deltas := make([]domain.AggregationDelta, 0)
		for _, t := range types {
			for key, buf := range buffers[t] {
				if !buf.seen {
					continue
				}
				deltas = append(deltas, domain.AggregationDelta{
					ExecutionID:     execID,
					AggregationType: t,
					GroupKey:        key,
					Count:           buf.count,
					TotalSalary:     buf.totalSalary,
					TotalHours:      buf.totalHours,
					TotalBonus:      buf.totalBonus,
					MinSalary:       buf.minSalary,
					MaxSalary:       buf.maxSalary,
				})
			}
		}
		if len(deltas) > 0 {
			if err := e.store.UpsertBatch(ctx, deltas); err != nil {
				return fmt.Errorf("aggregator: flush: %w", err)
			}
		}
		for _, t := range types {
			buffers[t] = make(map[string]*groupBuffer)
		}
		recordsSinceFlush = 0
		stats.FlushCount++
		e.metrics.AggregationFlush.Inc()
		return nil
	}

	for {
		rec, ok, err := input.Next()
		if err != nil {
			stats.ParseErrors++
			stats.RecordsProcessed++
			recordsSinceFlush++
			if recordsSinceFlush == flushSize {
				if ferr := flush(); ferr != nil {
					return stats, ferr
				}
			}
			continue
		}
		if !ok {
			break
		}
		rec = rec.Normalize()
		applyRecord(buffers, types, rec)
		stats.RecordsProcessed++
		recordsSinceFlush++
		if recordsSinceFlush == flushSize {
			if ferr := flush(); ferr != nil {
				return stats, ferr
			}
		}
	}

	// Final flush of any remaining buffered state after the input ends.
	if err := flush(); err != nil {
		return stats, err
	}

	for _, t := range types {
		n, err := e.store.CountDistinctGroups(ctx, execID, t)
		if err != nil {
			return stats, fmt.Errorf("aggregator: count distinct groups: %w", err)
		}
		stats.GroupsByType[t] = int(n)
	}

	e.log.Info("aggregation complete",
		"executionId", execID,
		"recordsProcessed", stats.RecordsProcessed,
		"parseErrors", stats.ParseErrors,
		"flushes", stats.FlushCount,
	)
	return stats, nil
}

func applyRecord(buffers map[domain.AggregationType]map[string]*groupBuffer, types []domain.AggregationType, r domain.Record) {
	for _, t := range types {
		key := groupKey(t, r)
		buf, ok := buffers[t][key]
		if !ok {
			buf = &groupBuffer{}
			buffers[t][key] = buf
		}
		buf.observe(r)
	}
}

// groupKey derives the composite group key for each aggregation type's
// key family.
func groupKey(t domain.AggregationType, r domain.Record) string {
	switch t {
	case domain.ByDepartment:
		return r.Department
	case domain.ByRegion:
		return r.Region
	case domain.ByStatus:
		return r.Status
	case domain.ByDepartmentRegion:
		return r.Department + "_" + r.Region
	case domain.ByDepartmentRegionStatus:
		return r.Department + "_" + r.Region + "_" + r.Status
	default:
		return "UNKNOWN"
	}
}
