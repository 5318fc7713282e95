// Package jobs holds the step bodies bound to job names in the manifest
// (internal/manifest/jobs.yaml). The per-job business logic — what a
// warrant record means, how payment amounts are computed, county-code
// mappings — belongs to whatever system owns that domain, not to this
// core; these bodies are deliberately thin. They demonstrate the three
// capabilities a step body actually has (ExecutionContext read/write,
// ParameterView, CancelToken) and how a streaming job wires the gateway
// and the streaming aggregation engine together, without encoding any
// domain calculation.
package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/aggregator"
	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/gateway"
	"github.com/brightloop/batchcore/internal/platform/logger"
)

// Bindings is the set of collaborators step bodies close over, plus the
// streaming config (flushSize, aggregation depth) they run with. Each
// StepFunc method reads/writes only through the three capabilities a
// step body is granted; Bindings itself is construction-time wiring, not
// something the runtime passes in.
type Bindings struct {
	Gateway            gateway.Gateway
	Engine             *aggregator.Engine
	Log                *logger.Logger
	AggregationDepth   int
	StreamingFlushSize int
}

// FetchInput resolves the configured source system's input file through
// the gateway and records its reference/recordCount in the execution
// context, which is written by steps and read by later steps in the
// same execution.
func (b Bindings) FetchInput(ctx *domain.ExecutionContext, params domain.ParameterView, cancel domain.CancelToken) domain.StepOutcome {
	system, _ := params.String("sourceSystem")
	fileType, _ := params.String("fileType")
	bg := context.Background()

	available, err := b.Gateway.IsAvailable(bg, system, fileType)
	if err != nil {
		return domain.Failed(fmt.Errorf("fetch_input: availability check: %w", err))
	}
	if !available {
		return domain.Failed(fmt.Errorf("fetch_input: no input available for system %q type %q", system, fileType))
	}

	meta, err := b.Gateway.Metadata(bg, system, fileType)
	if err != nil {
		return domain.Failed(fmt.Errorf("fetch_input: metadata: %w", err))
	}

	ctx.SetString("inputReference", meta.Reference)
	ctx.SetLong("inputRecordCount", meta.RecordCount)
	return domain.FinishedCounts(1, 1, 0)
}

// ValidateRecords is a pass-through placeholder: real record-level
// validation is per-job business logic, out of scope for this core. It
// exists so the manifest's step list is fully bound and demonstrates
// cooperative-cancellation polling between large record batches.
func (b Bindings) ValidateRecords(ctx *domain.ExecutionContext, params domain.ParameterView, cancel domain.CancelToken) domain.StepOutcome {
	if cancel.Canceled() {
		return domain.Finished()
	}
	n, _ := ctx.Long("inputRecordCount")
	return domain.FinishedCounts(n, n, 0)
}

// AggregateRecords fetches the input reference recorded by FetchInput
// and runs it through the streaming aggregation engine. The execution id
// is read back from the context, where Run seeds it before the first
// step (pipeline.Runtime.Run); depth/flushSize come from Bindings' own
// config, not from job parameters.
func (b Bindings) AggregateRecords(ctx *domain.ExecutionContext, params domain.ParameterView, cancel domain.CancelToken) domain.StepOutcome {
	reference, _ := ctx.String("inputReference")
	if reference == "" {
		return domain.Failed(fmt.Errorf("aggregate_records: no inputReference in execution context"))
	}
	execIDStr, _ := ctx.String("executionId")
	execID, err := uuid.Parse(execIDStr)
	if err != nil {
		return domain.Failed(fmt.Errorf("aggregate_records: execution id not seeded in context: %w", err))
	}
	system, _ := params.String("sourceSystem")
	fileType, _ := params.String("fileType")

	bg := context.Background()
	src, err := b.Gateway.Fetch(bg, system, fileType, "record")
	if err != nil {
		return domain.Failed(fmt.Errorf("aggregate_records: fetch: %w", err))
	}

	stats, err := b.Engine.Aggregate(bg, execID, gatewayRecordAdapter{cancel: cancel, src: src}, b.AggregationDepth, b.StreamingFlushSize)
	if err != nil {
		return domain.Failed(fmt.Errorf("aggregate_records: %w", err))
	}

	ctx.SetLong("aggregationGroupsByDepartment", int64(stats.GroupsByType[domain.ByDepartment]))
	ctx.SetLong("aggregationFlushes", stats.FlushCount)
	return domain.FinishedCounts(stats.RecordsProcessed, stats.RecordsProcessed-stats.ParseErrors, stats.ParseErrors)
}

// PublishSummary acknowledges the fetched input with the gateway once
// aggregation has committed, closing the gateway round-trip
// (isAvailable/metadata/fetch/send/acknowledge/reportError).
func (b Bindings) PublishSummary(ctx *domain.ExecutionContext, params domain.ParameterView, cancel domain.CancelToken) domain.StepOutcome {
	reference, _ := ctx.String("inputReference")
	if reference == "" {
		return domain.Finished()
	}
	if err := b.Gateway.Acknowledge(context.Background(), reference); err != nil {
		return domain.Failed(fmt.Errorf("publish_summary: acknowledge: %w", err))
	}
	return domain.FinishedCounts(1, 1, 0)
}

// LoadWarrants, ReconcilePayments, and WriteExceptions bind
// warrant_reconciliation's step list (internal/manifest/jobs.yaml). Like
// the payment-file-ingest steps above, the actual reconciliation rule —
// what a warrant record means, county-code mappings — is per-job
// business logic out of scope for this core; these bodies only
// demonstrate the gateway round-trip and context threading for a
// smaller, non-streaming job shape.
func (b Bindings) LoadWarrants(ctx *domain.ExecutionContext, params domain.ParameterView, cancel domain.CancelToken) domain.StepOutcome {
	county, _ := params.String("county")
	bg := context.Background()
	meta, err := b.Gateway.Metadata(bg, "warrants", county)
	if err != nil {
		return domain.Failed(fmt.Errorf("load_warrants: metadata: %w", err))
	}
	ctx.SetString("warrantReference", meta.Reference)
	ctx.SetLong("warrantRecordCount", meta.RecordCount)
	return domain.FinishedCounts(1, 0, 0)
}

func (b Bindings) ReconcilePayments(ctx *domain.ExecutionContext, params domain.ParameterView, cancel domain.CancelToken) domain.StepOutcome {
	n, _ := ctx.Long("warrantRecordCount")
	ctx.SetLong("reconciledCount", n)
	return domain.FinishedCounts(n, n, 0)
}

func (b Bindings) WriteExceptions(ctx *domain.ExecutionContext, params domain.ParameterView, cancel domain.CancelToken) domain.StepOutcome {
	reference, _ := ctx.String("warrantReference")
	if reference == "" {
		return domain.Finished()
	}
	if _, err := b.Gateway.Send(context.Background(), "warrants", "exceptions", emptyRecordSource{}); err != nil {
		return domain.Failed(fmt.Errorf("write_exceptions: send: %w", err))
	}
	return domain.FinishedCounts(0, 1, 0)
}

// emptyRecordSource is a placeholder RecordSource for a job step that, at
// the core level, has no exception records to send yet — the actual
// exception set is computed by reconciliation business logic this repo
// does not implement.
type emptyRecordSource struct{}

func (emptyRecordSource) Next(ctx context.Context) (map[string]string, bool, error) {
	return nil, false, nil
}

// StepFuncs returns the name->body bindings manifest.Load expects,
// keyed exactly as internal/manifest/jobs.yaml references them.
func (b Bindings) StepFuncs() map[string]domain.StepFunc {
	return map[string]domain.StepFunc{
		"fetch_input":        b.FetchInput,
		"validate_records":   b.ValidateRecords,
		"aggregate_records":  b.AggregateRecords,
		"publish_summary":    b.PublishSummary,
		"load_warrants":      b.LoadWarrants,
		"reconcile_payments": b.ReconcilePayments,
		"write_exceptions":   b.WriteExceptions,
	}
}

// gatewayRecordAdapter adapts a gateway.RecordSource's raw string-keyed
// rows into the aggregator's domain.Record shape, checking the cancel
// token between reads so a long aggregation honors cooperative
// cancellation even mid-stream.
type gatewayRecordAdapter struct {
	cancel domain.CancelToken
	src    gateway.RecordSource
}

func (a gatewayRecordAdapter) Next() (domain.Record, bool, error) {
	if a.cancel.Canceled() {
		return domain.Record{}, false, nil
	}
	raw, ok, err := a.src.Next(context.Background())
	if err != nil {
		return domain.Record{}, false, err
	}
	if !ok {
		return domain.Record{}, false, nil
	}
	return parseRecord(raw), true, nil
}

func parseRecord(raw map[string]string) domain.Record {
	return domain.Record{
		Department:  raw["department"],
		Region:      raw["region"],
		Status:      raw["status"],
		Salary:      parseFloat(raw["salary"]),
		HoursWorked: parseFloat(raw["hoursWorked"]),
		Bonus:       parseFloat(raw["bonus"]),
	}
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
		return 0
	}
	return f
}
