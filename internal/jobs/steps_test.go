package jobs

import (
	"testing"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/aggregator"
	"github.com/brightloop/batchcore/internal/aggstore"
	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/gateway"
	"github.com/brightloop/batchcore/internal/platform/logger"
)

type neverCanceled struct{}

func (neverCanceled) Canceled() bool { return false }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func testBindings(t *testing.T, recordsPerFile int64) (Bindings, *aggstore.MemoryAggregationStore) {
	t.Helper()
	log := testLogger(t)
	aggStore := aggstore.NewMemoryAggregationStore()
	return Bindings{
		Gateway:            gateway.NewFake(recordsPerFile),
		Engine:             aggregator.NewEngine(aggStore, log, nil),
		Log:                log,
		AggregationDepth:   3,
		StreamingFlushSize: 100,
	}, aggStore
}

func paramView() domain.ParameterView {
	return domain.NewParameterView(domain.JobParameters{
		"sourceSystem": {Type: domain.ParamString, Identifying: true, StrVal: "payroll"},
		"fileType":     {Type: domain.ParamString, StrVal: "payment_file"},
		"county":       {Type: domain.ParamString, Identifying: true, StrVal: "lane"},
	})
}

// TestPaymentFileIngestStepsThreadContext drives the payment_file_ingest
// step list in manifest order against the fake gateway and checks each
// step's writes are visible to the next through the execution context.
func TestPaymentFileIngestStepsThreadContext(t *testing.T) {
	b, aggStore := testBindings(t, 500)
	ctx := domain.NewExecutionContext(nil)
	execID := uuid.New()
	ctx.SetString("executionId", execID.String())
	cancel := neverCanceled{}

	if out := b.FetchInput(ctx, paramView(), cancel); out.IsFailed() {
		t.Fatalf("FetchInput failed: %v", out.Err())
	}
	ref, ok := ctx.String("inputReference")
	if !ok || ref == "" {
		t.Fatalf("FetchInput did not record inputReference")
	}
	if n, ok := ctx.Long("inputRecordCount"); !ok || n != 500 {
		t.Fatalf("inputRecordCount = (%d, %v), want (500, true)", n, ok)
	}

	if out := b.ValidateRecords(ctx, paramView(), cancel); out.IsFailed() {
		t.Fatalf("ValidateRecords failed: %v", out.Err())
	}

	out := b.AggregateRecords(ctx, paramView(), cancel)
	if out.IsFailed() {
		t.Fatalf("AggregateRecords failed: %v", out.Err())
	}
	if out.ReadCount() != 500 {
		t.Fatalf("AggregateRecords ReadCount = %d, want 500", out.ReadCount())
	}
	if flushes, ok := ctx.Long("aggregationFlushes"); !ok || flushes != 5 {
		t.Fatalf("aggregationFlushes = (%d, %v), want (5, true) for 500 records at flushSize 100", flushes, ok)
	}

	total, err := aggStore.TotalRecordCount(t.Context(), execID, domain.ByDepartment)
	if err != nil || total != 500 {
		t.Fatalf("TotalRecordCount = %d, %v, want 500", total, err)
	}

	if out := b.PublishSummary(ctx, paramView(), cancel); out.IsFailed() {
		t.Fatalf("PublishSummary failed: %v", out.Err())
	}
}

func TestAggregateRecordsFailsWithoutFetchInput(t *testing.T) {
	b, _ := testBindings(t, 10)
	ctx := domain.NewExecutionContext(nil)
	ctx.SetString("executionId", uuid.NewString())

	out := b.AggregateRecords(ctx, paramView(), neverCanceled{})
	if !out.IsFailed() {
		t.Fatalf("AggregateRecords without a prior FetchInput should fail")
	}
}

func TestWarrantReconciliationSteps(t *testing.T) {
	b, _ := testBindings(t, 10)
	ctx := domain.NewExecutionContext(nil)
	cancel := neverCanceled{}

	if out := b.LoadWarrants(ctx, paramView(), cancel); out.IsFailed() {
		t.Fatalf("LoadWarrants failed: %v", out.Err())
	}
	if ref, ok := ctx.String("warrantReference"); !ok || ref == "" {
		t.Fatalf("LoadWarrants did not record warrantReference")
	}

	if out := b.ReconcilePayments(ctx, paramView(), cancel); out.IsFailed() {
		t.Fatalf("ReconcilePayments failed: %v", out.Err())
	}
	if n, ok := ctx.Long("reconciledCount"); !ok || n != 10 {
		t.Fatalf("reconciledCount = (%d, %v), want (10, true)", n, ok)
	}

	if out := b.WriteExceptions(ctx, paramView(), cancel); out.IsFailed() {
		t.Fatalf("WriteExceptions failed: %v", out.Err())
	}
}

func TestStepFuncsCoverEveryManifestStep(t *testing.T) {
	b, _ := testBindings(t, 10)
	funcs := b.StepFuncs()
	for _, name := range []string{
		"fetch_input", "validate_records", "aggregate_records", "publish_summary",
		"load_warrants", "reconcile_payments", "write_exceptions",
	} {
		if funcs[name] == nil {
			t.Fatalf("StepFuncs missing %q", name)
		}
	}
}
