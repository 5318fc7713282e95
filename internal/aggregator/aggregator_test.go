package aggregator

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/aggstore"
	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// sliceSource replays a fixed slice of records, then a fixed number of
// parse errors, then ends — enough to exercise both the happy path and
// the "parse errors still count toward flush cadence" behavior.
type sliceSource struct {
	records    []domain.Record
	parseFails int
	idx        int
	failsEmit  int
}

func (s *sliceSource) Next() (domain.Record, bool, error) {
	if s.idx < len(s.records) {
		r := s.records[s.idx]
		s.idx++
		return r, true, nil
	}
	if s.failsEmit < s.parseFails {
		s.failsEmit++
		return domain.Record{}, false, fmt.Errorf("malformed record %d", s.failsEmit)
	}
	return domain.Record{}, false, nil
}

func syntheticRecords(n int, departments, regions int) []domain.Record {
	statuses := []string{"ACTIVE", "ON_LEAVE", "TERMINATED"}
	out := make([]domain.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Record{
			Department:  fmt.Sprintf("DEPT_%d", i%departments),
			Region:      fmt.Sprintf("REGION_%d", i%regions),
			Status:      statuses[i%len(statuses)],
			Salary:      float64(10000 + (i % 100)),
			HoursWorked: 40,
			Bonus:       float64(i % 10),
		})
	}
	return out
}

// TestAggregateLargeStreamMatchesExpectedTotals runs 100,000 records
// across 50 departments through several flushes and checks
// BY_DEPARTMENT's record count and total salary reduce correctly across
// every one of them.
func TestAggregateLargeStreamMatchesExpectedTotals(t *testing.T) {
	const total = 100_000
	const departments = 50
	records := syntheticRecords(total, departments, 4)

	store := aggstore.NewMemoryAggregationStore()
	engine := NewEngine(store, testLogger(t), nil)
	execID := uuid.New()

	stats, err := engine.Aggregate(context.Background(), execID, &sliceSource{records: records}, 1, 5000)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.RecordsProcessed != total {
		t.Fatalf("RecordsProcessed = %d, want %d", stats.RecordsProcessed, total)
	}
	if stats.FlushCount != total/5000 {
		t.Fatalf("FlushCount = %d, want %d", stats.FlushCount, total/5000)
	}
	if stats.GroupsByType[domain.ByDepartment] != departments {
		t.Fatalf("GroupsByType[ByDepartment] = %d, want %d", stats.GroupsByType[domain.ByDepartment], departments)
	}

	wantCount := int64(total / departments)
	var wantSalary float64
	for i := 0; i < total; i++ {
		if i%departments == 0 {
			wantSalary += float64(10000 + (i % 100))
		}
	}
	row, ok := store.Row(execID, domain.ByDepartment, "DEPT_0")
	if !ok {
		t.Fatalf("expected a DEPT_0 row")
	}
	if row.RecordCount != wantCount {
		t.Fatalf("DEPT_0 RecordCount = %d, want %d", row.RecordCount, wantCount)
	}
	if row.TotalSalary != wantSalary {
		t.Fatalf("DEPT_0 TotalSalary = %v, want %v", row.TotalSalary, wantSalary)
	}

	// Every aggregation type partitions the same input, so record counts
	// summed over any one type must equal the number of records parsed.
	byDept, err := store.TotalRecordCount(context.Background(), execID, domain.ByDepartment)
	if err != nil {
		t.Fatalf("TotalRecordCount(ByDepartment): %v", err)
	}
	byRegion, err := store.TotalRecordCount(context.Background(), execID, domain.ByRegion)
	if err != nil {
		t.Fatalf("TotalRecordCount(ByRegion): %v", err)
	}
	if byDept != total || byRegion != total {
		t.Fatalf("record-count round trip broken: byDept=%d byRegion=%d, want %d", byDept, byRegion, total)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	store := aggstore.NewMemoryAggregationStore()
	engine := NewEngine(store, testLogger(t), nil)
	stats, err := engine.Aggregate(context.Background(), uuid.New(), &sliceSource{}, 2, 100)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.RecordsProcessed != 0 || stats.FlushCount != 0 {
		t.Fatalf("empty input should process and flush nothing, got %+v", stats)
	}
}

// TestAggregateFlushSizeOne verifies the boundary where every single
// record triggers its own flush.
func TestAggregateFlushSizeOne(t *testing.T) {
	records := syntheticRecords(25, 5, 5)
	store := aggstore.NewMemoryAggregationStore()
	engine := NewEngine(store, testLogger(t), nil)
	execID := uuid.New()

	stats, err := engine.Aggregate(context.Background(), execID, &sliceSource{records: records}, 1, 1)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.FlushCount != 25 {
		t.Fatalf("FlushCount = %d, want 25 (one flush per record)", stats.FlushCount)
	}
	if stats.RecordsProcessed != 25 {
		t.Fatalf("RecordsProcessed = %d, want 25", stats.RecordsProcessed)
	}
}

// TestAggregateParseErrorsCountTowardFlushCadence checks that the flush
// counter advances on every input record, parseable or not, so a run of
// parse failures cannot desynchronize flush cadence from flushSize.
func TestAggregateParseErrorsCountTowardFlushCadence(t *testing.T) {
	store := aggstore.NewMemoryAggregationStore()
	engine := NewEngine(store, testLogger(t), nil)
	src := &sliceSource{records: syntheticRecords(3, 2, 2), parseFails: 2}

	stats, err := engine.Aggregate(context.Background(), uuid.New(), src, 1, 5)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.RecordsProcessed != 5 {
		t.Fatalf("RecordsProcessed = %d, want 5 (3 parsed + 2 failed)", stats.RecordsProcessed)
	}
	if stats.ParseErrors != 2 {
		t.Fatalf("ParseErrors = %d, want 2", stats.ParseErrors)
	}
	if stats.FlushCount != 1 {
		t.Fatalf("FlushCount = %d, want 1 (5 total records hit flushSize=5 once)", stats.FlushCount)
	}
}

func TestAggregationTypesForDepth(t *testing.T) {
	cases := []struct {
		depth int
		want  int
	}{
		{1, 3},
		{2, 4},
		{3, 5},
	}
	for _, tc := range cases {
		got := domain.AggregationTypesForDepth(tc.depth)
		if len(got) != tc.want {
			t.Fatalf("AggregationTypesForDepth(%d) = %v, want %d types", tc.depth, got, tc.want)
		}
	}
}
