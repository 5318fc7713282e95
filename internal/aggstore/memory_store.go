package aggstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/domain"
)

// MemoryAggregationStore is an in-process AggregationStore, mirroring
// store.MemoryExecutionStore's role: it lets the aggregator's tests
// exercise the real upsert-merge semantics without a Postgres instance.
type MemoryAggregationStore struct {
	mu   sync.Mutex
	rows map[string]*domain.AggregationRow
}

func NewMemoryAggregationStore() *MemoryAggregationStore {
	return &MemoryAggregationStore{rows: make(map[string]*domain.AggregationRow)}
}

func rowKey(execID uuid.UUID, aggType domain.AggregationType, groupKey string) string {
	return execID.String() + "\x00" + string(aggType) + "\x00" + groupKey
}

// UpsertBatch applies the same commutative merge rule as the GORM
// implementation's ON CONFLICT clause: record_count and the total
// columns accumulate, min/max reduce.
func (s *MemoryAggregationStore) UpsertBatch(ctx context.Context, deltas []domain.AggregationDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range deltas {
		k := rowKey(d.ExecutionID, d.AggregationType, d.GroupKey)
		row, ok := s.rows[k]
		if !ok {
			cp := domain.AggregationRow{
				ExecutionID:     d.ExecutionID,
				AggregationType: d.AggregationType,
				GroupKey:        d.GroupKey,
				RecordCount:     d.Count,
				TotalSalary:     d.TotalSalary,
				TotalHours:      d.TotalHours,
				TotalBonus:      d.TotalBonus,
				MinSalary:       d.MinSalary,
				MaxSalary:       d.MaxSalary,
			}
			s.rows[k] = &cp
			continue
		}
		row.RecordCount += d.Count
		row.TotalSalary += d.TotalSalary
		row.TotalHours += d.TotalHours
		row.TotalBonus += d.TotalBonus
		if d.MinSalary < row.MinSalary {
			row.MinSalary = d.MinSalary
		}
		if d.MaxSalary > row.MaxSalary {
			row.MaxSalary = d.MaxSalary
		}
	}
	return nil
}

func (s *MemoryAggregationStore) CountDistinctGroups(ctx context.Context, execID uuid.UUID, aggType domain.AggregationType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, row := range s.rows {
		if row.ExecutionID == execID && row.AggregationType == aggType {
			n++
		}
	}
	return n, nil
}

func (s *MemoryAggregationStore) TotalRecordCount(ctx context.Context, execID uuid.UUID, canonicalType domain.AggregationType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, row := range s.rows {
		if row.ExecutionID == execID && row.AggregationType == canonicalType {
			total += row.RecordCount
		}
	}
	return total, nil
}

func (s *MemoryAggregationStore) DeleteByExecution(ctx context.Context, execID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, row := range s.rows {
		if row.ExecutionID == execID {
			delete(s.rows, k)
		}
	}
	return nil
}

// Row exposes a single persisted row for test assertions.
func (s *MemoryAggregationStore) Row(execID uuid.UUID, aggType domain.AggregationType, groupKey string) (domain.AggregationRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[rowKey(execID, aggType, groupKey)]
	if !ok {
		return domain.AggregationRow{}, false
	}
	return *row, true
}

var _ AggregationStore = (*MemoryAggregationStore)(nil)
