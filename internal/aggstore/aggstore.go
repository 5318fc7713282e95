// Package aggstore implements the aggregation store: an upsert-capable
// keyed table of (executionId, aggregationType, groupKey) -> {count,
// sums, min, max}. An overwrite-style
// clause.OnConflict{DoUpdates: clause.AssignmentColumns(...)} can't express an additive merge
// (recordCount += delta, totalX += delta, min/max reduction), so this
// package uses clause.Assignments with gorm.Expr column arithmetic
// instead — GORM still lowers it to a single ON CONFLICT DO UPDATE
// statement, just with "col = col + ?" in place of "col = excluded.col".
package aggstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/platform/logger"
)

// AggregationStore is the aggregation store's adapter contract.
type AggregationStore interface {
	// UpsertBatch applies every delta's commutative merge in one
	// transaction. Deltas within a batch may target different group keys
	// and aggregation types; each is merged independently.
	UpsertBatch(ctx context.Context, deltas []domain.AggregationDelta) error

	// CountDistinctGroups returns the number of distinct group keys
	// recorded for (execID, aggType).
	CountDistinctGroups(ctx context.Context, execID uuid.UUID, aggType domain.AggregationType) (int64, error)

	// TotalRecordCount sums recordCount over a canonical aggregation
	// type for execID (e.g. BY_DEPARTMENT).
	TotalRecordCount(ctx context.Context, execID uuid.UUID, canonicalType domain.AggregationType) (int64, error)

	// DeleteByExecution bulk-deletes every row for execID. Offered for
	// operator-driven cleanup; nothing in this service schedules it.
	DeleteByExecution(ctx context.Context, execID uuid.UUID) error
}

type gormAggregationStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormAggregationStore constructs a Postgres/GORM-backed AggregationStore.
func NewGormAggregationStore(db *gorm.DB, baseLog *logger.Logger) AggregationStore {
	return &gormAggregationStore{db: db, log: baseLog.With("component", "AggregationStore")}
}

func (s *gormAggregationStore) UpsertBatch(ctx context.Context, deltas []domain.AggregationDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range deltas {
			if err := upsertOne(tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

// upsertOne performs the atomic insert-or-merge for a single delta,
// keyed on (execution_id, aggregation_type, group_key). On insert the
// delta becomes the initial row; on conflict every numeric column is
// combined by a commutative, associative merge — flush ordering across
// batches does not matter, but the engine must never re-flush the same
// buffer, or the count would double.
func upsertOne(tx *gorm.DB, d domain.AggregationDelta) error {
	now := time.Now()
	row := domain.AggregationRow{
		ExecutionID:     d.ExecutionID,
		AggregationType: d.AggregationType,
		GroupKey:        d.GroupKey,
		RecordCount:     d.Count,
		TotalSalary:     d.TotalSalary,
		TotalHours:      d.TotalHours,
		TotalBonus:      d.TotalBonus,
		MinSalary:       d.MinSalary,
		MaxSalary:       d.MaxSalary,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "execution_id"}, {Name: "aggregation_type"}, {Name: "group_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"record_count": gorm.Expr("aggregation_rows.record_count + ?", d.Count),
			"total_salary": gorm.Expr("aggregation_rows.total_salary + ?", d.TotalSalary),
			"total_hours":  gorm.Expr("aggregation_rows.total_hours + ?", d.TotalHours),
			"total_bonus":  gorm.Expr("aggregation_rows.total_bonus + ?", d.TotalBonus),
			"min_salary":   gorm.Expr("LEAST(aggregation_rows.min_salary, ?)", d.MinSalary),
			"max_salary":   gorm.Expr("GREATEST(aggregation_rows.max_salary, ?)", d.MaxSalary),
			"updated_at":   now,
		}),
	}).Create(&row).Error
}

func (s *gormAggregationStore) CountDistinctGroups(ctx context.Context, execID uuid.UUID, aggType domain.AggregationType) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.AggregationRow{}).
		Where("execution_id = ? AND aggregation_type = ?", execID, aggType).
		Count(&count).Error
	return count, err
}

func (s *gormAggregationStore) TotalRecordCount(ctx context.Context, execID uuid.UUID, canonicalType domain.AggregationType) (int64, error) {
	var total int64
	row := s.db.WithContext(ctx).
		Model(&domain.AggregationRow{}).
		Where("execution_id = ? AND aggregation_type = ?", execID, canonicalType).
		Select("COALESCE(SUM(record_count), 0)").
		Row()
	if row == nil {
		return 0, nil
	}
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *gormAggregationStore) DeleteByExecution(ctx context.Context, execID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("execution_id = ?", execID).
		Delete(&domain.AggregationRow{}).Error
}
