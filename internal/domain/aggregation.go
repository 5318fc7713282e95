package domain

import (
	"time"

	"github.com/google/uuid"
)

// AggregationType selects the key-derivation rule for an aggregation row
// family.
type AggregationType string

const (
	ByDepartment             AggregationType = "BY_DEPARTMENT"
	ByRegion                 AggregationType = "BY_REGION"
	ByStatus                 AggregationType = "BY_STATUS"
	ByDepartmentRegion       AggregationType = "BY_DEPARTMENT_REGION"
	ByDepartmentRegionStatus AggregationType = "BY_DEPARTMENT_REGION_STATUS"
)

// AggregationTypesForDepth returns the aggregation type families
// maintained at a given aggregationDepth: depth 1 maintains the three
// single-field breakdowns, depth 2 adds the department+region composite,
// depth 3 adds department+region+status on top of that.
func AggregationTypesForDepth(depth int) []AggregationType {
	types := []AggregationType{ByDepartment, ByRegion, ByStatus}
	if depth >= 2 {
		types = append(types, ByDepartmentRegion)
	}
	if depth >= 3 {
		types = append(types, ByDepartmentRegionStatus)
	}
	return types
}

// AggregationRow is the persisted upsert target: (executionId,
// aggregationType, groupKey) -> {count, sums, min, max}.
type AggregationRow struct {
	ExecutionID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AggregationType AggregationType `gorm:"primaryKey"`
	GroupKey        string          `gorm:"primaryKey"`
	RecordCount     int64
	TotalSalary     float64
	TotalHours      float64
	TotalBonus      float64
	MinSalary       float64
	MaxSalary       float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (AggregationRow) TableName() string { return "aggregation_rows" }

// AggregationDelta is one group's buffered reduction since the last
// flush: the unit the streaming aggregation engine hands to the
// aggregation store's UpsertBatch.
type AggregationDelta struct {
	ExecutionID     uuid.UUID
	AggregationType AggregationType
	GroupKey        string
	Count           int64
	TotalSalary     float64
	TotalHours      float64
	TotalBonus      float64
	MinSalary       float64
	MaxSalary       float64
}
