package aggregator

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/aggstore"
	"github.com/brightloop/batchcore/internal/domain"
)

// TestAggregateShardedCombinesShardsCommutatively splits one logical
// input across shards and checks the sharded run converges on the same
// store totals as a single-stream run would, regardless of which shard
// flushes first.
func TestAggregateShardedCombinesShardsCommutatively(t *testing.T) {
	const perShard = 1000
	const shardCount = 4
	store := aggstore.NewMemoryAggregationStore()
	engine := NewEngine(store, testLogger(t), nil)
	execID := uuid.New()

	shards := make([]RecordSource, 0, shardCount)
	for i := 0; i < shardCount; i++ {
		shards = append(shards, &sliceSource{records: syntheticRecords(perShard, 10, 4)})
	}

	stats, err := AggregateSharded(context.Background(), engine, execID, shards, 1, 250, 2)
	if err != nil {
		t.Fatalf("AggregateSharded: %v", err)
	}
	if stats.RecordsProcessed != perShard*shardCount {
		t.Fatalf("RecordsProcessed = %d, want %d", stats.RecordsProcessed, perShard*shardCount)
	}

	total, err := store.TotalRecordCount(context.Background(), execID, domain.ByDepartment)
	if err != nil {
		t.Fatalf("TotalRecordCount: %v", err)
	}
	if total != perShard*shardCount {
		t.Fatalf("store total = %d, want %d", total, perShard*shardCount)
	}

	groups, err := store.CountDistinctGroups(context.Background(), execID, domain.ByDepartment)
	if err != nil || groups != 10 {
		t.Fatalf("CountDistinctGroups = %d, %v, want 10", groups, err)
	}
}
