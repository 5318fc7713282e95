package aggregator

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brightloop/batchcore/internal/domain"
)

// AggregateSharded runs Aggregate independently over each shard in
// shards, bounded by maxConcurrency concurrent shards, then combines
// their Stats: record counters are summed and GroupsByType keeps each
// type's largest value, since every shard reads the same execution's
// store-wide distinct-group count. Built on the errgroup.WithContext + g.SetLimit bounded-fan-out
// pattern used elsewhere for batch processing; useful when a step body
// has already split a large input into independently-aggregatable
// shards — the merge in aggstore.UpsertBatch is commutative and
// associative across shards by construction, so sharded flushes combine
// correctly regardless of which shard reaches the store first.
func AggregateSharded(ctx context.Context, e *Engine, execID uuid.UUID, shards []RecordSource, aggregationDepth, flushSize, maxConcurrency int) (Stats, error) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	results := make([]Stats, len(shards))
	for i, shard := range shards {
		i, shard := i, shard
		g.Go(func() error {
			s, err := e.Aggregate(gctx, execID, shard, aggregationDepth, flushSize)
			if err != nil {
				return err
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	total := Stats{GroupsByType: make(map[domain.AggregationType]int)}
	for _, s := range results {
		total.RecordsProcessed += s.RecordsProcessed
		total.ParseErrors += s.ParseErrors
		total.FlushCount += s.FlushCount
		for t, n := range s.GroupsByType {
			if n > total.GroupsByType[t] {
				total.GroupsByType[t] = n
			}
		}
	}
	return total, nil
}
