// Package gateway declares the external file/conversion gateway's
// contract. The gateway itself — an SFTP/file-conversion system — lives
// outside this service; the core treats it as opaque and never calls it
// directly. This package exists only so step bodies (internal/jobs) have
// a concrete Go interface to depend on; batchcore never implements or
// calls it from the coordinator, pipeline runtime, or aggregator.
package gateway

import "context"

// Metadata describes one available file on the external system:
// its reference, display name, record count, and byte size.
type Metadata struct {
	Reference   string
	Name        string
	RecordCount int64
	Size        int64
}

// Gateway is the opaque external collaborator's contract. batchcore's
// core components never call it; only step bodies may.
type Gateway interface {
	IsAvailable(ctx context.Context, system, fileType string) (bool, error)
	Metadata(ctx context.Context, system, fileType string) (Metadata, error)
	Fetch(ctx context.Context, system, fileType, recordType string) (RecordSource, error)
	Send(ctx context.Context, system, fileType string, records RecordSource) (reference string, err error)
	Acknowledge(ctx context.Context, reference string) error
	ReportError(ctx context.Context, reference string, cause error) error
}

// RecordSource is a minimal pull-based iterator over raw records, mirrored
// by aggregator.RecordSource but kept as its own type here since the
// gateway boundary predates and is agnostic to the aggregation engine's
// domain.Record shape; a step body adapts one to the other.
type RecordSource interface {
	Next(ctx context.Context) (raw map[string]string, ok bool, err error)
}
