package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// Fake is an in-memory Gateway used for local development and tests
// where no real SFTP/file-conversion gateway is configured. It generates
// a deterministic-shaped synthetic record stream rather than talking to
// any external system — production deployments must supply a real
// Gateway implementation; batchcore's core never assumes this one.
type Fake struct {
	mu             sync.Mutex
	refCounter     int
	RecordsPerFile int64
}

// NewFake returns a Fake seeded to produce recordsPerFile records per
// generated stream. Small defaults suit local smoke-testing.
func NewFake(recordsPerFile int64) *Fake {
	if recordsPerFile <= 0 {
		recordsPerFile = 1000
	}
	return &Fake{RecordsPerFile: recordsPerFile}
}

func (f *Fake) IsAvailable(ctx context.Context, system, fileType string) (bool, error) {
	return true, nil
}

func (f *Fake) Metadata(ctx context.Context, system, fileType string) (Metadata, error) {
	f.mu.Lock()
	f.refCounter++
	ref := fmt.Sprintf("fake://%s/%s/%d", system, fileType, f.refCounter)
	f.mu.Unlock()
	return Metadata{Reference: ref, Name: fileType, RecordCount: f.RecordsPerFile, Size: f.RecordsPerFile * 64}, nil
}

func (f *Fake) Fetch(ctx context.Context, system, fileType, recordType string) (RecordSource, error) {
	return &fakeSource{remaining: f.RecordsPerFile, departments: 50, regions: 10, statuses: 3}, nil
}

func (f *Fake) Send(ctx context.Context, system, fileType string, records RecordSource) (string, error) {
	f.mu.Lock()
	f.refCounter++
	ref := fmt.Sprintf("fake://%s/%s/sent/%d", system, fileType, f.refCounter)
	f.mu.Unlock()
	for {
		if _, ok, err := records.Next(ctx); err != nil {
			return "", err
		} else if !ok {
			break
		}
	}
	return ref, nil
}

func (f *Fake) Acknowledge(ctx context.Context, reference string) error { return nil }

func (f *Fake) ReportError(ctx context.Context, reference string, cause error) error { return nil }

// fakeSource synthesizes records with bounded cardinality across
// department/region/status, the shape used elsewhere to check
// aggregation correctness at scale without a real input file.
type fakeSource struct {
	remaining   int64
	i           int64
	departments int
	regions     int
	statuses    int
}

func (s *fakeSource) Next(ctx context.Context) (map[string]string, bool, error) {
	if s.remaining <= 0 {
		return nil, false, nil
	}
	s.remaining--
	dept := int(s.i) % s.departments
	region := int(s.i) % s.regions
	status := int(s.i) % s.statuses
	salary := 10000 + (s.i % 100)
	s.i++
	return map[string]string{
		"department":  fmt.Sprintf("DEPT_%02d", dept),
		"region":      fmt.Sprintf("REGION_%02d", region),
		"status":      []string{"ACTIVE", "PENDING", "CLOSED"}[status],
		"salary":      fmt.Sprintf("%d", salary),
		"hoursWorked": fmt.Sprintf("%d", 40+rand.Intn(5)),
		"bonus":       fmt.Sprintf("%d", 0),
	}, true, nil
}
