package coordinator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/pipeline"
)

// cancelFlagTable tracks the in-process CancelFlag for every execution
// currently running, so Stop can flip the right one without the pipeline
// runtime ever re-reading the execution status from the store mid-step —
// this flag is set at the same instant the STOPPING status is persisted
// in Coordinator.Stop.
type cancelFlagTable struct {
	mu    sync.Mutex
	flags map[uuid.UUID]*pipeline.CancelFlag
}

func newCancelFlagTable() *cancelFlagTable {
	return &cancelFlagTable{flags: make(map[uuid.UUID]*pipeline.CancelFlag)}
}

func (t *cancelFlagTable) create(id uuid.UUID) *pipeline.CancelFlag {
	flag := pipeline.NewCancelFlag()
	t.mu.Lock()
	t.flags[id] = flag
	t.mu.Unlock()
	return flag
}

func (t *cancelFlagTable) signal(id uuid.UUID) {
	t.mu.Lock()
	flag := t.flags[id]
	t.mu.Unlock()
	if flag != nil {
		flag.Set()
	}
}

func (t *cancelFlagTable) remove(id uuid.UUID) {
	t.mu.Lock()
	delete(t.flags, id)
	t.mu.Unlock()
}
