// Package registry implements the job registry: a read-only-after-
// startup catalog mapping job name to its ordered step definitions,
// following this codebase's usual job_type -> Handler registry shape
// but keyed on the richer JobDefinition rather than a single handler.
package registry

import (
	"fmt"
	"sync"

	"github.com/brightloop/batchcore/internal/coreerr"
	"github.com/brightloop/batchcore/internal/domain"
)

// Registry is a concurrency-safe map of job name -> JobDefinition.
//
// Invariants:
//   - At most one definition may be registered per job name.
//   - Step names are unique within a job.
//   - Registration is expected to happen at process startup; lookups may
//     happen concurrently from many coordinator/worker goroutines.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*domain.JobDefinition
}

// New constructs an empty job registry.
func New() *Registry {
	return &Registry{defs: make(map[string]*domain.JobDefinition)}
}

// Register validates and adds a job definition to the registry.
//
// Validation:
//   - def must be non-nil with a non-empty Name.
//   - def.Steps must be non-empty (coreerr.ErrEmptySteps).
//   - no two steps may share a name (coreerr.ErrDuplicateStep).
//   - no other definition may already be registered under this name
//     (coreerr.ErrDuplicateJob).
//
// Failing fast here is deliberate: a misregistered job is a startup wiring
// error, not a runtime condition callers should have to handle.
func (r *Registry) Register(def *domain.JobDefinition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("registry: job definition requires a non-empty name")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("registry: job %q: %w", def.Name, coreerr.ErrEmptySteps)
	}
	seen := make(map[string]struct{}, len(def.Steps))
	for _, step := range def.Steps {
		if step.Name == "" {
			return fmt.Errorf("registry: job %q has a step with an empty name", def.Name)
		}
		if _, dup := seen[step.Name]; dup {
			return fmt.Errorf("registry: job %q step %q: %w", def.Name, step.Name, coreerr.ErrDuplicateStep)
		}
		seen[step.Name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("registry: job %q: %w", def.Name, coreerr.ErrDuplicateJob)
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup retrieves the definition registered for name.
func (r *Registry) Lookup(name string) (*domain.JobDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the set of all registered job names.
func (r *Registry) Names() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]struct{}, len(r.defs))
	for name := range r.defs {
		out[name] = struct{}{}
	}
	return out
}
