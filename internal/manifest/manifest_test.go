package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brightloop/batchcore/internal/domain"
)

func noopStep(_ *domain.ExecutionContext, _ domain.ParameterView, _ domain.CancelToken) domain.StepOutcome {
	return domain.Finished()
}

func allEmbeddedStepBodies() map[string]domain.StepFunc {
	return map[string]domain.StepFunc{
		"fetch_input":        noopStep,
		"validate_records":   noopStep,
		"aggregate_records":  noopStep,
		"publish_summary":    noopStep,
		"load_warrants":      noopStep,
		"reconcile_payments": noopStep,
		"write_exceptions":   noopStep,
	}
}

func TestLoadEmbeddedManifestBindsAllJobs(t *testing.T) {
	t.Setenv(manifestEnvVar, "")

	defs, err := Load(allEmbeddedStepBodies())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d job definitions, want 2", len(defs))
	}

	byName := map[string]*domain.JobDefinition{}
	for _, d := range defs {
		byName[d.Name] = d
	}

	ingest, ok := byName["payment_file_ingest"]
	if !ok {
		t.Fatalf("payment_file_ingest missing: %v", byName)
	}
	wantSteps := []string{"fetch_input", "validate_records", "aggregate_records", "publish_summary"}
	if len(ingest.Steps) != len(wantSteps) {
		t.Fatalf("payment_file_ingest has %d steps, want %d", len(ingest.Steps), len(wantSteps))
	}
	for i, want := range wantSteps {
		if ingest.Steps[i].Name != want {
			t.Fatalf("step[%d] = %q, want %q (order must match the manifest)", i, ingest.Steps[i].Name, want)
		}
	}

	src, ok := ingest.ParameterKeys["sourceSystem"]
	if !ok {
		t.Fatalf("sourceSystem parameter missing: %v", ingest.ParameterKeys)
	}
	if src.Type != domain.ParamString || !src.Identifying {
		t.Fatalf("sourceSystem = %+v, want identifying string", src)
	}

	if _, ok := byName["warrant_reconciliation"]; !ok {
		t.Fatalf("warrant_reconciliation missing: %v", byName)
	}
}

func TestLoadFailsOnUnboundStep(t *testing.T) {
	t.Setenv(manifestEnvVar, "")

	bodies := allEmbeddedStepBodies()
	delete(bodies, "aggregate_records")
	if _, err := Load(bodies); err == nil {
		t.Fatalf("Load with a missing step body should fail eagerly")
	}
}

func TestLoadHonorsEnvOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	override := `
jobs:
  - name: custom_job
    steps:
      - only_step
    parameters:
      - name: region
        type: string
        default: "west"
        identifying: true
`
	if err := os.WriteFile(path, []byte(override), 0o600); err != nil {
		t.Fatalf("write override manifest: %v", err)
	}
	t.Setenv(manifestEnvVar, path)

	defs, err := Load(map[string]domain.StepFunc{"only_step": noopStep})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "custom_job" {
		t.Fatalf("override manifest not honored: %+v", defs)
	}
	if defs[0].ParameterKeys["region"].Default != "west" {
		t.Fatalf("default not carried: %+v", defs[0].ParameterKeys["region"])
	}
}
