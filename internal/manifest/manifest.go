// Package manifest loads job/step topology from a declarative YAML
// document — an embedded jobs.yaml parsed with gopkg.in/yaml.v3 rather
// than Go-side struct literals. Step *bodies* remain Go code (business
// logic cannot live in YAML); the manifest only declares ordering and
// parameter keys, and Load binds named step bodies supplied by the
// caller into domain.JobDefinitions.
package manifest

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brightloop/batchcore/internal/domain"
)

//go:embed jobs.yaml
var defaultManifestFS embed.FS

const manifestEnvVar = "BATCHCORE_JOBS_YAML"

type yamlManifest struct {
	Jobs []yamlJob `yaml:"jobs"`
}

type yamlJob struct {
	Name       string          `yaml:"name"`
	Steps      []string        `yaml:"steps"`
	Parameters []yamlParameter `yaml:"parameters"`
}

type yamlParameter struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Default     any    `yaml:"default"`
	Identifying bool   `yaml:"identifying"`
}

// Load reads the job manifest (from BATCHCORE_JOBS_YAML if set, otherwise
// the embedded default) and binds it against stepBodies, a map from step
// name to implementation, producing one domain.JobDefinition per
// manifest job entry.
//
// A manifest step name with no matching entry in stepBodies is a startup
// wiring error, reported eagerly rather than deferred to first execution.
func Load(stepBodies map[string]domain.StepFunc) ([]*domain.JobDefinition, error) {
	raw, err := readManifest()
	if err != nil {
		return nil, err
	}
	var m yamlManifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}

	defs := make([]*domain.JobDefinition, 0, len(m.Jobs))
	for _, j := range m.Jobs {
		if j.Name == "" {
			return nil, fmt.Errorf("manifest: job entry with empty name")
		}
		steps := make([]domain.StepDefinition, 0, len(j.Steps))
		for _, stepName := range j.Steps {
			body, ok := stepBodies[stepName]
			if !ok {
				return nil, fmt.Errorf("manifest: job %q references unbound step %q", j.Name, stepName)
			}
			steps = append(steps, domain.StepDefinition{Name: stepName, Body: body})
		}
		keys := make(map[string]domain.ParameterKey, len(j.Parameters))
		for _, p := range j.Parameters {
			keys[p.Name] = domain.ParameterKey{
				Name:        p.Name,
				Type:        domain.ParameterType(strings.ToLower(p.Type)),
				Default:     p.Default,
				Identifying: p.Identifying,
			}
		}
		defs = append(defs, &domain.JobDefinition{Name: j.Name, Steps: steps, ParameterKeys: keys})
	}
	return defs, nil
}

func readManifest() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(manifestEnvVar)); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("manifest: read %s: %w", path, err)
		}
		return raw, nil
	}
	raw, err := defaultManifestFS.ReadFile("jobs.yaml")
	if err != nil {
		return nil, fmt.Errorf("manifest: read embedded default: %w", err)
	}
	return raw, nil
}
