package domain

// ParameterType enumerates the primitive types a job parameter may
// declare.
type ParameterType string

const (
	ParamString ParameterType = "string"
	ParamLong   ParameterType = "long"
	ParamDouble ParameterType = "double"
	ParamBool   ParameterType = "bool"
)

// ParameterKey describes one recognized parameter name for a job: its
// declared type, default value, and whether it participates in instance
// identity — two executions whose identifying-parameter sets are equal
// share a job instance.
type ParameterKey struct {
	Name        string
	Type        ParameterType
	Default     any
	Identifying bool
}

// StepDefinition names one ordered step of a job and the function that
// runs it: (ExecutionContext, ParameterView, CancelToken) -> StepOutcome.
type StepDefinition struct {
	Name string
	Body StepFunc
}

// StepFunc is the body of one step: it reads and writes the shared
// execution context, reads typed parameters through a read-only view, and
// polls the cancel token at its own discretion. It never receives the raw
// execution or store handles — steps are pure business logic over these
// three capabilities.
type StepFunc func(ctx *ExecutionContext, params ParameterView, cancel CancelToken) StepOutcome

// CancelToken exposes only what a step body needs to cooperate with a stop
// request: a poll for "has STOPPING been observed for my execution".
type CancelToken interface {
	Canceled() bool
}

// JobDefinition is the immutable, startup-registered description of a job:
// its unique name, its ordered non-empty step list, and its recognized
// parameter keys. manifest.Load builds these at startup and the job
// registry holds them.
type JobDefinition struct {
	Name          string
	Steps         []StepDefinition
	ParameterKeys map[string]ParameterKey
}
