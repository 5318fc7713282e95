package domain

// StepOutcome is the result of one step body invocation: either Finished
// or Failed(error). A Finished outcome also carries the step's
// read/write/skip counters, mirroring the fields persisted on the step
// execution row; a step body that never touches a counter leaves it zero.
type StepOutcome struct {
	failed bool
	err    error

	readCount  int64
	writeCount int64
	skipCount  int64
}

// Finished reports a successful step completion with no counters.
func Finished() StepOutcome { return StepOutcome{} }

// FinishedCounts reports a successful step completion carrying the
// read/write/skip counts the body accumulated.
func FinishedCounts(read, write, skip int64) StepOutcome {
	return StepOutcome{readCount: read, writeCount: write, skipCount: skip}
}

// Failed reports a step failure carrying err, which becomes the step
// execution's recorded error and — for the first failing step in an
// execution — the execution's exitDescription.
func Failed(err error) StepOutcome { return StepOutcome{failed: true, err: err} }

// IsFailed reports whether this outcome represents a failure.
func (o StepOutcome) IsFailed() bool { return o.failed }

// Err returns the failure's error, or nil for a Finished outcome.
func (o StepOutcome) Err() error { return o.err }

// ReadCount, WriteCount, SkipCount return the counters a Finished outcome
// carries (always zero for a Failed outcome).
func (o StepOutcome) ReadCount() int64  { return o.readCount }
func (o StepOutcome) WriteCount() int64 { return o.writeCount }
func (o StepOutcome) SkipCount() int64  { return o.skipCount }
