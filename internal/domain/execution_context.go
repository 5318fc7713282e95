package domain

import "encoding/json"

// ExecutionContext is the mapping from string to serializable scalar
// written by steps and read by later steps. It is bounded to scalars
// because it must be durable across crash restarts, and it is private to
// one execution — only the step currently running ever writes to it, so
// no internal locking is needed here.
type ExecutionContext struct {
	values map[string]any
}

// NewExecutionContext returns an empty context, or one seeded from a
// previously persisted JSON blob (nil/empty raw yields an empty context).
func NewExecutionContext(raw []byte) *ExecutionContext {
	ec := &ExecutionContext{values: map[string]any{}}
	if len(raw) == 0 {
		return ec
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err == nil {
		ec.values = m
	}
	return ec
}

// SetString, SetLong, SetDouble, SetBool write one scalar keyed by name.
func (ec *ExecutionContext) SetString(name, v string) { ec.values[name] = v }
func (ec *ExecutionContext) SetLong(name string, v int64) { ec.values[name] = v }
func (ec *ExecutionContext) SetDouble(name string, v float64) { ec.values[name] = v }
func (ec *ExecutionContext) SetBool(name string, v bool) { ec.values[name] = v }

// String, Long, Double, Bool read back a scalar written earlier, either
// by this step or an earlier one in the same execution.
func (ec *ExecutionContext) String(name string) (string, bool) {
	v, ok := ec.values[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (ec *ExecutionContext) Long(name string) (int64, bool) {
	v, ok := ec.values[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func (ec *ExecutionContext) Double(name string) (float64, bool) {
	v, ok := ec.values[name]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (ec *ExecutionContext) Bool(name string) (bool, bool) {
	v, ok := ec.values[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Marshal serializes the context for persistence into
// JobExecution.ExecutionContext.
func (ec *ExecutionContext) Marshal() ([]byte, error) {
	if ec == nil || len(ec.values) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(ec.values)
}
