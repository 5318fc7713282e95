package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParameterValue is a single typed, coerced job parameter plus whether it
// is identifying. The coordinator always injects triggerId and timestamp
// as identifying parameters to guarantee instance/execution uniqueness
// even when the caller supplies no parameters of its own.
type ParameterValue struct {
	Type        ParameterType
	Identifying bool
	StrVal      string
	LongVal     int64
	DoubleVal   float64
	BoolVal     bool
}

// JobParameters is the full coerced parameter set for one execution,
// keyed by parameter name.
type JobParameters map[string]ParameterValue

// IdentifyingKey renders the deterministic, order-independent string used
// to bucket executions into a JobInstance: two executions whose
// identifying-parameter sets are equal share an instance. Sorting by name
// before joining makes the key independent of map iteration order.
func (p JobParameters) IdentifyingKey() string {
	names := make([]string, 0, len(p))
	for name, v := range p {
		if v.Identifying {
			names = append(names, name)
		}
	}
	sortStrings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+p[name].render())
	}
	return strings.Join(parts, "&")
}

func (v ParameterValue) render() string {
	switch v.Type {
	case ParamString:
		return v.StrVal
	case ParamLong:
		return strconv.FormatInt(v.LongVal, 10)
	case ParamDouble:
		return strconv.FormatFloat(v.DoubleVal, 'f', -1, 64)
	case ParamBool:
		return strconv.FormatBool(v.BoolVal)
	default:
		return ""
	}
}

func sortStrings(s []string) {
	// small insertion sort; parameter sets are tiny (a handful of keys)
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// CoerceParam converts a raw string value (as received over the trigger
// API's string-keyed param map) to the type declared by key. Returns
// ErrParameterCoercion-wrapping errors from the caller's perspective; this
// package stays error-type agnostic and returns a plain error so callers
// (the coordinator) can wrap it with coreerr.ErrParameterCoercion.
func CoerceParam(key ParameterKey, raw string) (ParameterValue, error) {
	v := ParameterValue{Type: key.Type, Identifying: key.Identifying}
	switch key.Type {
	case ParamString:
		v.StrVal = raw
	case ParamLong:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ParameterValue{}, fmt.Errorf("parameter %q: %w", key.Name, err)
		}
		v.LongVal = n
	case ParamDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ParameterValue{}, fmt.Errorf("parameter %q: %w", key.Name, err)
		}
		v.DoubleVal = f
	case ParamBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return ParameterValue{}, fmt.Errorf("parameter %q: %w", key.Name, err)
		}
		v.BoolVal = b
	default:
		return ParameterValue{}, fmt.Errorf("parameter %q: unknown type %q", key.Name, key.Type)
	}
	return v, nil
}

// ParameterView is the read-only facet of JobParameters handed to step
// bodies; it deliberately has no write methods so a step cannot mutate
// the parameter snapshot it was launched with.
type ParameterView interface {
	String(name string) (string, bool)
	Long(name string) (int64, bool)
	Double(name string) (float64, bool)
	Bool(name string) (bool, bool)
}

type paramView struct {
	params JobParameters
}

// NewParameterView wraps a JobParameters map as a read-only ParameterView.
func NewParameterView(p JobParameters) ParameterView { return paramView{params: p} }

func (v paramView) String(name string) (string, bool) {
	p, ok := v.params[name]
	if !ok || p.Type != ParamString {
		return "", false
	}
	return p.StrVal, true
}

func (v paramView) Long(name string) (int64, bool) {
	p, ok := v.params[name]
	if !ok || p.Type != ParamLong {
		return 0, false
	}
	return p.LongVal, true
}

func (v paramView) Double(name string) (float64, bool) {
	p, ok := v.params[name]
	if !ok || p.Type != ParamDouble {
		return 0, false
	}
	return p.DoubleVal, true
}

func (v paramView) Bool(name string) (bool, bool) {
	p, ok := v.params[name]
	if !ok || p.Type != ParamBool {
		return false, false
	}
	return p.BoolVal, true
}
