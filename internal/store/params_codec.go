package store

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/brightloop/batchcore/internal/domain"
)

type paramWire struct {
	Type        string  `json:"type"`
	Identifying bool    `json:"identifying"`
	StrVal      string  `json:"strVal,omitempty"`
	LongVal     int64   `json:"longVal,omitempty"`
	DoubleVal   float64 `json:"doubleVal,omitempty"`
	BoolVal     bool    `json:"boolVal,omitempty"`
}

// marshalParams serializes a JobParameters map into the JSON stored in
// JobExecution.ParametersSnapshot, preserving type and identifying-ness
// so findByTriggerId-style scans and audits can reconstruct typed values.
func marshalParams(params domain.JobParameters) (datatypes.JSON, error) {
	wire := make(map[string]paramWire, len(params))
	for name, v := range params {
		wire[name] = paramWire{
			Type:        string(v.Type),
			Identifying: v.Identifying,
			StrVal:      v.StrVal,
			LongVal:     v.LongVal,
			DoubleVal:   v.DoubleVal,
			BoolVal:     v.BoolVal,
		}
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// UnmarshalParams reverses marshalParams, used by callers that need to
// re-derive typed parameters from a persisted execution row.
func UnmarshalParams(raw datatypes.JSON) (domain.JobParameters, error) {
	if len(raw) == 0 {
		return domain.JobParameters{}, nil
	}
	var wire map[string]paramWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := make(domain.JobParameters, len(wire))
	for name, w := range wire {
		out[name] = domain.ParameterValue{
			Type:        domain.ParameterType(w.Type),
			Identifying: w.Identifying,
			StrVal:      w.StrVal,
			LongVal:     w.LongVal,
			DoubleVal:   w.DoubleVal,
			BoolVal:     w.BoolVal,
		}
	}
	return out, nil
}
