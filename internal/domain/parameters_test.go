package domain

import "testing"

func TestCoerceParam(t *testing.T) {
	cases := []struct {
		name    string
		key     ParameterKey
		raw     string
		wantErr bool
	}{
		{"string", ParameterKey{Name: "dept", Type: ParamString}, "finance", false},
		{"long ok", ParameterKey{Name: "n", Type: ParamLong}, "42", false},
		{"long bad", ParameterKey{Name: "n", Type: ParamLong}, "not-a-number", true},
		{"double ok", ParameterKey{Name: "f", Type: ParamDouble}, "3.14", false},
		{"bool ok", ParameterKey{Name: "b", Type: ParamBool}, "true", false},
		{"bool bad", ParameterKey{Name: "b", Type: ParamBool}, "maybe", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CoerceParam(tc.key, tc.raw)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CoerceParam(%+v, %q) error = %v, wantErr %v", tc.key, tc.raw, err, tc.wantErr)
			}
		})
	}
}

func TestIdentifyingKeyIgnoresOrderAndNonIdentifying(t *testing.T) {
	a := JobParameters{
		"triggerId": {Type: ParamString, Identifying: true, StrVal: "t1"},
		"fileType":  {Type: ParamString, Identifying: true, StrVal: "payment_file"},
		"comment":   {Type: ParamString, StrVal: "not identifying"},
	}
	b := JobParameters{
		"fileType":  {Type: ParamString, Identifying: true, StrVal: "payment_file"},
		"triggerId": {Type: ParamString, Identifying: true, StrVal: "t1"},
		"comment":   {Type: ParamString, StrVal: "different, ignored"},
	}
	if a.IdentifyingKey() != b.IdentifyingKey() {
		t.Fatalf("IdentifyingKey should be order-independent and ignore non-identifying params: %q vs %q", a.IdentifyingKey(), b.IdentifyingKey())
	}
}

func TestIdentifyingKeyDiffersOnIdentifyingValue(t *testing.T) {
	a := JobParameters{"triggerId": {Type: ParamString, Identifying: true, StrVal: "t1"}}
	b := JobParameters{"triggerId": {Type: ParamString, Identifying: true, StrVal: "t2"}}
	if a.IdentifyingKey() == b.IdentifyingKey() {
		t.Fatalf("IdentifyingKey should differ when an identifying value differs")
	}
}

func TestParameterViewTypedAccessors(t *testing.T) {
	params := JobParameters{
		"name":   {Type: ParamString, StrVal: "acme"},
		"count":  {Type: ParamLong, LongVal: 7},
		"weight": {Type: ParamDouble, DoubleVal: 2.5},
		"active": {Type: ParamBool, BoolVal: true},
	}
	view := NewParameterView(params)

	if s, ok := view.String("name"); !ok || s != "acme" {
		t.Fatalf("String(name) = (%q, %v), want (acme, true)", s, ok)
	}
	if n, ok := view.Long("count"); !ok || n != 7 {
		t.Fatalf("Long(count) = (%d, %v), want (7, true)", n, ok)
	}
	if f, ok := view.Double("weight"); !ok || f != 2.5 {
		t.Fatalf("Double(weight) = (%v, %v), want (2.5, true)", f, ok)
	}
	if b, ok := view.Bool("active"); !ok || !b {
		t.Fatalf("Bool(active) = (%v, %v), want (true, true)", b, ok)
	}
	if _, ok := view.String("count"); ok {
		t.Fatalf("String(count) should fail: count is a long, not a string")
	}
	if _, ok := view.Long("missing"); ok {
		t.Fatalf("Long(missing) should report ok=false")
	}
}
