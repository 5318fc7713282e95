package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates one admin HTTP request with the batchcore
// execution(s) it touches. TraceID/RequestID identify the inbound
// request itself; ExecutionID is filled in once a handler resolves which
// execution the request concerns, so a log line emitted deep in the
// coordinator or pipeline runtime can still be tied back to the admin
// call that triggered it.
type TraceData struct {
	TraceID     string
	RequestID   string
	ExecutionID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// WithExecutionID records the execution id a request resolved to on the
// TraceData already attached to ctx, if any. A no-op when the context
// carries no TraceData (e.g. in tests that skip the gin middleware).
func WithExecutionID(ctx context.Context, executionID string) {
	if td := GetTraceData(ctx); td != nil {
		td.ExecutionID = executionID
	}
}
