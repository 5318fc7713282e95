package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestChannelForMapsEventFamilies(t *testing.T) {
	c := Channels{Started: "st", Progress: "pr", Completed: "co", Failed: "fa"}
	cases := []struct {
		event EventType
		want  string
	}{
		{JobStarted, "st"},
		{StepCompleted, "pr"},
		{JobCompleted, "co"},
		{JobFailed, "fa"},
		{JobStopped, "fa"}, // stopped shares the failed channel
	}
	for _, tc := range cases {
		if got := c.ChannelFor(tc.event); got != tc.want {
			t.Fatalf("ChannelFor(%v) = %q, want %q", tc.event, got, tc.want)
		}
	}
}

func TestEnvelopeJSONFieldNames(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	env := Envelope{
		EventType:   StepCompleted,
		Timestamp:   start,
		ExecutionID: "e-1",
		JobName:     "demo",
		Status:      "STARTED",
		StartTime:   &start,
		TriggerID:   "t-1",
		StepCount:   2,
		ReadCount:   10,
		StepName:    "s1",
		Progress:    50,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"eventType", "timestamp", "executionId", "jobName", "status", "triggerId", "stepCount", "readCount", "stepName", "progress"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("envelope JSON missing %q: %s", key, raw)
		}
	}
	// Empty optional fields are omitted so subscribers never see
	// zero-value noise for job-level events.
	if _, ok := m["exitCode"]; ok {
		t.Fatalf("empty exitCode should be omitted: %s", raw)
	}
	if _, ok := m["endTime"]; ok {
		t.Fatalf("nil endTime should be omitted: %s", raw)
	}
}

func TestMemoryPublisherRecordsInOrder(t *testing.T) {
	p := NewMemoryPublisher()
	for i, et := range []EventType{JobStarted, StepCompleted, JobCompleted} {
		if err := p.Publish(context.Background(), "ch", Envelope{EventType: et, Progress: i}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	got := p.Snapshot()
	if len(got) != 3 {
		t.Fatalf("Snapshot has %d events, want 3", len(got))
	}
	if got[0].Envelope.EventType != JobStarted || got[2].Envelope.EventType != JobCompleted {
		t.Fatalf("events out of order: %+v", got)
	}
}
