package events

import "time"

// EventType enumerates the lifecycle transitions published by the step
// pipeline runtime as it drives an execution from start to a terminal
// status.
type EventType string

const (
	JobStarted    EventType = "JOB_STARTED"
	StepCompleted EventType = "STEP_COMPLETED"
	JobCompleted  EventType = "JOB_COMPLETED"
	JobFailed     EventType = "JOB_FAILED"
	JobStopped    EventType = "JOB_STOPPED"
)

// Envelope is the JSON event shape published to subscribers. StepName
// and Progress are only populated for step events.
type Envelope struct {
	EventType       EventType  `json:"eventType"`
	Timestamp       time.Time  `json:"timestamp"`
	ExecutionID     string     `json:"executionId"`
	JobName         string     `json:"jobName"`
	Status          string     `json:"status"`
	ExitCode        string     `json:"exitCode,omitempty"`
	ExitDescription string     `json:"exitDescription,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	TriggerID       string     `json:"triggerId,omitempty"`
	StepCount       int        `json:"stepCount"`
	ReadCount       int64      `json:"readCount"`
	WriteCount      int64      `json:"writeCount"`
	SkipCount       int64      `json:"skipCount"`
	StepName        string     `json:"stepName,omitempty"`
	Progress        int        `json:"progress,omitempty"`
}
