// Package events defines the run lifecycle event types published on the
// event bus.
package events

import (
	"time"

	"github.com/retrace-dev/retrace/pkg/models"
)

type EventType string

// Topic is the bus topic all run events are published on.
const Topic = "retrace.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
	RunPausedEvent    EventType = "run.paused"
	RunResumedEvent   EventType = "run.resumed"

	StepStartedEvent   EventType = "step.started"
	StepRetryingEvent  EventType = "step.retrying"
	StepCompletedEvent EventType = "step.completed"
	StepFailedEvent    EventType = "step.failed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	FlowID    string    `json:"flow_id"`
}

type RunStarted struct {
	BaseEvent

	StartURL string `json:"start_url,omitempty"`
}

func (e RunStarted) GetType() EventType { return RunStartedEvent }

type RunCompleted struct {
	BaseEvent

	Summary  models.RunSummary `json:"summary"`
	Duration time.Duration     `json:"duration"`
}

func (e RunCompleted) GetType() EventType { return RunCompletedEvent }

type RunFailed struct {
	BaseEvent

	StepID string `json:"step_id,omitempty"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
}

func (e RunFailed) GetType() EventType { return RunFailedEvent }

type RunPaused struct {
	BaseEvent

	NodeID string `json:"node_id"`
}

func (e RunPaused) GetType() EventType { return RunPausedEvent }

type RunResumed struct {
	BaseEvent

	NodeID string `json:"node_id"`
}

func (e RunResumed) GetType() EventType { return RunResumedEvent }

type StepStarted struct {
	BaseEvent

	StepID   string `json:"step_id"`
	StepType string `json:"step_type"`
}

func (e StepStarted) GetType() EventType { return StepStartedEvent }

type StepRetrying struct {
	BaseEvent

	StepID  string `json:"step_id"`
	Attempt int    `json:"attempt"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason"`
}

func (e StepRetrying) GetType() EventType { return StepRetryingEvent }

type StepCompleted struct {
	BaseEvent

	StepID   string        `json:"step_id"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
}

func (e StepCompleted) GetType() EventType { return StepCompletedEvent }

type StepFailed struct {
	BaseEvent

	StepID string `json:"step_id"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
}

func (e StepFailed) GetType() EventType { return StepFailedEvent }
