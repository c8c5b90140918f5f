package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/retrace-dev/retrace/pkg/eventbus"
	"github.com/retrace-dev/retrace/pkg/events"
	"github.com/retrace-dev/retrace/pkg/models"
)

// publish sends a lifecycle event keyed by flow id. Delivery failures are
// logged and never fail the run.
func (o *Orchestrator) publish(ctx context.Context, event eventbus.Event) {
	if o.cfg.Publisher == nil || event == nil {
		return
	}

	if err := o.cfg.Publisher.Publish(ctx, eventKey(event), event); err != nil {
		o.logger.WarnContext(ctx, "publishing run event", "event", event.GetType(), "error", err)
	}
}

func eventKey(event eventbus.Event) string {
	return string(event.GetType())
}

func (o *Orchestrator) base(r *run, eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     r.opts.RunID,
		FlowID:    r.flow.ID,
	}
}

func (o *Orchestrator) runStarted(r *run, startURL string) eventbus.Event {
	return events.RunStarted{
		BaseEvent: o.base(r, events.RunStartedEvent),
		StartURL:  startURL,
	}
}

func (o *Orchestrator) runResumed(r *run, nodeID string) eventbus.Event {
	return events.RunResumed{
		BaseEvent: o.base(r, events.RunResumedEvent),
		NodeID:    nodeID,
	}
}

func (o *Orchestrator) runCompleted(r *run, summary models.RunSummary) eventbus.Event {
	return events.RunCompleted{
		BaseEvent: o.base(r, events.RunCompletedEvent),
		Summary:   summary,
		Duration:  time.Since(r.startedAt),
	}
}

func (o *Orchestrator) runFailed(r *run, outcome error) eventbus.Event {
	event := events.RunFailed{
		BaseEvent: o.base(r, events.RunFailedEvent),
		Reason:    outcome.Error(),
	}

	r.mu.Lock()
	if r.failure != nil {
		event.StepID = r.failedStepID
		event.Code = string(r.failure.Code)
	}
	r.mu.Unlock()

	return event
}

func (o *Orchestrator) runPaused(r *run) eventbus.Event {
	return events.RunPaused{
		BaseEvent: o.base(r, events.RunPausedEvent),
		NodeID:    r.pausedNodeID,
	}
}

func (o *Orchestrator) stepStarted(r *run, node *models.Action) eventbus.Event {
	return events.StepStarted{
		BaseEvent: o.base(r, events.StepStartedEvent),
		StepID:    node.ID,
		StepType:  string(node.Type),
	}
}

func (o *Orchestrator) stepRetrying(r *run, stepID string, attempt int, stepErr *models.StepError) eventbus.Event {
	event := events.StepRetrying{
		BaseEvent: o.base(r, events.StepRetryingEvent),
		StepID:    stepID,
		Attempt:   attempt,
	}

	if stepErr != nil {
		event.Code = string(stepErr.Code)
		event.Reason = stepErr.Message
	}

	return event
}

func (o *Orchestrator) stepCompleted(r *run, stepID string, status models.StepStatus, took time.Duration) eventbus.Event {
	return events.StepCompleted{
		BaseEvent: o.base(r, events.StepCompletedEvent),
		StepID:    stepID,
		Status:    string(status),
		Duration:  took,
	}
}

func (o *Orchestrator) stepFailed(r *run, stepID string, stepErr *models.StepError) eventbus.Event {
	return events.StepFailed{
		BaseEvent: o.base(r, events.StepFailedEvent),
		StepID:    stepID,
		Code:      string(stepErr.Code),
		Reason:    stepErr.Message,
	}
}
