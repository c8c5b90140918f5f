package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/otelhelper"
	"github.com/retrace-dev/retrace/pkg/policy"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/runstate"
)

// errPaused propagates a pause decision up through nested subflows without
// being mistaken for a step failure.
var errPaused = errors.New("run paused")

// runGraph walks one node/edge set from start until no next node remains.
// The main flow and every subflow go through here; they differ only in
// which nodes and edges they carry.
func (o *Orchestrator) runGraph(ctx context.Context, r *run, ec *protocol.ExecContext, nodes []*models.Action, edges []*models.Edge, start string) error {
	current := start

	for current != "" {
		if err := ctx.Err(); err != nil {
			return models.NewStepError(models.CodeTimeout, "run deadline exceeded at node %s", current)
		}

		node, ok := models.FindNode(nodes, current)
		if !ok {
			return fmt.Errorf("edge points to unknown node %q", current)
		}

		if node.Type.IsTrigger() {
			current, _ = models.NextByLabel(edges, node.ID, models.EdgeLabelDefault)

			continue
		}

		if !r.nextIteration(o.cfg.MaxIterations) {
			return fmt.Errorf("iteration budget of %d exhausted at node %s", o.cfg.MaxIterations, node.ID)
		}

		if ec == r.ec {
			o.putState(ctx, r, models.RunStatusRunning, node.ID)
		}

		label, err := o.executeStep(ctx, r, ec, edges, node)
		if err != nil {
			return err
		}

		current, _ = models.NextByLabel(edges, node.ID, label)
	}

	return nil
}

// executeStep runs one node under its policy envelope and returns the edge
// label to follow next. A returned error halts the graph.
func (o *Orchestrator) executeStep(ctx context.Context, r *run, ec *protocol.ExecContext, edges []*models.Edge, node *models.Action) (string, error) {
	decision, err := o.cfg.Hooks.BeforeStep(ctx, ec, node)
	if err != nil {
		return "", fmt.Errorf("before-step hook: %w", err)
	}

	if decision != nil && decision.Pause {
		r.mu.Lock()
		r.paused = true
		r.pausedNodeID = node.ID
		r.mu.Unlock()

		ec.Log(models.RunLogEntry{StepID: node.ID, Status: string(models.StepStatusPaused)})

		return "", errPaused
	}

	if decision != nil && decision.Skip {
		r.count(models.StepStatusSkipped)
		ec.Log(models.RunLogEntry{StepID: node.ID, Status: string(models.StepStatusSkipped)})
		o.publish(ctx, o.stepCompleted(r, node.ID, models.StepStatusSkipped, 0))

		return models.EdgeLabelDefault, nil
	}

	if o.cfg.Tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.cfg.Tracer, "flow.step",
			attribute.String(otelhelper.StepIDKey, node.ID),
			attribute.String(otelhelper.StepTypeKey, string(node.Type)),
		)
		defer span.End()
	}

	o.publish(ctx, o.stepStarted(r, node))

	started := time.Now()
	result := o.runUnderPolicy(ctx, r, ec, node)

	var controlLabel string

	if result.Succeeded() && result.Control != nil {
		controlLabel, err = o.control.Apply(ctx, ec, result.Control, &subflowExec{o: o, r: r})

		switch {
		case errors.Is(err, errPaused):
			return "", errPaused
		case err != nil:
			result = models.FailedResult(models.AsStepError(err))
		}
	}

	took := time.Since(started)
	result.Duration = took

	o.cfg.Hooks.AfterStep(ctx, ec, node, result)
	r.count(result.Status)

	if result.Succeeded() {
		ec.Log(models.RunLogEntry{StepID: node.ID, Status: string(result.Status), TookMs: took.Milliseconds()})
		o.publish(ctx, o.stepCompleted(r, node.ID, result.Status, took))

		return o.successLabel(ctx, ec, node, result, controlLabel), nil
	}

	if result.Error != nil {
		otelhelper.RecordFailure(trace.SpanFromContext(ctx), result.Error,
			attribute.String(otelhelper.StepIDKey, node.ID))
	}

	return o.routeFailure(ctx, r, ec, edges, node, result, took)
}

// runUnderPolicy applies the step's timeout and retry envelope around the
// executor. Failed attempts that will be retried emit a retrying log entry,
// fire OnRetry hooks, and publish a StepRetrying event.
func (o *Orchestrator) runUnderPolicy(ctx context.Context, r *run, ec *protocol.ExecContext, node *models.Action) *models.ExecutionResult {
	var pol models.StepPolicy
	if node.Policy != nil {
		pol = *node.Policy
	}

	actionCtx, cancel := policy.ActionContext(ctx, pol.Timeout)
	defer cancel()

	notify := func(attempt int, stepErr *models.StepError, nextDelay time.Duration) {
		msg := ""
		if stepErr != nil {
			msg = stepErr.Message
		}

		ec.Log(models.RunLogEntry{
			StepID:  node.ID,
			Status:  "retrying",
			Message: fmt.Sprintf("attempt %d failed, retrying in %s: %s", attempt, nextDelay, msg),
		})
		o.cfg.Hooks.OnRetry(ctx, ec, node, attempt, stepErr)
		o.publish(ctx, o.stepRetrying(r, node.ID, attempt, stepErr))
	}

	return policy.Execute(actionCtx, pol.Retry, notify, func(ctx context.Context, attempt int) *models.ExecutionResult {
		attemptCtx, cancel := policy.AttemptContext(ctx, pol.Timeout)
		defer cancel()

		result, err := o.cfg.Executor.Execute(attemptCtx, ec, node)
		if err != nil {
			return models.FailedResult(models.AsStepError(err))
		}

		if result == nil {
			return models.SuccessResult(nil)
		}

		return result
	})
}

// successLabel resolves the edge to follow after a successful step:
// the handler's explicit label wins, then a hook override, then the label a
// control directive selected, then the default edge.
func (o *Orchestrator) successLabel(ctx context.Context, ec *protocol.ExecContext, node *models.Action, result *models.ExecutionResult, controlLabel string) string {
	if result.NextLabel != "" {
		return result.NextLabel
	}

	if label := o.cfg.Hooks.ChooseNextLabel(ctx, ec, node, result); label != "" {
		return label
	}

	if controlLabel != "" {
		return controlLabel
	}

	return models.EdgeLabelDefault
}

// routeFailure applies error routing after the retry budget is spent:
// continue walks the default edge, goto jumps to a named edge, stop follows
// an onError edge when one exists and otherwise halts the run.
func (o *Orchestrator) routeFailure(ctx context.Context, r *run, ec *protocol.ExecContext, edges []*models.Edge, node *models.Action, result *models.ExecutionResult, took time.Duration) (string, error) {
	stepErr := result.Error
	if stepErr == nil {
		stepErr = models.NewStepError(models.CodeUnknown, "step failed without error detail")
	}

	ec.Log(models.RunLogEntry{
		StepID:  node.ID,
		Status:  string(models.StepStatusFailed),
		Message: stepErr.Error(),
		TookMs:  took.Milliseconds(),
	})
	o.cfg.Hooks.OnError(ctx, ec, node, stepErr)
	o.publish(ctx, o.stepFailed(r, node.ID, stepErr))
	o.captureFailure(ctx, r, ec, node)

	onErr := policy.ResolveOnError(policyOf(node).OnError)

	switch onErr.Strategy {
	case models.OnErrorContinue:
		o.logger.WarnContext(ctx, "step failed, continuing",
			"step", node.ID, "code", stepErr.Code, "error", stepErr.Message)

		return models.EdgeLabelDefault, nil

	case models.OnErrorGoto:
		if _, ok := models.NextByLabel(edges, node.ID, onErr.Label); !ok {
			return "", fmt.Errorf("step %s: onError goto label %q has no edge", node.ID, onErr.Label)
		}

		return onErr.Label, nil

	default:
		if _, ok := models.NextByLabel(edges, node.ID, models.EdgeLabelOnError); ok {
			return models.EdgeLabelOnError, nil
		}

		r.mu.Lock()
		r.failure = stepErr
		r.failedStepID = node.ID
		r.mu.Unlock()

		return "", fmt.Errorf("step %s: %w", node.ID, stepErr)
	}
}

// captureFailure takes the failure screenshot once per run, honoring the
// per-step artifact override.
func (o *Orchestrator) captureFailure(ctx context.Context, r *run, ec *protocol.ExecContext, node *models.Action) {
	enabled := ec.Flags.ScreenshotOnFailure

	pol := policyOf(node)
	if pol.Artifacts != nil && pol.Artifacts.ScreenshotOnFailure != nil {
		enabled = *pol.Artifacts.ScreenshotOnFailure
	}

	if !enabled {
		return
	}

	r.mu.Lock()
	alreadyTaken := r.failureShot != ""
	r.mu.Unlock()

	if alreadyTaken {
		return
	}

	shot, err := o.cfg.Driver.Screenshot(ctx, ec.TabID)
	if err != nil {
		o.logger.WarnContext(ctx, "failure screenshot unavailable", "step", node.ID, "error", err)

		return
	}

	r.mu.Lock()
	r.failureShot = base64.StdEncoding.EncodeToString(shot)
	r.mu.Unlock()
}

func policyOf(node *models.Action) models.StepPolicy {
	if node.Policy == nil {
		return models.StepPolicy{}
	}

	return *node.Policy
}

// subflowExec lets the control-flow runner re-enter the graph walker for
// subflow bodies.
type subflowExec struct {
	o *Orchestrator
	r *run
}

func (s *subflowExec) RunSubflow(ctx context.Context, ec *protocol.ExecContext, subflowID string) error {
	sub, ok := s.r.flow.Subflows[subflowID]
	if !ok {
		return fmt.Errorf("subflow %q not defined", subflowID)
	}

	roots := models.Roots(sub.Nodes, sub.Edges)
	if len(roots) == 0 {
		return fmt.Errorf("subflow %q has no start node", subflowID)
	}

	return s.o.runGraph(ctx, s.r, ec, sub.Nodes, sub.Edges, roots[0])
}

// finish is the always-run cleanup phase: stop capture, assemble the
// result, publish the terminal event, persist the record, and settle the
// run state registry.
func (o *Orchestrator) finish(ctx context.Context, r *run, outcome error) (*models.RunResult, error) {
	if o.cfg.CaptureNetwork {
		if summary, err := o.cfg.Driver.StopNetworkCapture(ctx, r.ec.TabID); err == nil && summary != nil {
			o.logger.InfoContext(ctx, "network capture stopped",
				"run", r.opts.RunID, "requests", summary.Requests, "failed", summary.Failed)
		}
	}

	summary := r.summary()

	result := &models.RunResult{
		RunID:             r.opts.RunID,
		FlowID:            r.flow.ID,
		Success:           outcome == nil,
		Summary:           summary,
		Outputs:           r.outputs(),
		Logs:              r.logs,
		FailureScreenshot: r.failureShot,
	}

	switch {
	case errors.Is(outcome, errPaused):
		result.Success = false
		result.Paused = true
		result.PausedNodeID = r.pausedNodeID

		o.publish(ctx, o.runPaused(r))
		o.putState(ctx, r, models.RunStatusPaused, r.pausedNodeID)
		o.logger.InfoContext(ctx, "run paused", "run", r.opts.RunID, "node", r.pausedNodeID)

		return result, nil

	case outcome != nil:
		o.publish(ctx, o.runFailed(r, outcome))
		o.logger.WarnContext(ctx, "run failed",
			"run", r.opts.RunID, "flow", r.flow.ID, "error", outcome,
			"total", summary.Total, "failed", summary.Failed)

	default:
		o.publish(ctx, o.runCompleted(r, summary))
		o.logger.InfoContext(ctx, "run completed",
			"run", r.opts.RunID, "flow", r.flow.ID,
			"total", summary.Total, "success", summary.Success, "tookMs", summary.TookMs)
	}

	o.persistRecord(ctx, r, result)
	o.deleteState(ctx, r)

	return result, nil
}

// outputs snapshots the variables the flow exports. An explicit output list
// in the flow metadata narrows the snapshot; sensitive values never leave.
func (r *run) outputs() map[string]any {
	snapshot := r.ec.Vars.Snapshot(true)

	names := r.flow.Metadata.Outputs
	if len(names) == 0 {
		return snapshot
	}

	out := make(map[string]any, len(names))

	for _, name := range names {
		if v, ok := snapshot[name]; ok {
			out[name] = v
		}
	}

	return out
}

func (o *Orchestrator) persistRecord(ctx context.Context, r *run, result *models.RunResult) {
	if o.cfg.Runs == nil {
		return
	}

	record := &models.RunRecord{
		RunID:      r.opts.RunID,
		FlowID:     r.flow.ID,
		StartedAt:  r.startedAt,
		FinishedAt: time.Now(),
		Result:     *result,
	}

	if err := o.cfg.Runs.AppendRun(ctx, record); err != nil {
		o.logger.ErrorContext(ctx, "persisting run record", "run", r.opts.RunID, "error", err)
	}
}

func (o *Orchestrator) putState(ctx context.Context, r *run, status models.RunStatus, currentNode string) {
	if o.cfg.States == nil {
		return
	}

	state := &runstate.State{
		RunID:       r.opts.RunID,
		FlowID:      r.flow.ID,
		Status:      status,
		CurrentNode: currentNode,
		StartedAt:   r.startedAt,
	}

	if status == models.RunStatusPaused {
		state.PausedNodeID = currentNode
	}

	if err := o.cfg.States.Put(ctx, state); err != nil {
		o.logger.WarnContext(ctx, "updating run state", "run", r.opts.RunID, "error", err)
	}
}

func (o *Orchestrator) deleteState(ctx context.Context, r *run) {
	if o.cfg.States == nil {
		return
	}

	if err := o.cfg.States.Delete(ctx, r.opts.RunID); err != nil && !errors.Is(err, runstate.ErrStateNotFound) {
		o.logger.WarnContext(ctx, "clearing run state", "run", r.opts.RunID, "error", err)
	}
}
