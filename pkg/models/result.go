package models

import "time"

// StepStatus is the outcome of one step execution.
type StepStatus string

const (
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
	StepStatusPaused  StepStatus = "paused"
)

// ExecutionResult is the per-step result shape every executor tier must
// return equivalently.
type ExecutionResult struct {
	Status    StepStatus        `json:"status"`
	Output    any               `json:"output,omitempty"`
	Error     *StepError        `json:"error,omitempty"`
	NextLabel string            `json:"nextLabel,omitempty"`
	Control   *ControlDirective `json:"control,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// Succeeded reports whether the step completed without failing.
func (r *ExecutionResult) Succeeded() bool {
	return r != nil && r.Status == StepStatusSuccess
}

// SuccessResult builds a successful result with an optional output value.
func SuccessResult(output any) *ExecutionResult {
	return &ExecutionResult{Status: StepStatusSuccess, Output: output}
}

// FailedResult builds a failed result from a classified error.
func FailedResult(err *StepError) *ExecutionResult {
	return &ExecutionResult{Status: StepStatusFailed, Error: err}
}

// RunStatus is the orchestrator's lifecycle state.
type RunStatus string

const (
	RunStatusPreparing RunStatus = "preparing"
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunSummary aggregates per-step outcomes for one run.
type RunSummary struct {
	Total   int   `json:"total"`
	Success int   `json:"success"`
	Failed  int   `json:"failed"`
	TookMs  int64 `json:"tookMs"`
}

// RunLogEntry is one structured log line emitted per step transition to the
// logger collaborator for live display and durable persistence.
type RunLogEntry struct {
	StepID           string    `json:"stepId"`
	Status           string    `json:"status"`
	Message          string    `json:"message,omitempty"`
	TookMs           int64     `json:"tookMs,omitempty"`
	ScreenshotBase64 string    `json:"screenshotBase64,omitempty"`
	FallbackUsed     bool      `json:"fallbackUsed,omitempty"`
	FallbackFrom     string    `json:"fallbackFrom,omitempty"`
	FallbackTo       string    `json:"fallbackTo,omitempty"`
	At               time.Time `json:"at,omitzero"`
}

// RunResult is returned synchronously to the caller of "run flow". Outputs is
// the non-sensitive variable snapshot at run end.
type RunResult struct {
	RunID             string         `json:"runId"`
	FlowID            string         `json:"flowId"`
	Success           bool           `json:"success"`
	Summary           RunSummary     `json:"summary"`
	Outputs           map[string]any `json:"outputs,omitempty"`
	Logs              []RunLogEntry  `json:"logs,omitempty"`
	FailureScreenshot string         `json:"failureScreenshot,omitempty"`
	Paused            bool           `json:"paused,omitempty"`
	PausedNodeID      string         `json:"pausedNodeId,omitempty"`
}

// RunRecord is the durable form of a finished run, appended to the run
// repository by the orchestrator's cleanup phase.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	FlowID     string    `json:"flow_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Result     RunResult `json:"result"`
}
