package models

// BackoffKind selects how retry intervals grow between attempts.
type BackoffKind string

const (
	BackoffNone   BackoffKind = "none"
	BackoffLinear BackoffKind = "linear"
	BackoffExp    BackoffKind = "exp"
)

// RetryPolicy bounds re-execution of a failed step. Retries is the number of
// additional attempts after the first, so a step runs at most Retries+1
// times. An empty RetryOn list retries on every error code.
type RetryPolicy struct {
	Retries       int         `json:"retries"               validate:"min=0,max=20"`
	IntervalMs    int         `json:"intervalMs,omitempty"`
	Backoff       BackoffKind `json:"backoff,omitempty"     validate:"omitempty,oneof=none linear exp"`
	MaxIntervalMs int         `json:"maxIntervalMs,omitempty"`
	Jitter        bool        `json:"jitter,omitempty"`
	RetryOn       []ErrorCode `json:"retryOn,omitempty"`
}

// TimeoutScope selects what a timeout bounds: one attempt, or the whole
// action including its retries.
type TimeoutScope string

const (
	TimeoutScopeAttempt TimeoutScope = "attempt"
	TimeoutScopeAction  TimeoutScope = "action"
)

// TimeoutPolicy bounds step execution time. Ms is clamped to engine-wide
// minimum/maximum bounds before use.
type TimeoutPolicy struct {
	Ms    int          `json:"ms"              validate:"min=0"`
	Scope TimeoutScope `json:"scope,omitempty" validate:"omitempty,oneof=attempt action"`
}

// OnErrorStrategy decides how the orchestrator routes after a step failure.
type OnErrorStrategy string

const (
	OnErrorStop     OnErrorStrategy = "stop"
	OnErrorContinue OnErrorStrategy = "continue"
	OnErrorGoto     OnErrorStrategy = "goto"
)

// OnErrorPolicy routes a failed step: stop the run, continue along the
// default edge at the given log level, or jump to the edge carrying Label.
type OnErrorPolicy struct {
	Strategy OnErrorStrategy `json:"strategy" validate:"required,oneof=stop continue goto"`
	Level    string          `json:"level,omitempty"`
	Label    string          `json:"label,omitempty"`
}

// ArtifactPolicy overrides run-level artifact capture for one step.
type ArtifactPolicy struct {
	ScreenshotOnFailure *bool `json:"screenshotOnFailure,omitempty"`
}

// StepPolicy groups the per-step policy overrides. All fields are optional;
// the policy layer supplies defaults.
type StepPolicy struct {
	Timeout   *TimeoutPolicy  `json:"timeout,omitempty"`
	Retry     *RetryPolicy    `json:"retry,omitempty"`
	OnError   *OnErrorPolicy  `json:"onError,omitempty"`
	Artifacts *ArtifactPolicy `json:"artifacts,omitempty"`
}

// MaxAttempts returns the attempt budget for the step: retries plus the
// initial attempt.
func (p *RetryPolicy) MaxAttempts() int {
	if p == nil || p.Retries < 0 {
		return 1
	}

	return p.Retries + 1
}

// ShouldRetry reports whether the given error code is in the retryable set.
func (p *RetryPolicy) ShouldRetry(code ErrorCode) bool {
	if p == nil {
		return false
	}

	if len(p.RetryOn) == 0 {
		return true
	}

	for _, c := range p.RetryOn {
		if c == code {
			return true
		}
	}

	return false
}
