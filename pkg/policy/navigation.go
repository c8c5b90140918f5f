package policy

import (
	"context"
	"time"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/models"
)

// SettleMode selects what a post-action wait blocks on.
type SettleMode string

const (
	SettleNone        SettleMode = "none"
	SettleNavigation  SettleMode = "navigation"
	SettleNetworkIdle SettleMode = "networkIdle"
)

const (
	defaultIdleWindow    = 500 * time.Millisecond
	defaultSettleTimeout = 15 * time.Second
)

// SettleWait describes the after-action wait a step requested: block until
// the tab navigated away and completed, or until the network has been idle
// for the window, always bounded by the remaining global deadline.
type SettleWait struct {
	Mode       SettleMode
	IdleWindow time.Duration
	Timeout    time.Duration
}

// ParseSettleWait reads the "after" parameter block of an action:
// {waitForNavigation: bool, networkIdle: bool, idleMs: n, timeoutMs: n}.
// Returns nil when the action requested no settle wait.
func ParseSettleWait(params map[string]any) *SettleWait {
	after, ok := params["after"].(map[string]any)
	if !ok {
		return nil
	}

	wait := &SettleWait{
		Mode:       SettleNone,
		IdleWindow: defaultIdleWindow,
		Timeout:    defaultSettleTimeout,
	}

	if v, ok := after["waitForNavigation"].(bool); ok && v {
		wait.Mode = SettleNavigation
	}

	if v, ok := after["networkIdle"].(bool); ok && v {
		wait.Mode = SettleNetworkIdle
	}

	if ms := intValue(after["idleMs"]); ms > 0 {
		wait.IdleWindow = time.Duration(ms) * time.Millisecond
	}

	if ms := intValue(after["timeoutMs"]); ms > 0 {
		wait.Timeout = ClampTimeout(ms)
	}

	if wait.Mode == SettleNone {
		return nil
	}

	return wait
}

// DefaultSettleWait returns a wait in the given mode with the default idle
// window and timeout, for actions that settle even without an "after" block.
func DefaultSettleWait(mode SettleMode) *SettleWait {
	return &SettleWait{
		Mode:       mode,
		IdleWindow: defaultIdleWindow,
		Timeout:    defaultSettleTimeout,
	}
}

// AwaitSettled blocks per the wait mode. fromURL is the tab URL captured
// before the action, so a navigation wait can detect the URL change. The
// context's deadline caps the wait below the configured timeout.
func AwaitSettled(ctx context.Context, drv browser.Driver, tabID, fromURL string, wait *SettleWait) error {
	if wait == nil || wait.Mode == SettleNone {
		return nil
	}

	timeout := wait.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if timeout <= 0 {
		return models.NewStepError(models.CodeTimeout, "no time left for settle wait")
	}

	var err error

	switch wait.Mode {
	case SettleNavigation:
		err = drv.WaitForNavigation(ctx, tabID, fromURL, timeout)
	case SettleNetworkIdle:
		err = drv.WaitForNetworkIdle(ctx, tabID, wait.IdleWindow, timeout)
	}

	if err != nil {
		if ctx.Err() != nil {
			return models.NewStepError(models.CodeTimeout, "settle wait interrupted: %v", err)
		}

		return models.NewStepError(models.CodeNavigationFailed, "settle wait failed: %v", err)
	}

	return nil
}

func intValue(v any) int {
	switch value := v.(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return 0
	}
}
