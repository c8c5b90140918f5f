package protocol

import (
	"context"
	"errors"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/models"
)

// ErrUnsupportedType is returned by an executor that cannot dispatch the
// action type. The hybrid executor treats it as a fallback signal.
var ErrUnsupportedType = errors.New("unsupported action type")

// StepExecutor is the dispatch strategy interface the orchestrator drives.
// Legacy, registry-based and hybrid executors are interchangeable behind it
// and must return equivalent ExecutionResult shapes.
type StepExecutor interface {
	// Name identifies the dispatch tier for logs.
	Name() string
	// Supports reports whether the executor can dispatch the type.
	Supports(t models.ActionType) bool
	// Execute runs a single step. Retry and timeout policy are applied by
	// the caller.
	Execute(ctx context.Context, ec *ExecContext, action *models.Action) (*models.ExecutionResult, error)
}

func browserIs(err, target error) bool {
	return errors.Is(err, target)
}

// ClassifyBrowserError maps collaborator failures onto the engine error
// taxonomy. Handlers use it so every tier reports the same codes.
func ClassifyBrowserError(err error, fallback models.ErrorCode) *models.StepError {
	switch {
	case err == nil:
		return nil
	case browserIs(err, browser.ErrTabNotFound):
		return models.NewStepError(models.CodeTabNotFound, "%v", err)
	case browserIs(err, browser.ErrFrameNotFound):
		return models.NewStepError(models.CodeFrameNotFound, "%v", err)
	case browserIs(err, browser.ErrRefNotFound), browserIs(err, browser.ErrRefExpired):
		return models.NewStepError(models.CodeTargetNotFound, "%v", err)
	case browserIs(err, context.DeadlineExceeded):
		return models.NewStepError(models.CodeTimeout, "%v", err)
	default:
		return models.NewStepError(fallback, "%v", err)
	}
}
