// Package jsengine wraps a goja runtime for script steps and condition
// evaluation. Scripts see the run variables as a `vars` object and can signal
// structured results by returning a value.
package jsengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dop251/goja"

	"github.com/retrace-dev/retrace/pkg/models"
)

// Engine is a reusable JavaScript runtime. Safe for sequential reuse across
// steps; the mutex guards the rare concurrent foreach case.
type Engine struct {
	mu     sync.Mutex
	rt     *goja.Runtime
	logger *slog.Logger
}

// New creates an engine with console logging routed to the structured logger.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{rt: goja.New(), logger: logger.With("module", "jsengine")}
	e.setupConsole()

	return e
}

func (e *Engine) setupConsole() {
	console := e.rt.NewObject()

	logFn := func(level slog.Level) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]any, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}

			e.logger.Log(context.Background(), level, fmt.Sprint(args...))

			return goja.Undefined()
		}
	}

	_ = console.Set("log", logFn(slog.LevelInfo))
	_ = console.Set("warn", logFn(slog.LevelWarn))
	_ = console.Set("error", logFn(slog.LevelError))
	_ = e.rt.Set("console", console)
}

// Evaluate runs the script with vars bound and returns the exported result.
// Cancelling the context interrupts a running script; other failures are
// classified as SCRIPT_FAILED.
func (e *Engine) Evaluate(ctx context.Context, script string, vars map[string]any) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.rt.Set("vars", vars); err != nil {
		return nil, models.NewStepError(models.CodeScriptFailed, "binding vars: %v", err)
	}

	stop := context.AfterFunc(ctx, func() {
		e.rt.Interrupt(ctx.Err())
	})
	defer func() {
		if !stop() {
			// The interrupt fired; reset it so the runtime stays reusable.
			e.rt.ClearInterrupt()
		}
	}()

	value, err := e.rt.RunString(script)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) || ctx.Err() != nil {
			return nil, models.NewStepError(models.CodeTimeout, "script interrupted: %v", ctx.Err())
		}

		return nil, models.NewStepError(models.CodeScriptFailed, "%v", err)
	}

	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}

	return value.Export(), nil
}

// EvaluateBool evaluates a condition expression to a boolean using JavaScript
// truthiness.
func (e *Engine) EvaluateBool(ctx context.Context, expr string, vars map[string]any) (bool, error) {
	result, err := e.Evaluate(ctx, expr, vars)
	if err != nil {
		return false, err
	}

	return truthy(result), nil
}

func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != "" && value != "false" && value != "0"
	case int64:
		return value != 0
	case float64:
		return value != 0
	default:
		return true
	}
}
