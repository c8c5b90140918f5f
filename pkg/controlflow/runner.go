// Package controlflow executes the nested-subflow directives: if branch
// selection, foreach and loopElements iteration, while loops, and one-shot
// subflow calls.
package controlflow

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"golang.org/x/sync/errgroup"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// DefaultMaxIterations caps while loops that do not set their own bound,
// guaranteeing termination regardless of condition truth.
const DefaultMaxIterations = 100

// SubflowExecutor runs one named subflow to completion against the given
// execution context. The orchestrator implements it; the runner recurses
// through it.
type SubflowExecutor interface {
	RunSubflow(ctx context.Context, ec *protocol.ExecContext, subflowID string) error
}

// Runner interprets control directives emitted by step results.
type Runner struct {
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{logger: logger.With("module", "controlflow")}
}

// Apply executes a directive and returns the next-edge label it selected,
// or empty for the default edge. Loop directives return an error when any
// iteration fails; the orchestrator treats it like a step failure.
func (r *Runner) Apply(ctx context.Context, ec *protocol.ExecContext, directive *models.ControlDirective, exec SubflowExecutor) (string, error) {
	switch directive.Kind {
	case models.ControlIf:
		return r.applyIf(ctx, ec, directive.If)
	case models.ControlForeach:
		return "", r.applyForeach(ctx, ec, directive.Foreach, exec)
	case models.ControlWhile:
		return "", r.applyWhile(ctx, ec, directive.While, exec)
	case models.ControlLoopElements:
		return "", r.applyLoopElements(ctx, ec, directive.LoopElements, exec)
	case models.ControlExecuteFlow:
		return "", r.applyExecuteFlow(ctx, ec, directive.ExecuteFlow, exec)
	default:
		return "", models.NewStepError(models.CodeValidationError, "unknown control directive kind %q", directive.Kind)
	}
}

// applyIf selects the next edge label. Binary mode evaluates one condition
// and picks trueLabel or falseLabel (defaulting to the "true"/"false" edge
// labels). Branches mode evaluates in order, first true wins, with
// elseLabel as the fallback; when no elseLabel is set the default edge is
// followed.
func (r *Runner) applyIf(ctx context.Context, ec *protocol.ExecContext, directive *models.IfDirective) (string, error) {
	if directive.Condition != "" {
		ok, err := ec.JS.EvaluateBool(ctx, directive.Condition, ec.Vars.Snapshot(false))
		if err != nil {
			return "", err
		}

		if ok {
			return labelOr(directive.TrueLabel, models.EdgeLabelTrue), nil
		}

		return labelOr(directive.FalseLabel, models.EdgeLabelFalse), nil
	}

	for _, branch := range directive.Branches {
		ok, err := ec.JS.EvaluateBool(ctx, branch.Condition, ec.Vars.Snapshot(false))
		if err != nil {
			return "", err
		}

		if ok {
			return branch.Label, nil
		}
	}

	return directive.ElseLabel, nil
}

func (r *Runner) applyForeach(ctx context.Context, ec *protocol.ExecContext, directive *models.ForeachDirective, exec SubflowExecutor) error {
	raw, ok := ec.Vars.Get(directive.ListVar)
	if !ok {
		return models.NewStepError(models.CodeValidationError, "foreach list variable %q is not set", directive.ListVar)
	}

	items, err := toSlice(raw)
	if err != nil {
		return models.NewStepError(models.CodeValidationError, "foreach list variable %q: %v", directive.ListVar, err)
	}

	concurrency := directive.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for index, item := range items {
		group.Go(func() error {
			branch := *ec
			branch.Vars = ec.Vars.Child(directive.ItemVar, directive.ItemVar+"Index")
			branch.Vars.Set(directive.ItemVar, item)
			branch.Vars.Set(directive.ItemVar+"Index", index)

			return exec.RunSubflow(groupCtx, &branch, directive.SubflowID)
		})
	}

	return group.Wait()
}

func (r *Runner) applyWhile(ctx context.Context, ec *protocol.ExecContext, directive *models.WhileDirective, exec SubflowExecutor) error {
	limit := directive.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}

	for iteration := 0; iteration < limit; iteration++ {
		if err := ctx.Err(); err != nil {
			return models.NewStepError(models.CodeTimeout, "while loop interrupted")
		}

		ok, err := ec.JS.EvaluateBool(ctx, directive.Condition, ec.Vars.Snapshot(false))
		if err != nil {
			return err
		}

		if !ok {
			return nil
		}

		if err := exec.RunSubflow(ctx, ec, directive.SubflowID); err != nil {
			return err
		}
	}

	r.logger.WarnContext(ctx, "while loop hit its iteration cap",
		"subflow", directive.SubflowID, "cap", limit)

	return nil
}

func (r *Runner) applyLoopElements(ctx context.Context, ec *protocol.ExecContext, directive *models.LoopElementsDirective, exec SubflowExecutor) error {
	page, err := ec.Driver.ReadPage(ctx, ec.TabID, ec.FrameID)
	if err != nil {
		return protocol.ClassifyBrowserError(err, models.CodeUnknown)
	}

	elements, err := ec.Resolver.LocateAll(ctx, page, directive.Target, directive.MaxElements)
	if err != nil {
		return err
	}

	for index, el := range elements {
		branch := *ec
		branch.Vars = ec.Vars.Child(directive.ItemVar)
		branch.Vars.Set(directive.ItemVar, elementDescriptor(el, index))

		if err := exec.RunSubflow(ctx, &branch, directive.SubflowID); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) applyExecuteFlow(ctx context.Context, ec *protocol.ExecContext, directive *models.ExecuteFlowDirective, exec SubflowExecutor) error {
	for name, value := range directive.Args {
		ec.Vars.Set(name, value)
	}

	return exec.RunSubflow(ctx, ec, directive.SubflowID)
}

// elementDescriptor is what an iteration binds to its item variable: enough
// to re-target the element by ref inside the subflow.
func elementDescriptor(el browser.Element, index int) map[string]any {
	return map[string]any{
		"ref":   string(el.Ref),
		"tag":   el.Tag,
		"text":  el.Text,
		"attrs": el.Attrs,
		"index": index,
	}
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}

	return fallback
}

func toSlice(raw any) ([]any, error) {
	if items, ok := raw.([]any); ok {
		return items, nil
	}

	value := reflect.ValueOf(raw)
	if value.Kind() != reflect.Slice && value.Kind() != reflect.Array {
		return nil, fmt.Errorf("value of type %T is not a list", raw)
	}

	items := make([]any, value.Len())
	for i := range items {
		items[i] = value.Index(i).Interface()
	}

	return items, nil
}
