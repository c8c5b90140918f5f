// Package control implements the control-flow actions: if, foreach, while,
// loopElements, and executeFlow. These handlers never touch the browser;
// they decode their parameters into a control directive which the
// orchestrator hands to the control-flow runner.
package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// IfHandler emits a branch-selection directive.
type IfHandler struct{}

func (h *IfHandler) Validate(params map[string]any) error {
	directive, err := decodeIf(params)
	if err != nil {
		return err
	}

	hasBinary := directive.Condition != ""
	hasBranches := len(directive.Branches) > 0

	if !hasBinary && !hasBranches {
		return models.NewStepError(models.CodeValidationError, "if action requires 'condition' or 'branches'")
	}

	if hasBinary && hasBranches {
		return models.NewStepError(models.CodeValidationError, "if action accepts 'condition' or 'branches', not both")
	}

	for i, branch := range directive.Branches {
		if branch.Condition == "" || branch.Label == "" {
			return models.NewStepError(models.CodeValidationError, "if branch %d needs both 'condition' and 'label'", i)
		}
	}

	return nil
}

func (h *IfHandler) Describe(params map[string]any) string {
	if condition, _ := params["condition"].(string); condition != "" {
		return fmt.Sprintf("if %s", condition)
	}

	return "if branches"
}

func (h *IfHandler) Run(_ context.Context, _ *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	directive, err := decodeIf(action.Params)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	result := models.SuccessResult(nil)
	result.Control = &models.ControlDirective{Kind: models.ControlIf, If: directive}

	return result, nil
}

// ForeachHandler emits a list-iteration directive.
type ForeachHandler struct{}

func (h *ForeachHandler) Validate(params map[string]any) error {
	listVar, _ := params["listVar"].(string)
	subflowID, _ := params["subflowId"].(string)

	if listVar == "" || subflowID == "" {
		return models.NewStepError(models.CodeValidationError, "foreach action requires 'listVar' and 'subflowId'")
	}

	return nil
}

func (h *ForeachHandler) Describe(params map[string]any) string {
	listVar, _ := params["listVar"].(string)

	return fmt.Sprintf("foreach over %s", listVar)
}

func (h *ForeachHandler) Run(_ context.Context, _ *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	directive := &models.ForeachDirective{
		ListVar:     action.StringParam("listVar", ""),
		ItemVar:     action.StringParam("itemVar", "item"),
		SubflowID:   action.StringParam("subflowId", ""),
		Concurrency: action.IntParam("concurrency", 1),
	}

	result := models.SuccessResult(nil)
	result.Control = &models.ControlDirective{Kind: models.ControlForeach, Foreach: directive}

	return result, nil
}

// WhileHandler emits a condition-loop directive.
type WhileHandler struct{}

func (h *WhileHandler) Validate(params map[string]any) error {
	condition, _ := params["condition"].(string)
	subflowID, _ := params["subflowId"].(string)

	if condition == "" || subflowID == "" {
		return models.NewStepError(models.CodeValidationError, "while action requires 'condition' and 'subflowId'")
	}

	return nil
}

func (h *WhileHandler) Describe(params map[string]any) string {
	condition, _ := params["condition"].(string)

	return fmt.Sprintf("while %s", condition)
}

func (h *WhileHandler) Run(_ context.Context, _ *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	directive := &models.WhileDirective{
		Condition:     action.StringParam("condition", ""),
		SubflowID:     action.StringParam("subflowId", ""),
		MaxIterations: action.IntParam("maxIterations", 0),
	}

	result := models.SuccessResult(nil)
	result.Control = &models.ControlDirective{Kind: models.ControlWhile, While: directive}

	return result, nil
}

// LoopElementsHandler emits an element-iteration directive.
type LoopElementsHandler struct{}

func (h *LoopElementsHandler) Validate(params map[string]any) error {
	if subflowID, _ := params["subflowId"].(string); subflowID == "" {
		return models.NewStepError(models.CodeValidationError, "loopElements action requires 'subflowId'")
	}

	return nil
}

func (h *LoopElementsHandler) Describe(params map[string]any) string {
	return "loop over matched elements"
}

func (h *LoopElementsHandler) Run(_ context.Context, _ *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	if action.Target.Empty() {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "loopElements action requires a target")), nil
	}

	directive := &models.LoopElementsDirective{
		Target:      action.Target,
		ItemVar:     action.StringParam("itemVar", "element"),
		SubflowID:   action.StringParam("subflowId", ""),
		MaxElements: action.IntParam("maxElements", 0),
	}

	result := models.SuccessResult(nil)
	result.Control = &models.ControlDirective{Kind: models.ControlLoopElements, LoopElements: directive}

	return result, nil
}

// ExecuteFlowHandler emits a subflow-call directive.
type ExecuteFlowHandler struct{}

func (h *ExecuteFlowHandler) Validate(params map[string]any) error {
	if subflowID, _ := params["subflowId"].(string); subflowID == "" {
		return models.NewStepError(models.CodeValidationError, "executeFlow action requires 'subflowId'")
	}

	return nil
}

func (h *ExecuteFlowHandler) Describe(params map[string]any) string {
	subflowID, _ := params["subflowId"].(string)

	return fmt.Sprintf("execute subflow %s", subflowID)
}

func (h *ExecuteFlowHandler) Run(_ context.Context, _ *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	args, _ := action.Params["args"].(map[string]any)

	directive := &models.ExecuteFlowDirective{
		SubflowID: action.StringParam("subflowId", ""),
		Args:      args,
	}

	result := models.SuccessResult(nil)
	result.Control = &models.ControlDirective{Kind: models.ControlExecuteFlow, ExecuteFlow: directive}

	return result, nil
}

func decodeIf(params map[string]any) (*models.IfDirective, error) {
	buf, err := json.Marshal(params)
	if err != nil {
		return nil, models.NewStepError(models.CodeValidationError, "if parameters are malformed: %v", err)
	}

	directive := &models.IfDirective{}
	if err := json.Unmarshal(buf, directive); err != nil {
		return nil, models.NewStepError(models.CodeValidationError, "if parameters are malformed: %v", err)
	}

	return directive, nil
}
