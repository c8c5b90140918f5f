package dispatch

import (
	"encoding/base64"
	"encoding/json"

	"github.com/retrace-dev/retrace/pkg/models"
)

func encodeImage(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}

// decodeControl maps a control-typed step's parameters onto a directive.
// The registry tier builds directives inside its control handlers; the
// legacy tier decodes them here.
func decodeControl(action *models.Action) (*models.ControlDirective, *models.StepError) {
	buf, err := json.Marshal(action.Params)
	if err != nil {
		return nil, models.NewStepError(models.CodeValidationError, "control parameters are malformed: %v", err)
	}

	switch action.Type {
	case models.ActionIf:
		directive := &models.IfDirective{}
		if err := json.Unmarshal(buf, directive); err != nil {
			return nil, models.NewStepError(models.CodeValidationError, "if parameters are malformed: %v", err)
		}

		return &models.ControlDirective{Kind: models.ControlIf, If: directive}, nil
	case models.ActionForeach:
		directive := &models.ForeachDirective{}
		if err := json.Unmarshal(buf, directive); err != nil {
			return nil, models.NewStepError(models.CodeValidationError, "foreach parameters are malformed: %v", err)
		}

		if directive.ItemVar == "" {
			directive.ItemVar = "item"
		}

		return &models.ControlDirective{Kind: models.ControlForeach, Foreach: directive}, nil
	case models.ActionWhile:
		directive := &models.WhileDirective{}
		if err := json.Unmarshal(buf, directive); err != nil {
			return nil, models.NewStepError(models.CodeValidationError, "while parameters are malformed: %v", err)
		}

		return &models.ControlDirective{Kind: models.ControlWhile, While: directive}, nil
	case models.ActionLoopElements:
		directive := &models.LoopElementsDirective{}
		if err := json.Unmarshal(buf, directive); err != nil {
			return nil, models.NewStepError(models.CodeValidationError, "loopElements parameters are malformed: %v", err)
		}

		directive.Target = action.Target
		if directive.ItemVar == "" {
			directive.ItemVar = "element"
		}

		return &models.ControlDirective{Kind: models.ControlLoopElements, LoopElements: directive}, nil
	case models.ActionExecuteFlow:
		directive := &models.ExecuteFlowDirective{}
		if err := json.Unmarshal(buf, directive); err != nil {
			return nil, models.NewStepError(models.CodeValidationError, "executeFlow parameters are malformed: %v", err)
		}

		return &models.ControlDirective{Kind: models.ControlExecuteFlow, ExecuteFlow: directive}, nil
	default:
		return nil, models.NewStepError(models.CodeValidationError, "step type %s is not a control type", action.Type)
	}
}
