package control

import (
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Factory creates one control-flow handler per action type.
type Factory struct {
	kind models.ControlKind
}

func NewIfFactory() *Factory           { return &Factory{kind: models.ControlIf} }
func NewForeachFactory() *Factory      { return &Factory{kind: models.ControlForeach} }
func NewWhileFactory() *Factory        { return &Factory{kind: models.ControlWhile} }
func NewLoopElementsFactory() *Factory { return &Factory{kind: models.ControlLoopElements} }
func NewExecuteFlowFactory() *Factory  { return &Factory{kind: models.ControlExecuteFlow} }

func (f *Factory) ID() string { return string(f.kind) }

func (f *Factory) Name() string {
	switch f.kind {
	case models.ControlIf:
		return "If"
	case models.ControlForeach:
		return "Foreach"
	case models.ControlWhile:
		return "While"
	case models.ControlLoopElements:
		return "Loop Elements"
	default:
		return "Execute Flow"
	}
}

func (f *Factory) Description() string {
	switch f.kind {
	case models.ControlIf:
		return "Selects the next edge by condition"
	case models.ControlForeach:
		return "Runs a subflow once per list element"
	case models.ControlWhile:
		return "Runs a subflow while a condition holds"
	case models.ControlLoopElements:
		return "Runs a subflow once per matched page element"
	default:
		return "Runs a named subflow once"
	}
}

func (f *Factory) Schema() map[string]any {
	switch f.kind {
	case models.ControlIf:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"condition":  map[string]any{"type": "string"},
				"trueLabel":  map[string]any{"type": "string"},
				"falseLabel": map[string]any{"type": "string"},
				"branches": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"condition", "label"},
						"properties": map[string]any{
							"condition": map[string]any{"type": "string"},
							"label":     map[string]any{"type": "string"},
						},
					},
				},
				"elseLabel": map[string]any{"type": "string"},
			},
		}
	case models.ControlForeach:
		return map[string]any{
			"type":     "object",
			"required": []string{"listVar", "subflowId"},
			"properties": map[string]any{
				"listVar":     map[string]any{"type": "string"},
				"itemVar":     map[string]any{"type": "string"},
				"subflowId":   map[string]any{"type": "string"},
				"concurrency": map[string]any{"type": "integer", "minimum": 1},
			},
		}
	case models.ControlWhile:
		return map[string]any{
			"type":     "object",
			"required": []string{"condition", "subflowId"},
			"properties": map[string]any{
				"condition":     map[string]any{"type": "string"},
				"subflowId":     map[string]any{"type": "string"},
				"maxIterations": map[string]any{"type": "integer", "minimum": 1},
			},
		}
	case models.ControlLoopElements:
		return map[string]any{
			"type":     "object",
			"required": []string{"subflowId"},
			"properties": map[string]any{
				"itemVar":     map[string]any{"type": "string"},
				"subflowId":   map[string]any{"type": "string"},
				"maxElements": map[string]any{"type": "integer", "minimum": 1},
			},
		}
	default:
		return map[string]any{
			"type":     "object",
			"required": []string{"subflowId"},
			"properties": map[string]any{
				"subflowId": map[string]any{"type": "string"},
				"args":      map[string]any{"type": "object"},
			},
		}
	}
}

func (f *Factory) Create() (protocol.Handler, error) {
	switch f.kind {
	case models.ControlIf:
		return &IfHandler{}, nil
	case models.ControlForeach:
		return &ForeachHandler{}, nil
	case models.ControlWhile:
		return &WhileHandler{}, nil
	case models.ControlLoopElements:
		return &LoopElementsHandler{}, nil
	default:
		return &ExecuteFlowHandler{}, nil
	}
}
