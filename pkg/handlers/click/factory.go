package click

import "github.com/retrace-dev/retrace/pkg/protocol"

// Factory creates click handlers. Double selects dblclick.
type Factory struct {
	double bool
}

// NewFactory creates the click factory.
func NewFactory() *Factory {
	return &Factory{}
}

// NewDoubleFactory creates the dblclick factory.
func NewDoubleFactory() *Factory {
	return &Factory{double: true}
}

func (f *Factory) ID() string {
	if f.double {
		return "dblclick"
	}

	return "click"
}

func (f *Factory) Name() string {
	if f.double {
		return "Double Click"
	}

	return "Click"
}

func (f *Factory) Description() string {
	return "Resolves the element target and dispatches a mouse click, optionally waiting for navigation or network idle afterward"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"button": map[string]any{
				"type": "string",
				"enum": []string{"left", "middle", "right"},
			},
			"after": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"waitForNavigation": map[string]any{"type": "boolean"},
					"networkIdle":       map[string]any{"type": "boolean"},
					"idleMs":            map[string]any{"type": "integer", "minimum": 0},
					"timeoutMs":         map[string]any{"type": "integer", "minimum": 0},
				},
			},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) {
	return &Handler{double: f.double}, nil
}
