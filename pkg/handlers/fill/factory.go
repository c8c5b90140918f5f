package fill

import "github.com/retrace-dev/retrace/pkg/protocol"

// Factory creates fill handlers.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "fill"
}

func (f *Factory) Name() string {
	return "Fill"
}

func (f *Factory) Description() string {
	return "Types a value into the target element, with template substitution from run variables"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"value"},
		"properties": map[string]any{
			"value":     map[string]any{"type": "string"},
			"clear":     map[string]any{"type": "boolean"},
			"thenPress": map[string]any{"type": "string"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) {
	return &Handler{}, nil
}
