package tabs

import "github.com/retrace-dev/retrace/pkg/protocol"

type kind int

const (
	kindOpen kind = iota
	kindSwitch
	kindClose
)

// Factory creates one of the three tab handlers depending on how it was
// constructed.
type Factory struct {
	kind kind
}

func NewOpenFactory() *Factory   { return &Factory{kind: kindOpen} }
func NewSwitchFactory() *Factory { return &Factory{kind: kindSwitch} }
func NewCloseFactory() *Factory  { return &Factory{kind: kindClose} }

func (f *Factory) ID() string {
	switch f.kind {
	case kindOpen:
		return "openTab"
	case kindSwitch:
		return "switchTab"
	default:
		return "closeTab"
	}
}

func (f *Factory) Name() string {
	switch f.kind {
	case kindOpen:
		return "Open Tab"
	case kindSwitch:
		return "Switch Tab"
	default:
		return "Close Tab"
	}
}

func (f *Factory) Description() string {
	switch f.kind {
	case kindOpen:
		return "Opens a new tab and makes it active"
	case kindSwitch:
		return "Activates an existing tab by id or URL fragment"
	default:
		return "Closes a tab"
	}
}

func (f *Factory) Schema() map[string]any {
	switch f.kind {
	case kindOpen:
		return map[string]any{
			"type":     "object",
			"required": []string{"url"},
			"properties": map[string]any{
				"url":    map[string]any{"type": "string"},
				"saveAs": map[string]any{"type": "string"},
			},
		}
	case kindSwitch:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tabId":       map[string]any{"type": "string"},
				"urlContains": map[string]any{"type": "string"},
			},
		}
	default:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tabId":    map[string]any{"type": "string"},
				"switchTo": map[string]any{"type": "string"},
			},
		}
	}
}

func (f *Factory) Create() (protocol.Handler, error) {
	switch f.kind {
	case kindOpen:
		return &OpenHandler{}, nil
	case kindSwitch:
		return &SwitchHandler{}, nil
	default:
		return &CloseHandler{}, nil
	}
}
