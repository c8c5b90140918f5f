package models

// ActionType identifies one typed automation operation. The set is closed:
// validation rejects flows containing unknown types.
type ActionType string

const (
	ActionTrigger ActionType = "trigger"

	ActionClick          ActionType = "click"
	ActionDblClick       ActionType = "dblclick"
	ActionFill           ActionType = "fill"
	ActionKey            ActionType = "key"
	ActionScroll         ActionType = "scroll"
	ActionDrag           ActionType = "drag"
	ActionNavigate       ActionType = "navigate"
	ActionWait           ActionType = "wait"
	ActionAssert         ActionType = "assert"
	ActionExtract        ActionType = "extract"
	ActionScript         ActionType = "script"
	ActionHTTP           ActionType = "http"
	ActionScreenshot     ActionType = "screenshot"
	ActionOpenTab        ActionType = "openTab"
	ActionSwitchTab      ActionType = "switchTab"
	ActionCloseTab       ActionType = "closeTab"
	ActionHandleDownload ActionType = "handleDownload"
	ActionIf             ActionType = "if"
	ActionForeach        ActionType = "foreach"
	ActionWhile          ActionType = "while"
	ActionSwitchFrame    ActionType = "switchFrame"
	ActionTriggerEvent   ActionType = "triggerEvent"
	ActionSetAttribute   ActionType = "setAttribute"
	ActionLoopElements   ActionType = "loopElements"
	ActionExecuteFlow    ActionType = "executeFlow"
)

var actionTypes = map[ActionType]struct{}{
	ActionTrigger: {}, ActionClick: {}, ActionDblClick: {}, ActionFill: {},
	ActionKey: {}, ActionScroll: {}, ActionDrag: {}, ActionNavigate: {},
	ActionWait: {}, ActionAssert: {}, ActionExtract: {}, ActionScript: {},
	ActionHTTP: {}, ActionScreenshot: {}, ActionOpenTab: {}, ActionSwitchTab: {},
	ActionCloseTab: {}, ActionHandleDownload: {}, ActionIf: {}, ActionForeach: {},
	ActionWhile: {}, ActionSwitchFrame: {}, ActionTriggerEvent: {},
	ActionSetAttribute: {}, ActionLoopElements: {}, ActionExecuteFlow: {},
}

// Known reports whether t belongs to the closed action type set.
func (t ActionType) Known() bool {
	_, ok := actionTypes[t]

	return ok
}

// IsControl reports whether t carries a control-flow directive instead of a
// page interaction.
func (t ActionType) IsControl() bool {
	switch t {
	case ActionIf, ActionForeach, ActionWhile, ActionLoopElements, ActionExecuteFlow:
		return true
	default:
		return false
	}
}

// IsTrigger reports whether t is a capture-side trigger marker node. Trigger
// nodes are never executed; they only anchor the start of a recorded graph.
func (t ActionType) IsTrigger() bool {
	return t == ActionTrigger
}

// Action is one node of a flow graph: a typed operation with type-specific
// parameters, an optional symbolic element target, and an optional per-step
// policy override.
type Action struct {
	ID     string         `json:"id"   validate:"required"`
	Type   ActionType     `json:"type" validate:"required"`
	Name   string         `json:"name,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	Target *ElementTarget `json:"target,omitempty"`
	Policy *StepPolicy    `json:"policy,omitempty"`
}

// StringParam returns a string parameter, or fallback when absent or not a
// string.
func (a *Action) StringParam(key, fallback string) string {
	if v, ok := a.Params[key].(string); ok {
		return v
	}

	return fallback
}

// BoolParam returns a boolean parameter, or fallback when absent.
func (a *Action) BoolParam(key string, fallback bool) bool {
	if v, ok := a.Params[key].(bool); ok {
		return v
	}

	return fallback
}

// IntParam returns an integer parameter, tolerating the float64 shape JSON
// decoding produces.
func (a *Action) IntParam(key string, fallback int) int {
	switch v := a.Params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
