package models

// SelectorStrategy names one way of re-locating an element when its ref is
// stale.
type SelectorStrategy string

const (
	StrategyCSS   SelectorStrategy = "css"
	StrategyXPath SelectorStrategy = "xpath"
	StrategyAttr  SelectorStrategy = "attr"
	StrategyAria  SelectorStrategy = "aria"
	StrategyText  SelectorStrategy = "text"
)

// SelectorCandidate is one recorded strategy for re-locating an element.
// Priority orders candidates (higher first, declaration order breaking ties);
// Stability is the recorder's confidence signal in [0,1] and is informational.
type SelectorCandidate struct {
	Strategy  SelectorStrategy `json:"strategy" validate:"required,oneof=css xpath attr aria text"`
	Value     string           `json:"value"    validate:"required"`
	Priority  int              `json:"priority,omitempty"`
	Stability float64          `json:"stability,omitempty"`
}

// ElementTarget identifies a page element symbolically: an ephemeral ref
// captured at record time plus an ordered list of fallback selector
// candidates for when the ref has gone stale.
type ElementTarget struct {
	Ref        string              `json:"ref,omitempty"`
	Candidates []SelectorCandidate `json:"candidates,omitempty" validate:"dive"`
}

// Empty reports whether the target carries neither a ref nor candidates.
func (t *ElementTarget) Empty() bool {
	return t == nil || (t.Ref == "" && len(t.Candidates) == 0)
}
