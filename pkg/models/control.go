package models

// ControlKind identifies which control-flow directive a step result carries.
type ControlKind string

const (
	ControlIf           ControlKind = "if"
	ControlForeach      ControlKind = "foreach"
	ControlWhile        ControlKind = "while"
	ControlLoopElements ControlKind = "loopElements"
	ControlExecuteFlow  ControlKind = "executeFlow"
)

// ControlDirective is handed to the control-flow runner before next-edge
// selection. Exactly one of the payload fields matching Kind is set.
type ControlDirective struct {
	Kind         ControlKind            `json:"kind"`
	If           *IfDirective           `json:"if,omitempty"`
	Foreach      *ForeachDirective      `json:"foreach,omitempty"`
	While        *WhileDirective        `json:"while,omitempty"`
	LoopElements *LoopElementsDirective `json:"loopElements,omitempty"`
	ExecuteFlow  *ExecuteFlowDirective  `json:"executeFlow,omitempty"`
}

// IfBranch is one {label, condition} pair of the ordered-branches form.
type IfBranch struct {
	Label     string `json:"label"`
	Condition string `json:"condition"`
}

// IfDirective selects the next edge label by condition. Binary mode uses
// Condition with TrueLabel/FalseLabel; branches mode evaluates Branches in
// order, first true wins, falling back to ElseLabel.
type IfDirective struct {
	Condition  string     `json:"condition,omitempty"`
	TrueLabel  string     `json:"trueLabel,omitempty"`
	FalseLabel string     `json:"falseLabel,omitempty"`
	Branches   []IfBranch `json:"branches,omitempty"`
	ElseLabel  string     `json:"elseLabel,omitempty"`
}

// ForeachDirective executes the named subflow once per element of the list
// variable, with at most Concurrency executions in flight.
type ForeachDirective struct {
	ListVar     string `json:"listVar"`
	ItemVar     string `json:"itemVar"`
	SubflowID   string `json:"subflowId"`
	Concurrency int    `json:"concurrency,omitempty"`
}

// WhileDirective re-evaluates Condition before each iteration and runs the
// subflow while it holds, never exceeding MaxIterations.
type WhileDirective struct {
	Condition     string `json:"condition"`
	SubflowID     string `json:"subflowId"`
	MaxIterations int    `json:"maxIterations,omitempty"`
}

// LoopElementsDirective runs the subflow once per element matched by Target,
// binding a descriptor of the current element to ItemVar.
type LoopElementsDirective struct {
	Target      *ElementTarget `json:"target"`
	ItemVar     string         `json:"itemVar"`
	SubflowID   string         `json:"subflowId"`
	MaxElements int            `json:"maxElements,omitempty"`
}

// ExecuteFlowDirective runs a named subflow once with optional extra
// arguments seeded into the shared variable store.
type ExecuteFlowDirective struct {
	SubflowID string         `json:"subflowId"`
	Args      map[string]any `json:"args,omitempty"`
}
