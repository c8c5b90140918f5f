package models

import "time"

// Well-known edge labels. Arbitrary custom labels are also allowed; these
// are the ones the engine itself assigns meaning to.
const (
	EdgeLabelDefault = "default"
	EdgeLabelTrue    = "true"
	EdgeLabelFalse   = "false"
	EdgeLabelOnError = "onError"
)

// Edge connects two nodes in a flow graph. An empty label is equivalent to
// the default label.
type Edge struct {
	ID    string `json:"id"`
	From  string `json:"from"  validate:"required"`
	To    string `json:"to"    validate:"required"`
	Label string `json:"label,omitempty"`
}

// NormalLabel returns the edge's label with the empty/default equivalence
// applied.
func (e *Edge) NormalLabel() string {
	if e.Label == "" {
		return EdgeLabelDefault
	}

	return e.Label
}

// VariableDecl declares one flow variable: its default value, whether the
// caller must supply it, and whether its value is redacted from outputs.
type VariableDecl struct {
	Name      string `json:"name" validate:"required"`
	Default   any    `json:"default,omitempty"`
	Required  bool   `json:"required,omitempty"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// FlowMetadata carries authorship timestamps, the page binding the flow was
// captured against, and which variables the flow exposes as outputs.
type FlowMetadata struct {
	CreatedAt  time.Time `json:"createdAt,omitzero"`
	UpdatedAt  time.Time `json:"updatedAt,omitzero"`
	Domain     string    `json:"domain,omitempty"`
	PathPrefix string    `json:"pathPrefix,omitempty"`
	Outputs    []string  `json:"outputs,omitempty"`
}

// Subflow is a nested {nodes, edges} graph referenced by control-flow
// directives.
type Subflow struct {
	Nodes []*Action `json:"nodes" validate:"required,dive"`
	Edges []*Edge   `json:"edges,omitempty"  validate:"dive"`
}

// Flow is one captured interaction sequence: a DAG of typed actions plus
// variable declarations and optional named subflows. Flows are authored and
// persisted externally and loaded once per run.
type Flow struct {
	ID        string              `json:"id"      validate:"required"`
	Name      string              `json:"name"`
	Version   int                 `json:"version,omitempty"`
	Metadata  FlowMetadata        `json:"metadata,omitzero"`
	Variables []VariableDecl      `json:"variables,omitempty" validate:"dive"`
	Nodes     []*Action           `json:"nodes"   validate:"required,dive"`
	Edges     []*Edge             `json:"edges,omitempty"     validate:"dive"`
	Subflows  map[string]*Subflow `json:"subflows,omitempty"`
}
