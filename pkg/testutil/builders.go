// Package testutil provides test data builders for flows, actions, and
// targets.
package testutil

import (
	"github.com/google/uuid"

	"github.com/retrace-dev/retrace/pkg/models"
)

// CreateTestAction creates an action node with default values that can be
// overridden.
func CreateTestAction(overrides ...func(*models.Action)) *models.Action {
	action := &models.Action{
		ID:   uuid.New().String(),
		Type: models.ActionClick,
		Name: "Test Action",
		Target: &models.ElementTarget{
			Candidates: []models.SelectorCandidate{
				{Strategy: models.StrategyCSS, Value: "#submit", Priority: 10},
			},
		},
	}

	for _, override := range overrides {
		override(action)
	}

	return action
}

// WithID sets the action id.
func WithID(id string) func(*models.Action) {
	return func(a *models.Action) {
		a.ID = id
	}
}

// WithType sets the action type.
func WithType(actionType models.ActionType) func(*models.Action) {
	return func(a *models.Action) {
		a.Type = actionType
	}
}

// WithParams sets the action parameters.
func WithParams(params map[string]any) func(*models.Action) {
	return func(a *models.Action) {
		a.Params = params
	}
}

// WithTarget sets the element target.
func WithTarget(target *models.ElementTarget) func(*models.Action) {
	return func(a *models.Action) {
		a.Target = target
	}
}

// WithRef sets a ref-only element target.
func WithRef(ref string) func(*models.Action) {
	return func(a *models.Action) {
		a.Target = &models.ElementTarget{Ref: ref}
	}
}

// WithPolicy sets the per-step policy override.
func WithPolicy(policy *models.StepPolicy) func(*models.Action) {
	return func(a *models.Action) {
		a.Policy = policy
	}
}

// CreateTestFlow creates a two-step linear flow (navigate then click) with
// default values that can be overridden.
func CreateTestFlow(overrides ...func(*models.Flow)) *models.Flow {
	nav := CreateTestAction(
		WithID("nav"),
		WithType(models.ActionNavigate),
		WithParams(map[string]any{"url": "https://example.test/"}),
		WithTarget(nil),
	)
	click := CreateTestAction(WithID("click"))

	flow := &models.Flow{
		ID:      uuid.New().String(),
		Name:    "Test Flow",
		Version: 1,
		Nodes:   []*models.Action{nav, click},
		Edges: []*models.Edge{
			{ID: "e1", From: "nav", To: "click"},
		},
	}

	for _, override := range overrides {
		override(flow)
	}

	return flow
}

// WithNodes replaces the flow's nodes.
func WithNodes(nodes ...*models.Action) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Nodes = nodes
	}
}

// WithEdges replaces the flow's edges.
func WithEdges(edges ...*models.Edge) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Edges = edges
	}
}

// WithVariables sets the flow's variable declarations.
func WithVariables(decls ...models.VariableDecl) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Variables = decls
	}
}

// WithSubflow registers a named subflow.
func WithSubflow(name string, sub *models.Subflow) func(*models.Flow) {
	return func(f *models.Flow) {
		if f.Subflows == nil {
			f.Subflows = make(map[string]*models.Subflow)
		}

		f.Subflows[name] = sub
	}
}

// Edge builds an edge with the default label.
func Edge(id, from, to string) *models.Edge {
	return &models.Edge{ID: id, From: from, To: to}
}

// LabeledEdge builds an edge carrying an explicit label.
func LabeledEdge(id, from, to, label string) *models.Edge {
	return &models.Edge{ID: id, From: from, To: to, Label: label}
}
