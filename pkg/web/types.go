// Package web provides the HTTP request and response types for the flow
// replay API.
package web

import "github.com/retrace-dev/retrace/pkg/models"

// CreateFlowRequest is the body for registering a new flow.
type CreateFlowRequest struct {
	ID        string                `json:"id"        validate:"required,min=1"`
	Name      string                `json:"name"      validate:"required,min=3"`
	Version   int                   `json:"version"   validate:"omitempty,min=1"`
	Metadata  models.FlowMetadata   `json:"metadata"`
	Variables []models.VariableDecl `json:"variables,omitempty"`
	Nodes     []*models.Action      `json:"nodes"     validate:"required,min=1"`
	Edges     []*models.Edge        `json:"edges"`

	Subflows map[string]*models.Subflow `json:"subflows,omitempty"`
}

// UpdateFlowRequest is the body for updating an existing flow. All fields
// are optional to support partial updates; nodes and edges replace the
// graph wholesale when present.
type UpdateFlowRequest struct {
	Name      *string               `json:"name,omitempty"      validate:"omitempty,min=3"`
	Metadata  *models.FlowMetadata  `json:"metadata,omitempty"`
	Variables []models.VariableDecl `json:"variables,omitempty"`
	Nodes     []*models.Action      `json:"nodes,omitempty"`
	Edges     []*models.Edge        `json:"edges,omitempty"`

	Subflows map[string]*models.Subflow `json:"subflows,omitempty"`
}

// RunFlowRequest is the body for launching a replay of a registered flow.
type RunFlowRequest struct {
	Args      map[string]any `json:"args,omitempty"`
	StartURL  string         `json:"startUrl,omitempty"  validate:"omitempty,url"`
	TimeoutMs int            `json:"timeoutMs,omitempty" validate:"omitempty,min=0"`
	TabID     string         `json:"tabId,omitempty"`
}

// FlowSummary is the trimmed list-endpoint view of a flow.
type FlowSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version int    `json:"version"`
	Domain  string `json:"domain,omitempty"`
	Nodes   int    `json:"nodes"`
}

// SummarizeFlow builds the list view for one flow.
func SummarizeFlow(flow *models.Flow) FlowSummary {
	return FlowSummary{
		ID:      flow.ID,
		Name:    flow.Name,
		Version: flow.Version,
		Domain:  flow.Metadata.Domain,
		Nodes:   len(flow.Nodes),
	}
}
