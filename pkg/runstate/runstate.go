// Package runstate tracks live run status in an external registry so other
// processes (API, overlay) can observe and resume runs.
package runstate

import (
	"context"
	"errors"
	"time"

	"github.com/retrace-dev/retrace/pkg/models"
)

// ErrStateNotFound is returned when no state exists for a run id.
var ErrStateNotFound = errors.New("run state not found")

// State is the externally visible snapshot of one run.
type State struct {
	RunID        string           `json:"runId"`
	FlowID       string           `json:"flowId"`
	Status       models.RunStatus `json:"status"`
	CurrentNode  string           `json:"currentNode,omitempty"`
	PausedNodeID string           `json:"pausedNodeId,omitempty"`
	StartedAt    time.Time        `json:"startedAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// Registry stores live run state keyed by run id.
type Registry interface {
	Put(ctx context.Context, state *State) error
	Get(ctx context.Context, runID string) (*State, error)
	Delete(ctx context.Context, runID string) error
	Active(ctx context.Context) ([]*State, error)
}
