package hooks

import (
	"context"
	"sync"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// BreakpointHook pauses the run before any node id in its set.
type BreakpointHook struct {
	protocol.BaseHook

	mu    sync.Mutex
	nodes map[string]struct{}
}

func NewBreakpointHook(nodeIDs ...string) *BreakpointHook {
	nodes := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		nodes[id] = struct{}{}
	}

	return &BreakpointHook{nodes: nodes}
}

// SetBreakpoint arms a breakpoint on a node id.
func (h *BreakpointHook) SetBreakpoint(nodeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nodes[nodeID] = struct{}{}
}

// ClearBreakpoint disarms a breakpoint.
func (h *BreakpointHook) ClearBreakpoint(nodeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.nodes, nodeID)
}

func (h *BreakpointHook) BeforeStep(_ context.Context, _ *protocol.ExecContext, action *models.Action) (*protocol.HookDecision, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.nodes[action.ID]; ok {
		return &protocol.HookDecision{Pause: true}, nil
	}

	return nil, nil
}
