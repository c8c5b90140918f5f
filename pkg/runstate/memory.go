package runstate

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is the in-process registry used by the CLI and tests.
type MemoryRegistry struct {
	mu     sync.RWMutex
	states map[string]*State
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{states: make(map[string]*State)}
}

func (r *MemoryRegistry) Put(_ context.Context, state *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *state
	copied.UpdatedAt = time.Now()
	r.states[state.RunID] = &copied

	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, runID string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[runID]
	if !ok {
		return nil, ErrStateNotFound
	}

	copied := *state

	return &copied, nil
}

func (r *MemoryRegistry) Delete(_ context.Context, runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, runID)

	return nil
}

func (r *MemoryRegistry) Active(_ context.Context) ([]*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]*State, 0, len(r.states))
	for _, state := range r.states {
		copied := *state
		states = append(states, &copied)
	}

	return states, nil
}
