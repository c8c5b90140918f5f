// Package variables provides the run-scoped variable store: a single mutable
// mapping shared by every step and subflow of one run, with child scopes for
// concurrent foreach branches.
package variables

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/template"
)

// ErrMissingRequired is wrapped when seeding finds required variables with
// neither a default nor a call-time argument. The orchestrator resolves these
// through the prompt collaborator before failing the run.
var ErrMissingRequired = errors.New("missing required variables")

// Store is the variable store for one run. A root store owns the shared map;
// child stores (foreach branches) keep their declared item variables local
// and delegate everything else to the root. No locking discipline beyond the
// store's own mutex is required because the orchestrator sequences steps
// cooperatively; concurrent foreach branches see last-write-wins on shared
// keys.
type Store struct {
	mu        sync.RWMutex
	values    map[string]any
	sensitive map[string]struct{}
	parent    *Store
	local     map[string]struct{}
}

// NewStore creates an empty root store.
func NewStore() *Store {
	return &Store{
		values:    make(map[string]any),
		sensitive: make(map[string]struct{}),
	}
}

// Seed loads declarations and call-time arguments into the store: defaults
// first, then arguments on top. Returns the declarations still missing a
// value, wrapped in ErrMissingRequired, for prompt collection.
func (s *Store) Seed(decls []models.VariableDecl, args map[string]any) ([]models.VariableDecl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, decl := range decls {
		if decl.Default != nil {
			s.values[decl.Name] = decl.Default
		}

		if decl.Sensitive {
			s.sensitive[decl.Name] = struct{}{}
		}
	}

	for name, value := range args {
		s.values[name] = value
	}

	var missing []models.VariableDecl

	for _, decl := range decls {
		if _, ok := s.values[decl.Name]; decl.Required && !ok {
			missing = append(missing, decl)
		}
	}

	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, decl := range missing {
			names[i] = decl.Name
		}

		return missing, fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(names, ", "))
	}

	return nil, nil
}

// Get looks the name up in this scope, then in the parent chain.
func (s *Store) Get(name string) (any, bool) {
	s.mu.RLock()
	value, ok := s.values[name]
	isLocal := s.isLocalLocked(name)
	s.mu.RUnlock()

	if ok {
		return value, true
	}

	if s.parent != nil && !isLocal {
		return s.parent.Get(name)
	}

	return nil, false
}

// Set writes the value. In a child scope only the declared local keys stay
// local; all other writes go to the shared root map.
func (s *Store) Set(name string, value any) {
	s.mu.Lock()
	local := s.parent == nil || s.isLocalLocked(name)

	if local {
		s.values[name] = value
	}
	s.mu.Unlock()

	if !local {
		s.parent.Set(name, value)
	}
}

func (s *Store) isLocalLocked(name string) bool {
	_, ok := s.local[name]

	return ok
}

// Child creates a branch scope where the given keys stay local. Everything
// else reads through to and writes back into this store.
func (s *Store) Child(localKeys ...string) *Store {
	local := make(map[string]struct{}, len(localKeys))
	for _, key := range localKeys {
		local[key] = struct{}{}
	}

	return &Store{
		values:    make(map[string]any),
		sensitive: make(map[string]struct{}),
		parent:    s,
		local:     local,
	}
}

// AssignPath sets a dotted path, creating intermediate maps: "user.name"
// writes values["user"]["name"].
func (s *Store) AssignPath(path string, value any) error {
	parts := strings.Split(path, ".")
	if len(parts) == 1 {
		s.Set(path, value)

		return nil
	}

	root, _ := s.Get(parts[0])

	node, ok := root.(map[string]any)
	if !ok {
		if root != nil {
			return fmt.Errorf("cannot assign path %q: %q is not a map", path, parts[0])
		}

		node = make(map[string]any)
	}

	current := node

	for _, part := range parts[1 : len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			if _, exists := current[part]; exists {
				return fmt.Errorf("cannot assign path %q: %q is not a map", path, part)
			}

			next = make(map[string]any)
			current[part] = next
		}

		current = next
	}

	current[parts[len(parts)-1]] = value
	s.Set(parts[0], node)

	return nil
}

// Snapshot copies the visible variables. When excludeSensitive is set,
// declared-sensitive names are dropped; this is the RunResult outputs shape.
func (s *Store) Snapshot(excludeSensitive bool) map[string]any {
	merged := make(map[string]any)
	s.collect(merged)

	if excludeSensitive {
		for name := range s.sensitiveNames() {
			delete(merged, name)
		}
	}

	return merged
}

func (s *Store) collect(into map[string]any) {
	if s.parent != nil {
		s.parent.collect(into)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, value := range s.values {
		into[name] = value
	}
}

func (s *Store) sensitiveNames() map[string]struct{} {
	names := make(map[string]struct{})

	for scope := s; scope != nil; scope = scope.parent {
		scope.mu.RLock()
		for name := range scope.sensitive {
			names[name] = struct{}{}
		}
		scope.mu.RUnlock()
	}

	return names
}

// TemplateData exposes the store for template rendering under "vars", with
// the process environment under "env".
func (s *Store) TemplateData() map[string]any {
	return map[string]any{
		"vars": s.Snapshot(false),
		"env":  template.EnvVars(),
	}
}

// Render interpolates a parameter string against the store.
func (s *Store) Render(input string) (any, error) {
	return template.Render(input, s.TemplateData())
}

// RenderString interpolates and coerces to string.
func (s *Store) RenderString(input string) (string, error) {
	return template.RenderString(input, s.TemplateData())
}
