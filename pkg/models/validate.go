package models

import (
	"errors"
	"fmt"
)

// Graph-integrity failures are fatal "cannot start" errors: they are returned
// from the prepare phase before any step executes and never surface as step
// failures.
var (
	ErrEmptyGraph     = errors.New("flow graph has no nodes")
	ErrDuplicateNode  = errors.New("duplicate node id")
	ErrDanglingEdge   = errors.New("edge references unknown node")
	ErrGraphCycle     = errors.New("flow graph contains a cycle")
	ErrUnknownType    = errors.New("unknown action type")
	ErrUnknownSubflow = errors.New("directive references unknown subflow")
)

// Validate checks the graph invariants once before a run starts: node ids
// unique, every edge endpoint resolvable, the full-edge graph acyclic, every
// action type known. Subflow graphs are held to the same invariants.
func (f *Flow) Validate() error {
	if err := validateGraph(f.Nodes, f.Edges, ""); err != nil {
		return err
	}

	for name, sub := range f.Subflows {
		if sub == nil {
			return fmt.Errorf("subflow %q: %w", name, ErrEmptyGraph)
		}

		if err := validateGraph(sub.Nodes, sub.Edges, name); err != nil {
			return err
		}
	}

	return nil
}

func validateGraph(nodes []*Action, edges []*Edge, subflow string) error {
	where := func(err error) error {
		if subflow == "" {
			return err
		}

		return fmt.Errorf("subflow %q: %w", subflow, err)
	}

	if len(nodes) == 0 {
		return where(ErrEmptyGraph)
	}

	ids := make(map[string]struct{}, len(nodes))

	for _, node := range nodes {
		if node.ID == "" {
			return where(fmt.Errorf("%w: empty id", ErrDuplicateNode))
		}

		if _, seen := ids[node.ID]; seen {
			return where(fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID))
		}

		ids[node.ID] = struct{}{}

		if !node.Type.Known() {
			return where(fmt.Errorf("%w: node %s has type %q", ErrUnknownType, node.ID, node.Type))
		}
	}

	adjacency := make(map[string][]string, len(nodes))

	for _, edge := range edges {
		if _, ok := ids[edge.From]; !ok {
			return where(fmt.Errorf("%w: %s -> %s (from)", ErrDanglingEdge, edge.From, edge.To))
		}

		if _, ok := ids[edge.To]; !ok {
			return where(fmt.Errorf("%w: %s -> %s (to)", ErrDanglingEdge, edge.From, edge.To))
		}

		adjacency[edge.From] = append(adjacency[edge.From], edge.To)
	}

	if cycleAt := findCycle(nodes, adjacency); cycleAt != "" {
		return where(fmt.Errorf("%w: at node %s", ErrGraphCycle, cycleAt))
	}

	return nil
}

// findCycle runs a three-color DFS over the full-edge graph and returns the
// id of a node on a back edge, or "".
func findCycle(nodes []*Action, adjacency map[string][]string) string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(nodes))

	var visit func(id string) string

	visit = func(id string) string {
		color[id] = gray

		for _, next := range adjacency[id] {
			switch color[next] {
			case gray:
				return next
			case white:
				if hit := visit(next); hit != "" {
					return hit
				}
			}
		}

		color[id] = black

		return ""
	}

	for _, node := range nodes {
		if color[node.ID] == white {
			if hit := visit(node.ID); hit != "" {
				return hit
			}
		}
	}

	return ""
}

// Roots returns node ids with no incoming edge, in declaration order.
func Roots(nodes []*Action, edges []*Edge) []string {
	incoming := make(map[string]int, len(nodes))

	for _, edge := range edges {
		incoming[edge.To]++
	}

	roots := make([]string, 0, 1)

	for _, node := range nodes {
		if incoming[node.ID] == 0 {
			roots = append(roots, node.ID)
		}
	}

	return roots
}

// NextByLabel returns the target of the first declared edge leaving from with
// the given label. Declaration order breaks ties between same-label edges.
func NextByLabel(edges []*Edge, from, label string) (string, bool) {
	for _, edge := range edges {
		if edge.From == from && edge.NormalLabel() == label {
			return edge.To, true
		}
	}

	return "", false
}

// FindNode returns the node with the given id.
func FindNode(nodes []*Action, id string) (*Action, bool) {
	for _, node := range nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}
