package graph

import "errors"

var ErrCycleDetected = errors.New("cycle detected in graph")

// StableOrder returns every node after all of its dependencies. Among nodes
// that are ready at the same time the one added first wins, so a graph
// without edges comes back in insertion order. Dependencies on unknown nodes
// are ignored here; see Missing.
func (g *Graph) StableOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[string]int, len(g.ids))
	dependents := make(map[string][]string, len(g.ids))

	for _, id := range g.ids {
		for _, dep := range g.nodes[id].Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	done := make(map[string]bool, len(g.ids))
	sorted := make([]string, 0, len(g.ids))

	for len(sorted) < len(g.ids) {
		next := ""
		for _, id := range g.ids {
			if !done[id] && inDegree[id] == 0 {
				next = id
				break
			}
		}
		if next == "" {
			return nil, ErrCycleDetected
		}

		done[next] = true
		sorted = append(sorted, next)
		for _, dependent := range dependents[next] {
			inDegree[dependent]--
		}
	}

	return sorted, nil
}

// ReverseStableOrder is StableOrder backwards: dependents before dependencies.
func (g *Graph) ReverseStableOrder() ([]string, error) {
	sorted, err := g.StableOrder()
	if err != nil {
		return nil, err
	}

	n := len(sorted)
	reversed := make([]string, n)
	for i, v := range sorted {
		reversed[n-1-i] = v
	}
	return reversed, nil
}
