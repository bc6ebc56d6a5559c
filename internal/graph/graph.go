package graph

import "sync"

type Node struct {
	ID           string
	Dependencies []string
	order        int
}

// Graph is a dependency graph that remembers the order nodes were added in.
// Edges point from a node to the nodes it depends on.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	ids   []string
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// AddNode inserts id or replaces its dependencies. A replaced node keeps its
// original position.
func (g *Graph) AddNode(id string, dependencies []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	deps := make([]string, len(dependencies))
	copy(deps, dependencies)

	if existing, ok := g.nodes[id]; ok {
		existing.Dependencies = deps
		return
	}

	g.nodes[id] = &Node{ID: id, Dependencies: deps, order: len(g.ids)}
	g.ids = append(g.ids, id)
}

func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.nodes[id]
	return exists
}

func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, exists := g.nodes[id]
	if !exists {
		return nil
	}
	deps := make([]string, len(node.Dependencies))
	copy(deps, node.Dependencies)
	return deps
}

func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, nid := range g.ids {
		for _, dep := range g.nodes[nid].Dependencies {
			if dep == id {
				dependents = append(dependents, nid)
				break
			}
		}
	}
	return dependents
}

// Missing lists, per node, dependencies that were never added.
func (g *Graph) Missing() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	missing := make(map[string][]string)
	for _, id := range g.ids {
		for _, dep := range g.nodes[id].Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				missing[id] = append(missing[id], dep)
			}
		}
	}
	return missing
}

func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.ids)
}

// IDs returns node ids in insertion order.
func (g *Graph) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, len(g.ids))
	copy(ids, g.ids)
	return ids
}
