package graph

// FindCycle returns the first dependency cycle reachable from any node, as a
// path that starts and ends on the same id. It returns nil for an acyclic
// graph.
func (g *Graph) FindCycle() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool, len(g.ids))
	inPath := make(map[string]bool)
	var path []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		if inPath[id] {
			var cycle []string
			found := false
			for _, p := range path {
				if p == id {
					found = true
				}
				if found {
					cycle = append(cycle, p)
				}
			}
			return append(cycle, id)
		}
		if visited[id] {
			return nil
		}

		visited[id] = true
		inPath[id] = true
		path = append(path, id)

		for _, dep := range g.nodes[id].Dependencies {
			if _, exists := g.nodes[dep]; !exists {
				continue
			}
			if cycle := dfs(dep); cycle != nil {
				return cycle
			}
		}

		path = path[:len(path)-1]
		inPath[id] = false
		return nil
	}

	for _, id := range g.ids {
		if cycle := dfs(id); cycle != nil {
			return cycle
		}
	}
	return nil
}

func (g *Graph) HasCycle() bool {
	return g.FindCycle() != nil
}
