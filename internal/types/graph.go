package types

// DependencyGraph holds forward edges (id -> depends_on) and their computed
// reverse (id -> dependents). Reachability is a plain BFS over adjacency
// maps — a transitive-closure problem this small gains nothing from a
// general fixpoint/Datalog evaluator (see DESIGN.md).
type DependencyGraph struct {
	Nodes    map[string]Node
	forward  map[string][]string
	reverse  map[string][]string
}

// NewDependencyGraph builds forward and reverse edges from a node set.
// Neither this constructor nor the Artifact Loader checks that every
// depends_on id is present in nodes; an absent id still gets a reverse edge
// but has no entry in Nodes.
func NewDependencyGraph(nodes []Node) *DependencyGraph {
	g := &DependencyGraph{
		Nodes:   make(map[string]Node, len(nodes)),
		forward: make(map[string][]string, len(nodes)),
		reverse: make(map[string][]string, len(nodes)),
	}
	for _, n := range nodes {
		g.Nodes[n.ID] = n
		g.forward[n.ID] = append([]string(nil), n.DependsOn...)
	}
	// Reverse edges follow the given slice order, never map iteration
	// order: dependent lists (and the BFS discovery order built on them)
	// must be identical across runs of the same inputs.
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			g.reverse[dep] = append(g.reverse[dep], n.ID)
		}
	}
	return g
}

func (g *DependencyGraph) closure(start string, edges map[string][]string) []string {
	seen := map[string]bool{start: true}
	var order []string
	queue := append([]string(nil), edges[start]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
		queue = append(queue, edges[id]...)
	}
	return order
}

// Downstream returns the transitive closure of dependents of id, excluding
// id itself. Order is BFS discovery order, not sorted; callers that need a
// stable report order sort separately.
func (g *DependencyGraph) Downstream(id string) []string {
	return g.closure(id, g.reverse)
}

// Upstream returns the transitive closure of dependencies of id, excluding
// id itself.
func (g *DependencyGraph) Upstream(id string) []string {
	return g.closure(id, g.forward)
}

// Acyclic reports whether the graph contains no cycles: for every node N,
// N must not be reachable from any of its own direct dependents.
func (g *DependencyGraph) Acyclic() bool {
	for id := range g.Nodes {
		for _, dep := range g.reverse[id] {
			if dep == id {
				return false
			}
			for _, d := range g.Downstream(dep) {
				if d == id {
					return false
				}
			}
		}
	}
	return true
}
