package graph

import (
	"sort"

	"github.com/toyz/as2amd/internal/models"
)

// Component is one strongly connected component of the graph
type Component struct {
	Index   int               // 0-based discovery index among all components
	Members []models.ModuleID // ordered by vertex insertion
	Cyclic  bool              // more than one member, or a member depending on itself
}

// Size returns the number of members
func (c Component) Size() int {
	return len(c.Members)
}

// StronglyConnected partitions the graph with Tarjan's algorithm. Roots are
// visited in vertex insertion order and successors in insertion order, so the
// component list and every index in it are a pure function of the graph.
// Components come out in reverse topological order: a component is listed
// after everything it depends on.
func (g *Graph) StronglyConnected() []Component {
	n := len(g.vertices)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var (
		stack      []int
		next       int
		components []Component
	)

	var connect func(v int)
	connect = func(v int) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.successorIndexes(v) {
			if index[w] == -1 {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}

		var members []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		sort.Ints(members)

		comp := Component{Index: len(components), Members: make([]models.ModuleID, len(members))}
		for k, m := range members {
			comp.Members[k] = g.vertices[m]
			if _, self := g.edges[m][m]; self {
				comp.Cyclic = true
			}
		}
		if len(members) > 1 {
			comp.Cyclic = true
		}
		components = append(components, comp)
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			connect(v)
		}
	}
	return components
}

// Cyclic returns only the components that need merging
func Cyclic(components []Component) []Component {
	var out []Component
	for _, c := range components {
		if c.Cyclic {
			out = append(out, c)
		}
	}
	return out
}

// LoadOrder lists every vertex so that each module comes after the modules it
// depends on, except for dependencies inside the same cyclic component
func (g *Graph) LoadOrder() []models.ModuleID {
	var out []models.ModuleID
	for _, c := range g.StronglyConnected() {
		out = append(out, c.Members...)
	}
	return out
}
