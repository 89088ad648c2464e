// Package graph implements the module dependency graph and its strongly
// connected component partition.
package graph

import (
	"fmt"
	"sort"

	"github.com/toyz/as2amd/internal/models"
)

// Graph is a directed, weighted graph over module ids. Vertices keep their
// insertion order, which drives every traversal so results are deterministic.
// Parallel edges collapse into one edge whose weight is the sum.
type Graph struct {
	vertices []models.ModuleID
	index    map[models.ModuleID]int
	edges    []map[int]int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{index: make(map[models.ModuleID]int)}
}

// AddVertex inserts id if it is not present yet and reports whether it was added
func (g *Graph) AddVertex(id models.ModuleID) bool {
	if _, ok := g.index[id]; ok {
		return false
	}
	g.index[id] = len(g.vertices)
	g.vertices = append(g.vertices, id)
	g.edges = append(g.edges, make(map[int]int))
	return true
}

// AddEdge records that from depends on to. Both vertices must already exist.
func (g *Graph) AddEdge(from, to models.ModuleID, weight int) error {
	fi, ok := g.index[from]
	if !ok {
		return fmt.Errorf("unknown module %s", from)
	}
	ti, ok := g.index[to]
	if !ok {
		return fmt.Errorf("unknown module %s", to)
	}
	g.edges[fi][ti] += weight
	return nil
}

// HasVertex reports whether id is part of the graph
func (g *Graph) HasVertex(id models.ModuleID) bool {
	_, ok := g.index[id]
	return ok
}

// Vertices returns every vertex in insertion order
func (g *Graph) Vertices() []models.ModuleID {
	out := make([]models.ModuleID, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// Len returns the number of vertices
func (g *Graph) Len() int {
	return len(g.vertices)
}

// EdgeCount returns the number of distinct edges
func (g *Graph) EdgeCount() int {
	n := 0
	for _, out := range g.edges {
		n += len(out)
	}
	return n
}

// Successors returns the dependencies of id ordered by vertex insertion
func (g *Graph) Successors(id models.ModuleID) []models.ModuleID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	targets := g.successorIndexes(i)
	out := make([]models.ModuleID, len(targets))
	for k, t := range targets {
		out[k] = g.vertices[t]
	}
	return out
}

// Weight returns the accumulated weight of the edge from -> to, zero when absent
func (g *Graph) Weight(from, to models.ModuleID) int {
	fi, ok := g.index[from]
	if !ok {
		return 0
	}
	ti, ok := g.index[to]
	if !ok {
		return 0
	}
	return g.edges[fi][ti]
}

// HasSelfLoop reports whether id depends on itself
func (g *Graph) HasSelfLoop(id models.ModuleID) bool {
	i, ok := g.index[id]
	if !ok {
		return false
	}
	_, self := g.edges[i][i]
	return self
}

func (g *Graph) successorIndexes(i int) []int {
	targets := make([]int, 0, len(g.edges[i]))
	for t := range g.edges[i] {
		targets = append(targets, t)
	}
	sort.Ints(targets)
	return targets
}
