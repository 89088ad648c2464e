package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/toyz/as2amd/internal/cycles"
	"github.com/toyz/as2amd/internal/models"
)

// GraphReport describes the dependency graph of a build and its partition
type GraphReport struct {
	RunID      string           `json:"run_id"`
	Modules    []GraphModule    `json:"modules"`
	Components []GraphComponent `json:"components"`
}

// GraphModule is one original module and what it depends on
type GraphModule struct {
	ID           string            `json:"id"`
	Dependencies []GraphDependency `json:"dependencies"`
}

// GraphDependency is an edge weighted by the number of references
type GraphDependency struct {
	ID     string `json:"id"`
	Weight int    `json:"weight"`
}

// GraphComponent is a strongly connected component; cyclic ones name the
// merged module that replaces them
type GraphComponent struct {
	Index   int      `json:"index"`
	Members []string `json:"members"`
	Cyclic  bool     `json:"cyclic"`
	Merged  string   `json:"merged,omitempty"`
}

// DescribeGraph builds the report for b
func DescribeGraph(b *Build) GraphReport {
	g := b.Result.Graph
	report := GraphReport{
		RunID:      b.RunID.String(),
		Modules:    make([]GraphModule, 0, g.Len()),
		Components: make([]GraphComponent, 0, len(b.Result.Components)),
	}

	for _, id := range g.Vertices() {
		mod := GraphModule{ID: string(id), Dependencies: []GraphDependency{}}
		for _, dep := range g.Successors(id) {
			mod.Dependencies = append(mod.Dependencies, GraphDependency{ID: string(dep), Weight: g.Weight(id, dep)})
		}
		report.Modules = append(report.Modules, mod)
	}

	for _, comp := range b.Result.Components {
		gc := GraphComponent{Index: comp.Index, Members: idStrings(comp.Members), Cyclic: comp.Cyclic}
		if comp.Cyclic {
			gc.Merged = string(cycles.MergedID(comp.Index))
		}
		report.Components = append(report.Components, gc)
	}
	return report
}

// WriteGraphText prints the report as an indented listing
func WriteGraphText(w io.Writer, report GraphReport) error {
	var b strings.Builder
	b.WriteString("Modules:\n")
	for _, m := range report.Modules {
		fmt.Fprintf(&b, "  %s\n", m.ID)
		for _, d := range m.Dependencies {
			fmt.Fprintf(&b, "    -> %s (%d)\n", d.ID, d.Weight)
		}
	}

	b.WriteString("\nCycles:\n")
	cyclic := 0
	for _, c := range report.Components {
		if !c.Cyclic {
			continue
		}
		cyclic++
		fmt.Fprintf(&b, "  %s: %s\n", c.Merged, strings.Join(c.Members, ", "))
	}
	if cyclic == 0 {
		b.WriteString("  none\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func idStrings(ids []models.ModuleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
