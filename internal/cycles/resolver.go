// Package cycles removes circular module dependencies by merging every cyclic
// component into one module and turning its members into redirect shims.
package cycles

import (
	"fmt"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/graph"
	"github.com/toyz/as2amd/internal/models"
)

// MergedID returns the id of the merged module for a component index
func MergedID(component int) models.ModuleID {
	return models.ModuleID(fmt.Sprintf("merged_%d%s", component, models.ModuleSuffix))
}

// Resolution is the outcome of merging every cyclic component
type Resolution struct {
	Output *models.OutputSet
	Merged []*models.MergedModule
}

// Resolve builds a fresh output set from base: cyclic components are replaced
// by one merged module each, plus one redirect per member written over the
// member's entry. Trivial components pass through untouched. base is not
// modified.
func Resolve(base *models.OutputSet, components []graph.Component) (*Resolution, error) {
	out := base.Clone()
	res := &Resolution{Output: out}
	var errs *errors.MultipleErrors

	for _, comp := range components {
		if !comp.Cyclic {
			continue
		}
		merged, err := merge(base, comp)
		if err != nil {
			errors.AddToMultiple(&errs, err, errors.CycleMergeErrorCode)
			continue
		}

		out.Put(merged)
		for _, member := range merged.Members {
			out.Put(&models.RedirectModule{ID: member.ID, Target: merged.ID, Key: member.Name})
		}
		res.Merged = append(res.Merged, merged)
	}

	if errs != nil {
		return nil, errs
	}
	return res, nil
}

func merge(base *models.OutputSet, comp graph.Component) (*models.MergedModule, error) {
	names := make([]string, len(comp.Members))
	for i, id := range comp.Members {
		names[i] = id.LogicalName()
	}

	id := MergedID(comp.Index)
	if base.Has(id) {
		return nil, errors.NewCycleMergeError(comp.Index, names,
			fmt.Sprintf("merged module id %s collides with an existing module", id))
	}

	merged := &models.MergedModule{ID: id, Component: comp.Index}
	seen := make(map[string]models.ModuleID, len(names))
	for i, memberID := range comp.Members {
		name := names[i]
		if prev, dup := seen[name]; dup {
			return nil, errors.NewCycleMergeError(comp.Index, names,
				fmt.Sprintf("%s and %s share the logical name %q", prev, memberID, name))
		}
		seen[name] = memberID

		emitted, ok := base.Get(memberID)
		if !ok {
			return nil, errors.NewCycleMergeError(comp.Index, names,
				fmt.Sprintf("member %s has no emitted module", memberID))
		}
		original, ok := emitted.(*models.OriginalModule)
		if !ok {
			return nil, errors.NewCycleMergeError(comp.Index, names,
				fmt.Sprintf("member %s is already a %s module", memberID, emitted.Kind()))
		}
		merged.Members = append(merged.Members, models.MergedMember{ID: memberID, Name: name, AST: original.AST})
	}
	return merged, nil
}

// ResolvedGraph derives the dependency graph of a resolved output set from the
// pre-resolution graph. Edges leaving a member now leave its merged module,
// edges inside a component disappear, every redirect depends only on its
// merged module, and edges into a member keep pointing at its redirect.
func ResolvedGraph(base *graph.Graph, out *models.OutputSet) *graph.Graph {
	owner := make(map[models.ModuleID]models.ModuleID)
	g := graph.New()
	for _, m := range out.Modules() {
		g.AddVertex(m.ModuleID())
		if r, ok := m.(*models.RedirectModule); ok {
			owner[r.ID] = r.Target
		}
	}

	for _, from := range base.Vertices() {
		source, merged := owner[from]
		if !merged {
			source = from
		}
		for _, to := range base.Successors(from) {
			if merged && owner[to] == source {
				continue
			}
			// both ends exist: out holds every base vertex plus the merged modules
			_ = g.AddEdge(source, to, base.Weight(from, to))
		}
	}
	for _, m := range out.Modules() {
		if r, ok := m.(*models.RedirectModule); ok {
			_ = g.AddEdge(r.ID, r.Target, 1)
		}
	}
	return g
}
