// Package generator renders the modules of an output set as AMD JavaScript.
package generator

import (
	"context"
	"fmt"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/rewriter"
	"github.com/toyz/as2amd/internal/templates"
)

// Generator renders emitted modules through the module templates
type Generator struct {
	registry *templates.TemplateRegistry
}

// NewGenerator creates a generator using the default template registry
func NewGenerator() *Generator {
	return &Generator{registry: templates.DefaultTemplateRegistry}
}

// NewGeneratorWithRegistry creates a generator rendering through registry
func NewGeneratorWithRegistry(registry *templates.TemplateRegistry) *Generator {
	return &Generator{registry: registry}
}

// Generate renders every module of set in set order. Failures are collected
// so that a single call reports every module that could not be rendered.
func (g *Generator) Generate(ctx context.Context, set *models.OutputSet) ([]*models.GeneratedModule, error) {
	var errs *errors.MultipleErrors
	out := make([]*models.GeneratedModule, 0, set.Len())
	for _, m := range set.Modules() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.CancelledErrorCode, "generation cancelled", err)
		}
		gm, err := g.Module(m)
		if err != nil {
			errors.AddToMultiple(&errs, err, errors.GenerationErrorCode)
			continue
		}
		out = append(out, gm)
	}
	if errs != nil && !errs.IsEmpty() {
		return nil, errs
	}
	return out, nil
}

// Module renders a single emitted module
func (g *Generator) Module(m models.EmittedModule) (*models.GeneratedModule, error) {
	var (
		content string
		err     error
	)
	switch v := m.(type) {
	case *models.OriginalModule:
		content, err = g.original(v)
	case *models.MergedModule:
		content, err = g.merged(v)
	case *models.RedirectModule:
		content, err = g.registry.Execute("redirect-module", templates.RedirectData{
			Target: v.Target.LogicalName(),
			Key:    v.Key,
		})
	default:
		err = fmt.Errorf("unsupported module type %T", m)
	}
	if err != nil {
		return nil, errors.NewGenerationError(m.ModuleID().String(), "render", err)
	}
	return &models.GeneratedModule{ID: m.ModuleID(), Kind: m.Kind(), Content: content}, nil
}

func (g *Generator) original(m *models.OriginalModule) (string, error) {
	mod, err := rewritten(m.AST)
	if err != nil {
		return "", err
	}

	deps := newDependencies()
	for _, id := range mod.Dependencies() {
		if id != m.ID {
			deps.add(id)
		}
	}
	link := func(sym *models.Symbol) string {
		if sym.ExportPath == m.ID {
			return sym.Name
		}
		return deps.ref(sym)
	}

	p := newPrinter(mod, link, 1)
	p.file()
	return g.registry.Execute("original-module", templates.ModuleData{
		Source:  mod.Source.Path,
		Deps:    deps.list,
		Body:    p.String(),
		Exports: mod.ExportNames(),
	})
}

// merged embeds every member in one factory. References between members go
// through the __merged table at call time; everything else is a dependency
// of the merged module itself.
func (g *Generator) merged(m *models.MergedModule) (string, error) {
	keys := make(map[models.ModuleID]string, len(m.Members))
	mods := make([]*rewriter.Module, len(m.Members))
	for i, member := range m.Members {
		mod, err := rewritten(member.AST)
		if err != nil {
			return "", fmt.Errorf("member %s: %w", member.ID, err)
		}
		keys[member.ID] = member.Name
		mods[i] = mod
	}

	deps := newDependencies()
	for _, mod := range mods {
		for _, id := range mod.Dependencies() {
			if _, inside := keys[id]; !inside {
				deps.add(id)
			}
		}
	}
	link := func(sym *models.Symbol) string {
		if key, inside := keys[sym.ExportPath]; inside {
			return "__merged[" + templates.Quote(key) + "]." + sym.Name
		}
		return deps.ref(sym)
	}

	var data templates.MergedData
	for i, member := range m.Members {
		p := newPrinter(mods[i], link, 2)
		p.file()
		data.Members = append(data.Members, templates.MemberData{
			Key:     member.Name,
			Body:    p.String(),
			Exports: mods[i].ExportNames(),
		})
	}
	data.Deps = deps.list
	return g.registry.Execute("merged-module", data)
}

func rewritten(ast models.AST) (*rewriter.Module, error) {
	mod, ok := ast.(*rewriter.Module)
	if !ok {
		return nil, fmt.Errorf("expected a rewritten module, got %T", ast)
	}
	return mod, nil
}

// dependencies numbers the modules a factory receives as __m0, __m1, ...
type dependencies struct {
	vars map[models.ModuleID]string
	list []templates.Dependency
}

func newDependencies() *dependencies {
	return &dependencies{vars: make(map[models.ModuleID]string)}
}

func (d *dependencies) add(id models.ModuleID) {
	if _, ok := d.vars[id]; ok {
		return
	}
	v := fmt.Sprintf("__m%d", len(d.list))
	d.vars[id] = v
	d.list = append(d.list, templates.Dependency{Path: id.LogicalName(), Var: v})
}

func (d *dependencies) ref(sym *models.Symbol) string {
	d.add(sym.ExportPath)
	return d.vars[sym.ExportPath] + "." + sym.Name
}
