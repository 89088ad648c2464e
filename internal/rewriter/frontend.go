package rewriter

import (
	"fmt"

	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/symbols"
	"github.com/toyz/as2amd/internal/syntax"
)

// Frontend implements the pipeline collaborators for ActionScript sources
type Frontend struct {
	parser syntax.Parser
}

// NewFrontend creates the ActionScript frontend
func NewFrontend() *Frontend {
	return &Frontend{}
}

// Parse parses one file into a *Source
func (f *Frontend) Parse(path, text string) (models.AST, error) {
	file, err := f.parser.Parse(path, text)
	if err != nil {
		return nil, err
	}
	return &Source{Path: path, ID: models.ModuleIDForSource(path), File: file}, nil
}

// ExtractExports declares the file's package and one symbol per top-level declaration
func (f *Frontend) ExtractExports(ast models.AST) ([]models.Export, error) {
	src, err := asSource(ast)
	if err != nil {
		return nil, err
	}
	return Exports(src.File), nil
}

// Rewrite resolves every reference of a *Source into a *Module
func (f *Frontend) Rewrite(ast models.AST, table *symbols.Table) (models.AST, error) {
	src, err := asSource(ast)
	if err != nil {
		return nil, err
	}
	return Resolve(src, table)
}

// DependencyEdges weighs each dependency by the number of references to it
func (f *Frontend) DependencyEdges(ast models.AST) (map[models.ModuleID]int, error) {
	mod, ok := ast.(*Module)
	if !ok {
		return nil, fmt.Errorf("expected a rewritten module, got %T", ast)
	}
	out := make(map[models.ModuleID]int, len(mod.weights))
	for id, w := range mod.weights {
		out[id] = w
	}
	return out, nil
}

// Exports lists what a file contributes to the symbol table. The first entry
// always declares the package, even when the file declares nothing.
func Exports(file *syntax.File) []models.Export {
	pkg := file.PackageName()
	out := []models.Export{{Package: pkg}}
	for _, d := range file.Decls {
		sym := &models.Symbol{Name: d.Name(), Package: pkg, Public: d.HasModifier("public")}
		switch {
		case d.Class != nil:
			sym.Kind = models.ClassSymbol
		case d.Function != nil:
			sym.Kind = models.FunctionSymbol
		case d.Variable.IsConst():
			sym.Kind = models.ConstantSymbol
		default:
			sym.Kind = models.VariableSymbol
		}
		out = append(out, models.Export{Package: pkg, Symbol: sym})
	}
	return out
}

func asSource(ast models.AST) (*Source, error) {
	src, ok := ast.(*Source)
	if !ok {
		return nil, fmt.Errorf("expected a parsed source, got %T", ast)
	}
	return src, nil
}
