package pipeline

import (
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/symbols"
)

// Parser turns source text into a syntax tree
type Parser interface {
	Parse(path, text string) (models.AST, error)
}

// ExportExtractor lists the exports a parsed file contributes to the symbol table.
// Returned symbols must be fresh values: the pipeline sets their ExportPath.
type ExportExtractor interface {
	ExtractExports(ast models.AST) ([]models.Export, error)
}

// Rewriter resolves every external reference of a tree against the frozen table
type Rewriter interface {
	Rewrite(ast models.AST, table *symbols.Table) (models.AST, error)
}

// EdgeExtractor reports the modules a rewritten tree depends on, with weights
type EdgeExtractor interface {
	DependencyEdges(ast models.AST) (map[models.ModuleID]int, error)
}

// Frontend bundles the language-specific collaborators of a run
type Frontend interface {
	Parser
	ExportExtractor
	Rewriter
	EdgeExtractor
}
