package models

import "strings"

// SourceFile is one input file reduced to its project-relative path and text
type SourceFile struct {
	Path string // slash-separated path relative to the project root
	Text string // file contents, possibly substituted at read time
}

// ModuleID is the output path of a module and the dependency graph vertex identity
type ModuleID string

// ModuleSuffix is the file suffix every emitted module carries
const ModuleSuffix = ".js"

// SourceSuffix is the file suffix of convertible source files
const SourceSuffix = ".as"

// ModuleIDForSource derives the output module id of a source path
func ModuleIDForSource(path string) ModuleID {
	return ModuleID(strings.TrimSuffix(path, SourceSuffix) + ModuleSuffix)
}

// LogicalName strips the module suffix, giving the name loaders use
func (id ModuleID) LogicalName() string {
	return strings.TrimSuffix(string(id), ModuleSuffix)
}

func (id ModuleID) String() string {
	return string(id)
}

// SymbolKind classifies an exported declaration
type SymbolKind int

const (
	ClassSymbol SymbolKind = iota
	FunctionSymbol
	VariableSymbol
	ConstantSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case ClassSymbol:
		return "class"
	case FunctionSymbol:
		return "function"
	case VariableSymbol:
		return "variable"
	case ConstantSymbol:
		return "constant"
	default:
		return "unknown"
	}
}

// Symbol is a named declaration exported into a package namespace
type Symbol struct {
	Name       string     // declared name, unique within its package
	Package    string     // dotted package name, empty for the top-level package
	Kind       SymbolKind // declaration kind
	Public     bool       // visible outside its package
	ExportPath ModuleID   // module that defines the symbol, set by the pipeline
}

// QualifiedName returns the dotted package path plus name
func (s *Symbol) QualifiedName() string {
	if s.Package == "" {
		return s.Name
	}
	return s.Package + "." + s.Name
}

// Export pairs a package name with an exported symbol.
// A nil Symbol only declares that the package exists.
type Export struct {
	Package string
	Symbol  *Symbol
}
