// Package rewriter is the language frontend of the converter: it parses files,
// extracts their exports, resolves every reference against the symbol table
// and reports the resulting module dependencies.
package rewriter

import (
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/syntax"
)

// Source is a parsed file together with the path it came from
type Source struct {
	Path string
	ID   models.ModuleID
	File *syntax.File
}

// BindingKind says how a resolved identifier is printed
type BindingKind int

const (
	// LocalBinding is a parameter, local variable or same-file declaration
	LocalBinding BindingKind = iota
	// BuiltinBinding is a global of the target runtime
	BuiltinBinding
	// InstanceMemberBinding is an implicit this.member reference
	InstanceMemberBinding
	// StaticMemberBinding is an implicit Class.member reference
	StaticMemberBinding
	// ExternalBinding is a symbol exported by another module
	ExternalBinding
)

func (k BindingKind) String() string {
	switch k {
	case LocalBinding:
		return "local"
	case BuiltinBinding:
		return "builtin"
	case InstanceMemberBinding:
		return "instance"
	case StaticMemberBinding:
		return "static"
	case ExternalBinding:
		return "external"
	default:
		return "unknown"
	}
}

// Binding is the resolution of one reference
type Binding struct {
	Kind   BindingKind
	Name   string
	Class  string         // owning class of member bindings
	Symbol *models.Symbol // set for ExternalBinding
	// Consume counts the name segments folded into this reference: member
	// suffixes of a fully qualified expression, or parts of a qualified type.
	Consume int
	// Captured marks an instance member reached from inside a nested function,
	// which must go through the saved receiver instead of this
	Captured bool
}

// Module is a rewritten file. The syntax tree is shared, never modified;
// resolutions live in Bindings, keyed by *syntax.Postfix for expression
// identifiers, *syntax.New for constructor targets and *syntax.QualifiedName
// for superclasses.
type Module struct {
	Source    *Source
	Bindings  map[any]Binding
	Externals []*models.Symbol // distinct external symbols, first use first
	// CapturesThis marks methods (*syntax.Function) whose closures reach
	// instance members, and classes (*syntax.Class) whose field initializers do
	CapturesThis map[any]bool
	weights      map[models.ModuleID]int
}

// File returns the syntax tree
func (m *Module) File() *syntax.File {
	return m.Source.File
}

// Binding returns the resolution recorded for node
func (m *Module) Binding(node any) (Binding, bool) {
	b, ok := m.Bindings[node]
	return b, ok
}

// Dependencies lists the modules this one needs, in first-use order
func (m *Module) Dependencies() []models.ModuleID {
	var out []models.ModuleID
	seen := make(map[models.ModuleID]bool)
	for _, sym := range m.Externals {
		if !seen[sym.ExportPath] {
			seen[sym.ExportPath] = true
			out = append(out, sym.ExportPath)
		}
	}
	return out
}

// ExportNames lists every top-level declaration in source order
func (m *Module) ExportNames() []string {
	return declNames(m.Source.File)
}

func declNames(file *syntax.File) []string {
	names := make([]string, 0, len(file.Decls))
	for _, d := range file.Decls {
		names = append(names, d.Name())
	}
	return names
}
