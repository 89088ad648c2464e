package rewriter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/symbols"
	"github.com/toyz/as2amd/internal/syntax"
)

// builtins are globals of the target runtime; they resolve without an import
var builtins = map[string]bool{
	"Array": true, "Boolean": true, "Date": true, "Error": true, "Function": true,
	"Infinity": true, "JSON": true, "Math": true, "NaN": true, "Number": true,
	"Object": true, "RangeError": true, "RegExp": true, "String": true,
	"SyntaxError": true, "TypeError": true, "arguments": true, "console": true,
	"decodeURIComponent": true, "encodeURIComponent": true, "isFinite": true,
	"isNaN": true, "parseFloat": true, "parseInt": true, "undefined": true,
}

// IsBuiltin reports whether name is a runtime global
func IsBuiltin(name string) bool {
	return builtins[name]
}

type scope struct {
	parent  *scope
	names   map[string]Binding
	closure bool // scope of a function expression
}

func newScope(parent *scope, closure bool) *scope {
	return &scope{parent: parent, names: make(map[string]Binding), closure: closure}
}

func (s *scope) declareLocal(name string) {
	s.names[name] = Binding{Kind: LocalBinding, Name: name}
}

type resolver struct {
	src       *Source
	table     *symbols.Table
	pkg       string
	decls     map[string]bool
	imported  map[string]*models.Symbol
	wildcards []string
	mod       *Module
	errs      *errors.MultipleErrors
	seen      map[*models.Symbol]bool
	owner     any  // method or class whose receiver closures capture
	inherits  bool // inside a class with a superclass
}

// Resolve binds every reference in src against table.
//
// Identifiers are looked up in locals and parameters (hoisted to the
// enclosing function), then class members, then the file's own declarations,
// explicit imports, wildcard imports, the file's package, the top-level
// package and finally runtime globals. A dotted expression that names a
// package-qualified symbol resolves to that symbol. Every failure is
// collected; a single failure is returned as is, several as
// *errors.MultipleErrors.
func Resolve(src *Source, table *symbols.Table) (*Module, error) {
	r := &resolver{
		src:      src,
		table:    table,
		pkg:      src.File.PackageName(),
		decls:    make(map[string]bool),
		imported: make(map[string]*models.Symbol),
		errs:     errors.NewMultipleErrors(),
		seen:     make(map[*models.Symbol]bool),
		mod: &Module{
			Source:       src,
			Bindings:     make(map[any]Binding),
			CapturesThis: make(map[any]bool),
			weights:      make(map[models.ModuleID]int),
		},
	}
	for _, d := range src.File.Decls {
		r.decls[d.Name()] = true
	}

	r.imports()
	for _, d := range src.File.Decls {
		switch {
		case d.Class != nil:
			r.class(d.Class)
		case d.Function != nil:
			r.function(d.Function.Params, d.Function.Body, nil, false)
		default:
			r.expr(d.Variable.Value, nil)
		}
	}

	switch r.errs.Count() {
	case 0:
		return r.mod, nil
	case 1:
		return nil, r.errs.Errors[0]
	default:
		return nil, r.errs
	}
}

func (r *resolver) imports() {
	for _, imp := range r.src.File.Imports {
		if imp.Wildcard {
			pkg := imp.Name.String()
			if !r.table.HasPackage(pkg) {
				r.fail(imp.Pos, pkg, "unknown package '%s'", pkg)
				continue
			}
			if !slices.Contains(r.wildcards, pkg) {
				r.wildcards = append(r.wildcards, pkg)
			}
			continue
		}

		pkg, name := imp.Name.Qualifier(), imp.Name.Last()
		if !r.table.HasPackage(pkg) {
			r.fail(imp.Pos, imp.Name.String(), "unknown package '%s'", pkg)
			continue
		}
		sym, ok := r.table.Lookup(pkg, name)
		if !ok {
			r.fail(imp.Pos, imp.Name.String(), "package '%s' has no symbol '%s'", pkg, name)
			continue
		}
		if !r.visible(sym) {
			r.fail(imp.Pos, imp.Name.String(), "'%s' is not public", sym.QualifiedName())
			continue
		}
		if prev, ok := r.imported[name]; ok && prev != sym {
			r.fail(imp.Pos, imp.Name.String(), "import of '%s' conflicts with '%s'",
				sym.QualifiedName(), prev.QualifiedName())
			continue
		}
		r.imported[name] = sym
	}
}

func (r *resolver) class(c *syntax.Class) {
	if c.Extends != nil {
		r.typeName(c.Extends, c.Extends, nil)
	}
	r.inherits = c.Extends != nil

	members := newScope(nil, false)
	for _, m := range c.Members {
		if m.Function != nil && m.Function.Name == c.Name {
			continue
		}
		kind := InstanceMemberBinding
		if m.IsStatic() {
			kind = StaticMemberBinding
		}
		members.names[m.Name()] = Binding{Kind: kind, Name: m.Name(), Class: c.Name}
	}

	for _, m := range c.Members {
		if m.Function != nil {
			r.owner = m.Function
			r.function(m.Function.Params, m.Function.Body, members, false)
			continue
		}
		r.owner = c
		r.expr(m.Variable.Value, members)
	}
	r.owner = nil
	r.inherits = false
}

func (r *resolver) function(params []*syntax.Param, body *syntax.Block, parent *scope, closure bool) {
	sc := newScope(parent, closure)
	for _, p := range params {
		sc.declareLocal(p.Name)
	}
	hoist(body.Stmts, sc)

	for _, p := range params {
		r.expr(p.Default, sc)
	}
	r.block(body, sc)
}

// hoist declares every var of a function body, nested blocks included
func hoist(stmts []*syntax.Stmt, sc *scope) {
	for _, s := range stmts {
		hoistStmt(s, sc)
	}
}

func hoistStmt(s *syntax.Stmt, sc *scope) {
	if s == nil {
		return
	}
	switch {
	case s.Block != nil:
		hoist(s.Block.Stmts, sc)
	case s.Var != nil:
		sc.declareLocal(s.Var.Name)
	case s.If != nil:
		hoistStmt(s.If.Then, sc)
		hoistStmt(s.If.Else, sc)
	case s.While != nil:
		hoistStmt(s.While.Body, sc)
	case s.For != nil:
		if s.For.Init != nil && s.For.Init.Var != nil {
			sc.declareLocal(s.For.Init.Var.Name)
		}
		hoistStmt(s.For.Body, sc)
	case s.Try != nil:
		hoist(s.Try.Body.Stmts, sc)
		if s.Try.Catch != nil {
			sc.declareLocal(s.Try.Catch.Name)
			hoist(s.Try.Catch.Body.Stmts, sc)
		}
		if s.Try.Finally != nil {
			hoist(s.Try.Finally.Stmts, sc)
		}
	}
}

func (r *resolver) block(b *syntax.Block, sc *scope) {
	for _, s := range b.Stmts {
		r.stmt(s, sc)
	}
}

func (r *resolver) stmt(s *syntax.Stmt, sc *scope) {
	if s == nil {
		return
	}
	switch {
	case s.Block != nil:
		r.block(s.Block, sc)
	case s.Var != nil:
		r.expr(s.Var.Value, sc)
	case s.Return != nil:
		r.expr(s.Return.Value, sc)
	case s.If != nil:
		r.expr(s.If.Cond, sc)
		r.stmt(s.If.Then, sc)
		r.stmt(s.If.Else, sc)
	case s.While != nil:
		r.expr(s.While.Cond, sc)
		r.stmt(s.While.Body, sc)
	case s.For != nil:
		if init := s.For.Init; init != nil {
			if init.Var != nil {
				r.expr(init.Var.Value, sc)
			} else {
				r.expr(init.Expr, sc)
			}
		}
		r.expr(s.For.Cond, sc)
		r.expr(s.For.Post, sc)
		r.stmt(s.For.Body, sc)
	case s.Throw != nil:
		r.expr(s.Throw.Value, sc)
	case s.Try != nil:
		r.block(s.Try.Body, sc)
		if s.Try.Catch != nil {
			r.block(s.Try.Catch.Body, sc)
		}
		if s.Try.Finally != nil {
			r.block(s.Try.Finally, sc)
		}
	case s.Expr != nil:
		r.expr(s.Expr, sc)
	}
}

func (r *resolver) expr(e *syntax.Expr, sc *scope) {
	if e == nil {
		return
	}
	c := e.Cond
	r.unary(c.Test.Head, sc)
	for _, t := range c.Test.Tail {
		r.unary(t.Operand, sc)
	}
	r.expr(c.Then, sc)
	r.expr(c.Else, sc)
	r.expr(e.Value, sc)
}

func (r *resolver) unary(u *syntax.Unary, sc *scope) {
	p := u.Operand
	prim := p.Primary
	switch {
	case prim.Ident != nil:
		r.identifier(p, sc)
	case prim.New != nil:
		r.typeName(prim.New, prim.New.Type, sc)
		for _, a := range prim.New.Args {
			r.expr(a, sc)
		}
	case prim.Func != nil:
		r.function(prim.Func.Params, prim.Func.Body, sc, true)
	case prim.Array != nil:
		for _, el := range prim.Array.Elements {
			r.expr(el, sc)
		}
	case prim.Object != nil:
		for _, prop := range prim.Object.Props {
			r.expr(prop.Value, sc)
		}
	case prim.Paren != nil:
		r.expr(prim.Paren, sc)
	}

	for _, suf := range p.Suffixes {
		r.expr(suf.Index, sc)
		for _, a := range suf.Args {
			r.expr(a, sc)
		}
	}
}

func (r *resolver) identifier(p *syntax.Postfix, sc *scope) {
	name := *p.Primary.Ident
	if b, ok := r.lookup(name, sc, p.Primary.Pos); ok {
		r.mod.Bindings[p] = b
		return
	}

	parts := []string{name}
	for _, suf := range p.Suffixes {
		if suf.Member == nil {
			break
		}
		parts = append(parts, *suf.Member)
	}
	if sym, n := r.qualified(parts); sym != nil {
		r.mod.Bindings[p] = r.external(sym, n)
		return
	}

	if builtins[name] {
		r.mod.Bindings[p] = Binding{Kind: BuiltinBinding, Name: name}
		return
	}

	// superclass members are not in the symbol table; anything left inside
	// a subclass is taken to be inherited
	if r.inherits && r.owner != nil {
		b := Binding{Kind: InstanceMemberBinding, Name: name, Captured: insideClosure(sc)}
		if b.Captured {
			r.mod.CapturesThis[r.owner] = true
		}
		r.mod.Bindings[p] = b
		return
	}
	r.fail(p.Primary.Pos, name, "unresolved identifier '%s'", name)
}

func insideClosure(sc *scope) bool {
	for s := sc; s != nil; s = s.parent {
		if s.closure {
			return true
		}
	}
	return false
}

// typeName resolves the target of new or extends and records it under key
func (r *resolver) typeName(key any, q *syntax.QualifiedName, sc *scope) {
	if sym, n := r.qualified(q.Parts); sym != nil {
		r.mod.Bindings[key] = r.external(sym, n+1)
		return
	}

	first := q.Parts[0]
	if b, ok := r.lookup(first, sc, q.Pos); ok {
		b.Consume = 1
		r.mod.Bindings[key] = b
		return
	}
	if builtins[first] {
		r.mod.Bindings[key] = Binding{Kind: BuiltinBinding, Name: first, Consume: 1}
		return
	}
	r.fail(q.Pos, q.String(), "unresolved type '%s'", q.String())
}

// qualified finds the longest package prefix of parts naming a visible
// symbol. It returns the symbol and the number of segments after the first
// that belong to the reference.
func (r *resolver) qualified(parts []string) (*models.Symbol, int) {
	for j := len(parts) - 1; j >= 1; j-- {
		pkg := strings.Join(parts[:j], ".")
		if sym, ok := r.table.Lookup(pkg, parts[j]); ok && r.visible(sym) {
			return sym, j
		}
	}
	return nil, 0
}

func (r *resolver) lookup(name string, sc *scope, pos lexer.Position) (Binding, bool) {
	crossed := false
	for s := sc; s != nil; s = s.parent {
		if b, ok := s.names[name]; ok {
			if b.Kind == InstanceMemberBinding && crossed {
				b.Captured = true
				if r.owner != nil {
					r.mod.CapturesThis[r.owner] = true
				}
			}
			return b, true
		}
		if s.closure {
			crossed = true
		}
	}

	if r.decls[name] {
		return Binding{Kind: LocalBinding, Name: name}, true
	}
	if sym, ok := r.imported[name]; ok {
		return r.external(sym, 0), true
	}

	var matches []*models.Symbol
	for _, pkg := range r.wildcards {
		sym, ok := r.table.Lookup(pkg, name)
		if ok && r.visible(sym) && !slices.Contains(matches, sym) {
			matches = append(matches, sym)
		}
	}
	if len(matches) > 1 {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.QualifiedName()
		}
		r.fail(pos, name, "'%s' is ambiguous between %s", name, strings.Join(names, " and "))
	}
	if len(matches) > 0 {
		return r.external(matches[0], 0), true
	}

	if sym, ok := r.table.Lookup(r.pkg, name); ok {
		return r.external(sym, 0), true
	}
	// the top-level package is open everywhere
	if sym, ok := r.table.Lookup("", name); ok && r.pkg != "" && sym.Public {
		return r.external(sym, 0), true
	}
	return Binding{}, false
}

func (r *resolver) external(sym *models.Symbol, consume int) Binding {
	if !r.seen[sym] {
		r.seen[sym] = true
		r.mod.Externals = append(r.mod.Externals, sym)
	}
	r.mod.weights[sym.ExportPath]++
	return Binding{Kind: ExternalBinding, Name: sym.Name, Symbol: sym, Consume: consume}
}

func (r *resolver) visible(sym *models.Symbol) bool {
	return sym.Public || sym.Package == r.pkg
}

func (r *resolver) fail(pos lexer.Position, ident, format string, args ...any) {
	r.errs.Add(errors.NewRewriteError(r.src.Path, pos.Line, pos.Column, ident, fmt.Sprintf(format, args...)))
}
