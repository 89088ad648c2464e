package generator

import (
	"strings"

	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/rewriter"
	"github.com/toyz/as2amd/internal/syntax"
)

const indentUnit = "    "

// linker renders a reference to a symbol exported by another module
type linker func(sym *models.Symbol) string

// printer writes a rewritten module as ES5. Classes become constructor
// functions wrapped in an IIFE taking the superclass as _super.
type printer struct {
	mod   *rewriter.Module
	link  linker
	buf   *strings.Builder
	depth int
}

func newPrinter(mod *rewriter.Module, link linker, depth int) *printer {
	return &printer{mod: mod, link: link, buf: &strings.Builder{}, depth: depth}
}

func (p *printer) String() string {
	return p.buf.String()
}

func (p *printer) line(parts ...string) {
	p.buf.WriteString(strings.Repeat(indentUnit, p.depth))
	for _, s := range parts {
		p.buf.WriteString(s)
	}
	p.buf.WriteByte('\n')
}

// file prints every top-level declaration
func (p *printer) file() {
	for _, d := range p.mod.File().Decls {
		switch {
		case d.Class != nil:
			p.class(d.Class)
		case d.Function != nil:
			p.function("function "+d.Function.Name, d.Function.Params, d.Function.Body, "", nil)
		default:
			p.line(p.varDecl(d.Variable), ";")
		}
	}
}

func (p *printer) class(c *syntax.Class) {
	name := c.Name
	super := "Object"
	if c.Extends != nil {
		super = p.typeName(c.Extends, c.Extends)
	}

	p.line("var ", name, " = (function (_super) {")
	p.depth++

	fields := func() {
		for _, m := range c.Members {
			if m.Variable != nil && !m.IsStatic() {
				p.line("this.", m.Variable.Name, " = ", p.initializer(m.Variable), ";")
			}
		}
	}

	ctor := c.Constructor()
	if ctor != nil {
		captures := p.mod.CapturesThis[ctor] || p.mod.CapturesThis[c]
		p.function("function "+name, ctor.Params, ctor.Body, "", func() {
			if captures {
				p.line("var _this = this;")
			}
			fields()
		})
	} else {
		p.line("function ", name, "() {")
		p.depth++
		if p.mod.CapturesThis[c] {
			p.line("var _this = this;")
		}
		fields()
		if c.Extends != nil {
			p.line("_super.apply(this, arguments);")
		}
		p.depth--
		p.line("}")
	}

	if c.Extends != nil {
		p.line(name, ".prototype = Object.create(_super.prototype);")
		p.line(name, ".prototype.constructor = ", name, ";")
	}

	for _, m := range c.Members {
		fn := m.Function
		if fn == nil || fn == ctor {
			continue
		}
		target := name + ".prototype." + fn.Name
		if m.IsStatic() {
			target = name + "." + fn.Name
		}
		p.function(target+" = function ", fn.Params, fn.Body, ";", func() {
			if p.mod.CapturesThis[fn] {
				p.line("var _this = this;")
			}
		})
	}

	for _, m := range c.Members {
		if m.Variable != nil && m.IsStatic() {
			p.line(name, ".", m.Variable.Name, " = ", p.initializer(m.Variable), ";")
		}
	}

	p.line("return ", name, ";")
	p.depth--
	p.line("})(", super, ");")
}

// function prints "<header>(<params>) {", the body and the closing brace
func (p *printer) function(header string, params []*syntax.Param, body *syntax.Block, suffix string, prologue func()) {
	names := make([]string, len(params))
	for i, prm := range params {
		names[i] = prm.Name
	}
	p.line(header, "(", strings.Join(names, ", "), ") {")
	p.depth++
	if prologue != nil {
		prologue()
	}
	for _, prm := range params {
		if prm.Default == nil {
			continue
		}
		p.line("if (", prm.Name, " === undefined) {")
		p.depth++
		p.line(prm.Name, " = ", p.expr(prm.Default), ";")
		p.depth--
		p.line("}")
	}
	for _, s := range body.Stmts {
		p.stmt(s)
	}
	p.depth--
	p.line("}", suffix)
}

func (p *printer) stmt(s *syntax.Stmt) {
	switch {
	case s.Block != nil:
		p.line("{")
		p.nested(s)
		p.line("}")
	case s.Var != nil:
		p.line(p.varDecl(s.Var), ";")
	case s.Return != nil:
		if s.Return.Value == nil {
			p.line("return;")
		} else {
			p.line("return ", p.expr(s.Return.Value), ";")
		}
	case s.If != nil:
		p.ifStmt(s.If, "")
	case s.While != nil:
		p.line("while (", p.expr(s.While.Cond), ") {")
		p.nested(s.While.Body)
		p.line("}")
	case s.For != nil:
		init := ""
		if s.For.Init != nil {
			if s.For.Init.Var != nil {
				init = p.varDecl(s.For.Init.Var)
			} else {
				init = p.expr(s.For.Init.Expr)
			}
		}
		p.line("for (", init, "; ", p.expr(s.For.Cond), "; ", p.expr(s.For.Post), ") {")
		p.nested(s.For.Body)
		p.line("}")
	case s.Throw != nil:
		p.line("throw ", p.expr(s.Throw.Value), ";")
	case s.Try != nil:
		p.line("try {")
		p.block(s.Try.Body)
		if c := s.Try.Catch; c != nil {
			p.line("} catch (", c.Name, ") {")
			p.block(c.Body)
		}
		if s.Try.Finally != nil {
			p.line("} finally {")
			p.block(s.Try.Finally)
		}
		p.line("}")
	case s.Break:
		p.line("break;")
	case s.Continue:
		p.line("continue;")
	case s.Empty:
		p.line(";")
	case s.Expr != nil:
		p.line(p.expr(s.Expr), ";")
	}
}

// nested prints the statements of s one level deeper, unwrapping a block
func (p *printer) nested(s *syntax.Stmt) {
	if s.Block != nil {
		p.block(s.Block)
		return
	}
	p.depth++
	p.stmt(s)
	p.depth--
}

func (p *printer) block(b *syntax.Block) {
	p.depth++
	for _, s := range b.Stmts {
		p.stmt(s)
	}
	p.depth--
}

func (p *printer) ifStmt(n *syntax.If, prefix string) {
	p.line(prefix, "if (", p.expr(n.Cond), ") {")
	p.nested(n.Then)
	switch {
	case n.Else == nil:
		p.line("}")
	case n.Else.If != nil:
		p.ifStmt(n.Else.If, "} else ")
	default:
		p.line("} else {")
		p.nested(n.Else)
		p.line("}")
	}
}

func (p *printer) varDecl(v *syntax.VarDecl) string {
	if v.Value == nil && v.Type == nil {
		return "var " + v.Name
	}
	return "var " + v.Name + " = " + p.initializer(v)
}

func (p *printer) initializer(v *syntax.VarDecl) string {
	if v.Value != nil {
		return p.expr(v.Value)
	}
	return defaultValue(v.Type)
}

// defaultValue is the value an uninitialized variable of type t starts with
func defaultValue(t *syntax.TypeRef) string {
	if t == nil || t.Name == nil {
		return "undefined"
	}
	switch t.Name.String() {
	case "int", "uint":
		return "0"
	case "Number":
		return "NaN"
	case "Boolean":
		return "false"
	default:
		return "null"
	}
}

func (p *printer) expr(e *syntax.Expr) string {
	if e == nil {
		return ""
	}
	out := p.binary(e.Cond.Test)
	if e.Cond.Then != nil {
		out += " ? " + p.expr(e.Cond.Then) + " : " + p.expr(e.Cond.Else)
	}
	if e.Op != "" {
		out += " " + e.Op + " " + p.expr(e.Value)
	}
	return out
}

func (p *printer) binary(b *syntax.Binary) string {
	out := p.unary(b.Head)
	for _, t := range b.Tail {
		out += " " + t.Op + " " + p.unary(t.Operand)
	}
	return out
}

func (p *printer) unary(u *syntax.Unary) string {
	var sb strings.Builder
	for i, op := range u.Ops {
		sb.WriteString(op)
		if op == "typeof" || i < len(u.Ops)-1 {
			sb.WriteByte(' ')
		}
	}
	sb.WriteString(p.postfix(u.Operand))
	return sb.String()
}

func (p *printer) postfix(pf *syntax.Postfix) string {
	prim := pf.Primary
	suffixes := pf.Suffixes

	var out string
	switch {
	case prim.Super:
		out, suffixes = p.super(suffixes)
	case prim.Ident != nil:
		out = *prim.Ident
		if b, ok := p.mod.Binding(pf); ok {
			out = p.ref(b)
			suffixes = suffixes[b.Consume:]
		}
	default:
		out = p.primary(prim)
	}

	for _, s := range suffixes {
		out += p.suffix(s)
	}
	return out + pf.Update
}

// super rewrites super(...) and super.m(...) onto the _super constructor
func (p *printer) super(suffixes []*syntax.Suffix) (string, []*syntax.Suffix) {
	switch {
	case len(suffixes) > 0 && suffixes[0].Call:
		return "_super.call(" + p.args("this", suffixes[0].Args) + ")", suffixes[1:]
	case len(suffixes) > 1 && suffixes[0].Member != nil && suffixes[1].Call:
		return "_super.prototype." + *suffixes[0].Member + ".call(" + p.args("this", suffixes[1].Args) + ")", suffixes[2:]
	case len(suffixes) > 0 && suffixes[0].Member != nil:
		return "_super.prototype." + *suffixes[0].Member, suffixes[1:]
	default:
		return "_super", suffixes
	}
}

func (p *printer) suffix(s *syntax.Suffix) string {
	switch {
	case s.Member != nil:
		return "." + *s.Member
	case s.Index != nil:
		return "[" + p.expr(s.Index) + "]"
	default:
		return "(" + p.args("", s.Args) + ")"
	}
}

func (p *printer) args(first string, args []*syntax.Expr) string {
	parts := make([]string, 0, len(args)+1)
	if first != "" {
		parts = append(parts, first)
	}
	for _, a := range args {
		parts = append(parts, p.expr(a))
	}
	return strings.Join(parts, ", ")
}

func (p *printer) primary(prim *syntax.Primary) string {
	switch {
	case prim.Number != nil:
		return *prim.Number
	case prim.String != nil:
		return *prim.String
	case prim.Bool != nil:
		return *prim.Bool
	case prim.Null:
		return "null"
	case prim.This:
		return "this"
	case prim.New != nil:
		return "new " + p.typeName(prim.New, prim.New.Type) + "(" + p.args("", prim.New.Args) + ")"
	case prim.Func != nil:
		sub := newPrinter(p.mod, p.link, p.depth)
		sub.function("function ", prim.Func.Params, prim.Func.Body, "", nil)
		return strings.TrimSpace(sub.String())
	case prim.Array != nil:
		return "[" + p.args("", prim.Array.Elements) + "]"
	case prim.Object != nil:
		if len(prim.Object.Props) == 0 {
			return "{}"
		}
		parts := make([]string, len(prim.Object.Props))
		for i, prop := range prim.Object.Props {
			parts[i] = prop.Key + ": " + p.expr(prop.Value)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case prim.Paren != nil:
		return "(" + p.expr(prim.Paren) + ")"
	default:
		return ""
	}
}

// typeName prints the target of new or extends recorded under key
func (p *printer) typeName(key any, q *syntax.QualifiedName) string {
	b, ok := p.mod.Binding(key)
	if !ok {
		return q.String()
	}
	out := p.ref(b)
	if rest := q.Parts[b.Consume:]; len(rest) > 0 {
		out += "." + strings.Join(rest, ".")
	}
	return out
}

func (p *printer) ref(b rewriter.Binding) string {
	switch b.Kind {
	case rewriter.InstanceMemberBinding:
		if b.Captured {
			return "_this." + b.Name
		}
		return "this." + b.Name
	case rewriter.StaticMemberBinding:
		return b.Class + "." + b.Name
	case rewriter.ExternalBinding:
		return p.link(b.Symbol)
	default:
		return b.Name
	}
}
