// Package syntax parses the ActionScript 3 subset the converter understands.
//
// The tree is built by participle straight into the structs below. It is never
// mutated after parsing, so one tree can be shared by concurrent readers.
package syntax

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// File is one compilation unit: a package block holding imports and declarations
type File struct {
	Pos     lexer.Position
	Package *QualifiedName `parser:"'package' @@?"`
	Imports []*Import      `parser:"'{' @@*"`
	Decls   []*Decl        `parser:"@@* '}'"`
}

// PackageName returns the dotted package name, empty for the top-level package
func (f *File) PackageName() string {
	if f.Package == nil {
		return ""
	}
	return f.Package.String()
}

// QualifiedName is a dotted name such as com.example.Foo
type QualifiedName struct {
	Pos   lexer.Position
	Parts []string `parser:"@Ident ( '.' @Ident )*"`
}

func (q *QualifiedName) String() string {
	return strings.Join(q.Parts, ".")
}

// Last returns the final segment
func (q *QualifiedName) Last() string {
	return q.Parts[len(q.Parts)-1]
}

// Qualifier returns every segment but the last, joined
func (q *QualifiedName) Qualifier() string {
	return strings.Join(q.Parts[:len(q.Parts)-1], ".")
}

// Import is `import a.b.C;` or `import a.b.*;`
type Import struct {
	Pos      lexer.Position
	Name     *QualifiedName `parser:"'import' @@"`
	Wildcard bool           `parser:"@( '.' '*' )? ';'"`
}

// Decl is a top-level declaration inside the package block
type Decl struct {
	Pos       lexer.Position
	Modifiers []string  `parser:"@( 'public' | 'private' | 'protected' | 'internal' | 'static' | 'final' | 'override' | 'dynamic' )*"`
	Class     *Class    `parser:"( @@"`
	Function  *Function `parser:"| @@"`
	Variable  *VarDecl  `parser:"| @@ ';' )"`
}

// Name returns the declared name
func (d *Decl) Name() string {
	switch {
	case d.Class != nil:
		return d.Class.Name
	case d.Function != nil:
		return d.Function.Name
	default:
		return d.Variable.Name
	}
}

// HasModifier reports whether the declaration carries mod
func (d *Decl) HasModifier(mod string) bool {
	return hasModifier(d.Modifiers, mod)
}

// Class declares a class with fields and methods
type Class struct {
	Pos        lexer.Position
	Name       string           `parser:"'class' @Ident"`
	Extends    *QualifiedName   `parser:"( 'extends' @@ )?"`
	Implements []*QualifiedName `parser:"( 'implements' @@ ( ',' @@ )* )?"`
	Members    []*Member        `parser:"'{' @@* '}'"`
}

// Constructor returns the method named after the class, if any
func (c *Class) Constructor() *Function {
	for _, m := range c.Members {
		if m.Function != nil && m.Function.Name == c.Name && !m.IsStatic() {
			return m.Function
		}
	}
	return nil
}

// Member is a field or method of a class
type Member struct {
	Pos       lexer.Position
	Modifiers []string  `parser:"@( 'public' | 'private' | 'protected' | 'internal' | 'static' | 'final' | 'override' | 'dynamic' )*"`
	Function  *Function `parser:"( @@"`
	Variable  *VarDecl  `parser:"| @@ ';' )"`
}

// Name returns the member name
func (m *Member) Name() string {
	if m.Function != nil {
		return m.Function.Name
	}
	return m.Variable.Name
}

// IsStatic reports whether the member belongs to the class rather than instances
func (m *Member) IsStatic() bool {
	return hasModifier(m.Modifiers, "static")
}

// Function is a named function or method
type Function struct {
	Pos    lexer.Position
	Name   string   `parser:"'function' @Ident"`
	Params []*Param `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
	Result *TypeRef `parser:"( ':' @@ )?"`
	Body   *Block   `parser:"@@"`
}

// Param is a function parameter with optional type and default value
type Param struct {
	Pos     lexer.Position
	Name    string   `parser:"@Ident"`
	Type    *TypeRef `parser:"( ':' @@ )?"`
	Default *Expr    `parser:"( '=' @@ )?"`
}

// TypeRef is a type annotation. Annotations are erased on output.
type TypeRef struct {
	Pos  lexer.Position
	Any  bool           `parser:"  @'*'"`
	Void bool           `parser:"| @'void'"`
	Name *QualifiedName `parser:"| @@"`
}

// VarDecl is `var x:T = v` or `const x:T = v`, without the terminator
type VarDecl struct {
	Pos   lexer.Position
	Kind  string   `parser:"@( 'var' | 'const' )"`
	Name  string   `parser:"@Ident"`
	Type  *TypeRef `parser:"( ':' @@ )?"`
	Value *Expr    `parser:"( '=' @@ )?"`
}

// IsConst reports whether the variable was declared with const
func (v *VarDecl) IsConst() bool {
	return v.Kind == "const"
}

// Block is a braced statement list
type Block struct {
	Pos   lexer.Position
	Stmts []*Stmt `parser:"'{' @@* '}'"`
}

// Stmt is one statement; exactly one field is set
type Stmt struct {
	Pos      lexer.Position
	Block    *Block   `parser:"  @@"`
	Var      *VarDecl `parser:"| @@ ';'"`
	Return   *Return  `parser:"| @@"`
	If       *If      `parser:"| @@"`
	While    *While   `parser:"| @@"`
	For      *For     `parser:"| @@"`
	Throw    *Throw   `parser:"| @@"`
	Try      *Try     `parser:"| @@"`
	Break    bool     `parser:"| @'break' ';'"`
	Continue bool     `parser:"| @'continue' ';'"`
	Empty    bool     `parser:"| @';'"`
	Expr     *Expr    `parser:"| @@ ';'"`
}

type Return struct {
	Pos   lexer.Position
	Value *Expr `parser:"'return' @@? ';'"`
}

type If struct {
	Pos  lexer.Position
	Cond *Expr `parser:"'if' '(' @@ ')'"`
	Then *Stmt `parser:"@@"`
	Else *Stmt `parser:"( 'else' @@ )?"`
}

type While struct {
	Pos  lexer.Position
	Cond *Expr `parser:"'while' '(' @@ ')'"`
	Body *Stmt `parser:"@@"`
}

type For struct {
	Pos  lexer.Position
	Init *ForInit `parser:"'for' '(' @@? ';'"`
	Cond *Expr    `parser:"@@? ';'"`
	Post *Expr    `parser:"@@? ')'"`
	Body *Stmt    `parser:"@@"`
}

type ForInit struct {
	Pos  lexer.Position
	Var  *VarDecl `parser:"  @@"`
	Expr *Expr    `parser:"| @@"`
}

type Throw struct {
	Pos   lexer.Position
	Value *Expr `parser:"'throw' @@ ';'"`
}

// Try is try/catch/finally with at most one catch clause
type Try struct {
	Pos     lexer.Position
	Body    *Block `parser:"'try' @@"`
	Catch   *Catch `parser:"@@?"`
	Finally *Block `parser:"( 'finally' @@ )?"`
}

type Catch struct {
	Pos  lexer.Position
	Name string   `parser:"'catch' '(' @Ident"`
	Type *TypeRef `parser:"( ':' @@ )? ')'"`
	Body *Block   `parser:"@@"`
}

// Expr is a conditional expression, optionally assigned to
type Expr struct {
	Pos   lexer.Position
	Cond  *Conditional `parser:"@@"`
	Op    string       `parser:"( @( '=' | '+=' | '-=' | '*=' | '/=' | '%=' )"`
	Value *Expr        `parser:"  @@ )?"`
}

// Conditional is `test ? then : else` or just test
type Conditional struct {
	Pos  lexer.Position
	Test *Binary `parser:"@@"`
	Then *Expr   `parser:"( '?' @@"`
	Else *Expr   `parser:"  ':' @@ )?"`
}

// Binary is a flat operator chain. Operator precedence is the same in the
// source and target languages, so the chain is printed back as written.
type Binary struct {
	Pos  lexer.Position
	Head *Unary    `parser:"@@"`
	Tail []*OpTerm `parser:"@@*"`
}

type OpTerm struct {
	Pos     lexer.Position
	Op      string `parser:"@( '||' | '&&' | '===' | '!==' | '==' | '!=' | '<=' | '>=' | '<' | '>' | '+' | '-' | '*' | '/' | '%' | 'instanceof' )"`
	Operand *Unary `parser:"@@"`
}

type Unary struct {
	Pos     lexer.Position
	Ops     []string `parser:"@( '!' | '-' | '+' | '++' | '--' | 'typeof' )*"`
	Operand *Postfix `parser:"@@"`
}

// Postfix is a primary followed by member, index and call suffixes
type Postfix struct {
	Pos      lexer.Position
	Primary  *Primary  `parser:"@@"`
	Suffixes []*Suffix `parser:"@@*"`
	Update   string    `parser:"@( '++' | '--' )?"`
}

type Suffix struct {
	Pos    lexer.Position
	Member *string `parser:"  '.' @Ident"`
	Index  *Expr   `parser:"| '[' @@ ']'"`
	Call   bool    `parser:"| @'('"`
	Args   []*Expr `parser:"  ( @@ ( ',' @@ )* )? ')'"`
}

type Primary struct {
	Pos    lexer.Position
	Number *string    `parser:"  @Number"`
	String *string    `parser:"| @String"`
	Bool   *string    `parser:"| @( 'true' | 'false' )"`
	Null   bool       `parser:"| @'null'"`
	This   bool       `parser:"| @'this'"`
	Super  bool       `parser:"| @'super'"`
	New    *New       `parser:"| @@"`
	Func   *FuncExpr  `parser:"| @@"`
	Array  *ArrayLit  `parser:"| @@"`
	Object *ObjectLit `parser:"| @@"`
	Ident  *string    `parser:"| @Ident"`
	Paren  *Expr      `parser:"| '(' @@ ')'"`
}

// New is a constructor call; the parentheses are optional
type New struct {
	Pos     lexer.Position
	Type    *QualifiedName `parser:"'new' @@"`
	HasArgs bool           `parser:"( @'('"`
	Args    []*Expr        `parser:"  ( @@ ( ',' @@ )* )? ')' )?"`
}

// FuncExpr is an anonymous function
type FuncExpr struct {
	Pos    lexer.Position
	Params []*Param `parser:"'function' '(' ( @@ ( ',' @@ )* )? ')'"`
	Result *TypeRef `parser:"( ':' @@ )?"`
	Body   *Block   `parser:"@@"`
}

type ArrayLit struct {
	Pos      lexer.Position
	Elements []*Expr `parser:"'[' ( @@ ( ',' @@ )* )? ']'"`
}

type ObjectLit struct {
	Pos   lexer.Position
	Props []*Property `parser:"'{' ( @@ ( ',' @@ )* )? '}'"`
}

type Property struct {
	Pos   lexer.Position
	Key   string `parser:"@( Ident | String | Number )"`
	Value *Expr  `parser:"':' @@"`
}

func hasModifier(mods []string, mod string) bool {
	for _, m := range mods {
		if m == mod {
			return true
		}
	}
	return false
}
