// Package symbols holds the project-wide table of exported symbols.
//
// The table is written once through a Builder, in source-file order, and then
// frozen into a Table that is shared read-only by every rewrite worker.
package symbols

import (
	"sort"

	"github.com/toyz/as2amd/internal/models"
)

type packageEntry struct {
	name    string
	symbols map[string]*models.Symbol
	order   []string
}

// Builder accumulates exports before rewriting begins. It is not safe for
// concurrent use; the pipeline feeds it from a single goroutine.
type Builder struct {
	packages map[string]*packageEntry
	order    []string
	frozen   bool
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{packages: make(map[string]*packageEntry)}
}

// CreatePackage ensures a package entry exists
func (b *Builder) CreatePackage(pkg string) {
	b.mustBeOpen()
	b.entry(pkg)
}

// Add registers sym under pkg, creating the package when absent. When a symbol
// with the same name is already registered it is replaced and returned so the
// caller can apply its conflict policy.
func (b *Builder) Add(pkg string, sym *models.Symbol) (previous *models.Symbol) {
	b.mustBeOpen()
	entry := b.entry(pkg)
	if existing, ok := entry.symbols[sym.Name]; ok {
		previous = existing
	} else {
		entry.order = append(entry.order, sym.Name)
	}
	entry.symbols[sym.Name] = sym
	return previous
}

// Lookup returns the symbol currently registered under pkg and name
func (b *Builder) Lookup(pkg, name string) (*models.Symbol, bool) {
	entry, ok := b.packages[pkg]
	if !ok {
		return nil, false
	}
	sym, ok := entry.symbols[name]
	return sym, ok
}

// Freeze ends the build phase. The builder must not be used afterwards.
func (b *Builder) Freeze() *Table {
	b.mustBeOpen()
	b.frozen = true
	return &Table{packages: b.packages, order: b.order}
}

func (b *Builder) entry(pkg string) *packageEntry {
	entry, ok := b.packages[pkg]
	if !ok {
		entry = &packageEntry{name: pkg, symbols: make(map[string]*models.Symbol)}
		b.packages[pkg] = entry
		b.order = append(b.order, pkg)
	}
	return entry
}

func (b *Builder) mustBeOpen() {
	if b.frozen {
		panic("symbols: builder used after Freeze")
	}
}

// Table is the frozen, read-only symbol table
type Table struct {
	packages map[string]*packageEntry
	order    []string
}

// HasPackage reports whether any file declared pkg
func (t *Table) HasPackage(pkg string) bool {
	_, ok := t.packages[pkg]
	return ok
}

// Lookup finds name inside pkg
func (t *Table) Lookup(pkg, name string) (*models.Symbol, bool) {
	entry, ok := t.packages[pkg]
	if !ok {
		return nil, false
	}
	sym, ok := entry.symbols[name]
	return sym, ok
}

// Symbols returns the symbols of pkg in registration order
func (t *Table) Symbols(pkg string) []*models.Symbol {
	entry, ok := t.packages[pkg]
	if !ok {
		return nil
	}
	out := make([]*models.Symbol, 0, len(entry.order))
	for _, name := range entry.order {
		out = append(out, entry.symbols[name])
	}
	return out
}

// Packages returns every known package name, sorted
func (t *Table) Packages() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	sort.Strings(out)
	return out
}

// Len counts every registered symbol
func (t *Table) Len() int {
	n := 0
	for _, entry := range t.packages {
		n += len(entry.symbols)
	}
	return n
}
