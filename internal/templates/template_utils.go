package templates

import (
	"encoding/json"
	"strings"
	"text/template"
)

// Dependency is one entry of an AMD dependency list
type Dependency struct {
	Path string // loader name, without suffix
	Var  string // factory parameter bound to the loaded module
}

// ModuleData feeds the original-module template
type ModuleData struct {
	Source  string
	Deps    []Dependency
	Body    string // pre-indented statements
	Exports []string
}

// MemberData is one embedded module of a merged module
type MemberData struct {
	Key     string
	Body    string
	Exports []string
}

// MergedData feeds the merged-module template
type MergedData struct {
	Deps    []Dependency
	Members []MemberData
}

// RedirectData feeds the redirect-module template
type RedirectData struct {
	Target string
	Key    string
}

var funcMap = template.FuncMap{
	"quote":    Quote,
	"exports":  ExportObject,
	"depPaths": depPaths,
	"depVars":  depVars,
}

// Quote renders s as a JavaScript string literal
func Quote(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		// strings always marshal
		panic(err)
	}
	return string(out)
}

// ExportObject renders the object literal a module factory returns
func ExportObject(names []string) string {
	if len(names) == 0 {
		return "{}"
	}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + name
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func depPaths(deps []Dependency) string {
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = Quote(d.Path)
	}
	return strings.Join(parts, ", ")
}

func depVars(deps []Dependency) string {
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = d.Var
	}
	return strings.Join(parts, ", ")
}
