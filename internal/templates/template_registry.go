package templates

import (
	"bytes"
	"sync"
	"text/template"

	"github.com/toyz/as2amd/internal/errors"
)

// TemplateRegistry provides a centralized way to access all templates
type TemplateRegistry struct {
	templates map[string]string

	mu     sync.Mutex
	parsed map[string]*template.Template
}

// NewTemplateRegistry creates a new template registry with all templates
func NewTemplateRegistry() *TemplateRegistry {
	registry := &TemplateRegistry{
		templates: make(map[string]string),
		parsed:    make(map[string]*template.Template),
	}

	registry.registerModuleTemplates()
	registry.registerMergeTemplates()

	return registry
}

// Execute renders the named template with data
func (tr *TemplateRegistry) Execute(name string, data any) (string, error) {
	tmpl, err := tr.lookup(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.WrapTemplateError(name, "execute", err)
	}
	return buf.String(), nil
}

func (tr *TemplateRegistry) lookup(name string) (*template.Template, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tmpl, ok := tr.parsed[name]; ok {
		return tmpl, nil
	}
	text, ok := tr.templates[name]
	if !ok {
		return nil, errors.Newf(errors.TemplateErrorCode, "template not found: %s", name)
	}
	tmpl, err := template.New(name).Funcs(funcMap).Parse(text)
	if err != nil {
		return nil, errors.WrapTemplateError(name, "parse", err)
	}
	tr.parsed[name] = tmpl
	return tmpl, nil
}

// registerModuleTemplates registers the plain AMD module wrapper
func (tr *TemplateRegistry) registerModuleTemplates() {
	tr.templates["original-module"] = `// Code generated by as2amd from {{.Source}}. DO NOT EDIT.
define([{{depPaths .Deps}}], function ({{depVars .Deps}}) {
{{.Body}}    return {{exports .Exports}};
});
`
}

// registerMergeTemplates registers the templates that break dependency cycles
func (tr *TemplateRegistry) registerMergeTemplates() {
	tr.templates["merged-module"] = `// Code generated by as2amd from {{len .Members}} mutually dependent modules. DO NOT EDIT.
define([{{depPaths .Deps}}], function ({{depVars .Deps}}) {
    var __merged = {};
{{range .Members}}    __merged[{{quote .Key}}] = (function () {
{{.Body}}        return {{exports .Exports}};
    })();
{{end}}    return __merged;
});
`

	tr.templates["redirect-module"] = `// Code generated by as2amd. DO NOT EDIT.
define([{{quote .Target}}], function (merged) {
    return merged[{{quote .Key}}];
});
`
}

// DefaultTemplateRegistry is the global template registry instance
var DefaultTemplateRegistry = NewTemplateRegistry()
