package errors

import (
	"fmt"
	"strings"
)

// ParseError reports a source file that could not be parsed
type ParseError struct {
	*BaseError
	Path string
}

// NewParseError creates a parse error for a file
func NewParseError(path string, line, column int, message string) *ParseError {
	return &ParseError{
		BaseError: New(ParseErrorCode, message).
			WithLocation(SourceLocation{File: path, Line: line, Column: column}),
		Path: path,
	}
}

// RewriteError reports a reference that could not be resolved against the symbol table
type RewriteError struct {
	*BaseError
	Path       string
	Identifier string
}

// NewRewriteError creates a rewrite error at a source position
func NewRewriteError(path string, line, column int, identifier, message string) *RewriteError {
	err := &RewriteError{
		BaseError: New(RewriteErrorCode, message).
			WithLocation(SourceLocation{File: path, Line: line, Column: column}),
		Path:       path,
		Identifier: identifier,
	}
	if identifier != "" {
		err.WithContext("identifier", identifier)
	}
	return err
}

// ExportConflictError reports two exports of the same name into one package
type ExportConflictError struct {
	*BaseError
	Package  string
	Name     string
	Existing string
	Incoming string
}

// NewExportConflictError creates an export conflict between two modules
func NewExportConflictError(pkg, name, existing, incoming string) *ExportConflictError {
	qualified := name
	if pkg != "" {
		qualified = pkg + "." + name
	}
	return &ExportConflictError{
		BaseError: Newf(ExportConflictErrorCode, "symbol '%s' exported by both %s and %s", qualified, existing, incoming).
			WithLocation(SourceLocation{File: incoming}).
			WithContext("package", pkg).
			WithContext("existing", existing).
			WithSuggestions(
				"Rename one of the declarations",
				"Move one of the declarations into a different package",
			),
		Package:  pkg,
		Name:     name,
		Existing: existing,
		Incoming: incoming,
	}
}

// CycleMergeError reports a component that cannot be merged safely
type CycleMergeError struct {
	*BaseError
	Component int
	Members   []string
}

// NewCycleMergeError creates a merge failure for a component
func NewCycleMergeError(component int, members []string, message string) *CycleMergeError {
	return &CycleMergeError{
		BaseError: Newf(CycleMergeErrorCode, "cannot merge component %d (%s): %s",
			component, strings.Join(members, ", "), message).
			WithContext("component", component),
		Component: component,
		Members:   members,
	}
}

// GenerationError reports a failure emitting or verifying an output module
type GenerationError struct {
	*BaseError
	Module string
	Stage  string
}

// NewGenerationError creates a generation error for an output module
func NewGenerationError(module, stage string, cause error) *GenerationError {
	return &GenerationError{
		BaseError: Wrapf(GenerationErrorCode, cause, "failed to %s %s: %v", stage, module, cause).
			WithLocation(SourceLocation{File: module}),
		Module: module,
		Stage:  stage,
	}
}

// PhaseError aborts a conversion run after a phase collected one or more errors
type PhaseError struct {
	Phase  string
	Errors *MultipleErrors
}

// NewPhaseError creates a phase failure holding every collected error
func NewPhaseError(phase string, errs *MultipleErrors) *PhaseError {
	return &PhaseError{Phase: phase, Errors: errs}
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s prevented project from being converted: %s", e.Phase, e.Errors.Error())
}

func (e *PhaseError) Unwrap() error {
	return e.Errors
}

// Count returns how many errors the phase collected
func (e *PhaseError) Count() int {
	if e.Errors == nil {
		return 0
	}
	return e.Errors.Count()
}
