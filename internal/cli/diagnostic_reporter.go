package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/toyz/as2amd/internal/errors"
)

// DiagnosticReporter prints conversion failures and summaries for humans
type DiagnosticReporter struct {
	verbose bool
	out     io.Writer
	errOut  io.Writer
}

// NewDiagnosticReporter creates a reporter writing to stdout and stderr
func NewDiagnosticReporter(verbose bool) *DiagnosticReporter {
	return &DiagnosticReporter{
		verbose: verbose,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
}

// SetOutput redirects the success and failure streams
func (r *DiagnosticReporter) SetOutput(out, errOut io.Writer) {
	r.out = out
	r.errOut = errOut
}

// ReportWarning prints a one-line warning
func (r *DiagnosticReporter) ReportWarning(message string) {
	orange := color.New(color.FgYellow, color.Bold)
	orange.Fprint(r.errOut, "! ")
	fmt.Fprintf(r.errOut, "%s\n", message)
}

// ReportError prints err with every error a failed phase collected
func (r *DiagnosticReporter) ReportError(err error) {
	fmt.Fprintf(r.errOut, "\nERROR: Conversion Failed\n")
	fmt.Fprintf(r.errOut, "========================\n\n")

	var phaseErr *errors.PhaseError
	var multi *errors.MultipleErrors
	var convErr errors.ConvertError
	switch {
	case stderrors.As(err, &phaseErr):
		fmt.Fprintf(r.errOut, "%s prevented project from being converted (%d errors)\n\n", phaseErr.Phase, phaseErr.Count())
		r.reportAll(phaseErr.Errors)
	case stderrors.As(err, &multi):
		r.reportAll(multi)
	case stderrors.As(err, &convErr):
		r.reportConvertError(convErr)
		r.printAdditionalHelp(convErr.ErrorCode())
	default:
		fmt.Fprintf(r.errOut, "Message: %s\n\n", err.Error())
	}

	r.printGeneralHelp()
	fmt.Fprintf(r.errOut, "\n")
}

// reportAll prints every collected error, then a count and help per kind
func (r *DiagnosticReporter) reportAll(multi *errors.MultipleErrors) {
	if multi == nil {
		return
	}
	errs := multi.Errors
	var codes []errors.ErrorCode
	for i, e := range errs {
		if len(errs) > 1 {
			fmt.Fprintf(r.errOut, "[%d/%d] ", i+1, len(errs))
		}
		r.reportConvertError(e)
		if !slices.Contains(codes, e.ErrorCode()) {
			codes = append(codes, e.ErrorCode())
		}
	}

	if len(codes) > 1 {
		fmt.Fprintf(r.errOut, "Errors by type:\n")
		for _, code := range codes {
			fmt.Fprintf(r.errOut, "   %s: %d\n", code, len(multi.GetByCode(code)))
		}
		fmt.Fprintf(r.errOut, "\n")
	}
	for _, code := range []errors.ErrorCode{errors.ParseErrorCode, errors.RewriteErrorCode, errors.ExportConflictErrorCode} {
		if multi.HasCode(code) {
			r.printAdditionalHelp(code)
		}
	}
}

// reportConvertError prints one coded error with its location and hints
func (r *DiagnosticReporter) reportConvertError(err errors.ConvertError) {
	r.printErrorHeader(err.ErrorCode())

	fmt.Fprintf(r.errOut, "Message: %s\n\n", messageOf(err))

	if loc := err.Location(); !loc.IsEmpty() {
		if loc.Line > 0 {
			fmt.Fprintf(r.errOut, "Location: %s\n\n", loc.String())
		} else {
			fmt.Fprintf(r.errOut, "File: %s\n\n", loc.File)
		}
	}

	if ctx := err.Context(); len(ctx) > 0 {
		r.printContext(ctx)
	}

	if hints := err.Suggestions(); len(hints) > 0 {
		r.printSuggestions(hints)
	}

	if r.verbose {
		r.printVerboseDebuggingInfo(err)
	}
}

// messageOf drops the location prefix the typed errors add
func messageOf(err errors.ConvertError) string {
	if d, ok := err.(interface{ Detail() string }); ok {
		return d.Detail()
	}
	return err.Error()
}

func (r *DiagnosticReporter) printErrorHeader(code errors.ErrorCode) {
	title := code.String()
	fmt.Fprintf(r.errOut, "Type: %s\n", title)
	fmt.Fprintf(r.errOut, "%s\n\n", strings.Repeat("-", len(title)+6))
}

// printContext prints context entries, the well-known ones first
func (r *DiagnosticReporter) printContext(context map[string]interface{}) {
	fmt.Fprintf(r.errOut, "Context:\n")

	importantKeys := []string{"path", "identifier", "package", "existing", "component"}
	printed := make(map[string]bool)

	for _, key := range importantKeys {
		if value, exists := context[key]; exists {
			fmt.Fprintf(r.errOut, "   %s: %v\n", r.formatContextKey(key), value)
			printed[key] = true
		}
	}

	rest := make([]string, 0, len(context))
	for key := range context {
		if !printed[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		fmt.Fprintf(r.errOut, "   %s: %v\n", r.formatContextKey(key), context[key])
	}

	fmt.Fprintf(r.errOut, "\n")
}

// formatContextKey formats context keys to be more readable
func (r *DiagnosticReporter) formatContextKey(key string) string {
	switch key {
	case "path":
		return "File"
	case "existing":
		return "Already Exported By"
	case "config_type":
		return "Config"
	default:
		// Convert snake_case to Title Case
		parts := strings.Split(key, "_")
		for i, part := range parts {
			if len(part) > 0 {
				parts[i] = strings.ToUpper(part[:1]) + part[1:]
			}
		}
		return strings.Join(parts, " ")
	}
}

func (r *DiagnosticReporter) printSuggestions(suggestions []string) {
	fmt.Fprintf(r.errOut, "Suggestions:\n")

	for i, suggestion := range suggestions {
		lines := strings.Split(suggestion, "\n")
		fmt.Fprintf(r.errOut, "   %d. %s\n", i+1, lines[0])
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) != "" {
				fmt.Fprintf(r.errOut, "      %s\n", line)
			}
		}
	}

	fmt.Fprintf(r.errOut, "\n")
}

// printAdditionalHelp prints help for the error kinds users hit most
func (r *DiagnosticReporter) printAdditionalHelp(code errors.ErrorCode) {
	switch code {
	case errors.ParseErrorCode:
		fmt.Fprintf(r.errOut, "Parse Errors:\n")
		fmt.Fprintf(r.errOut, "  - Every file needs exactly one package block\n")
		fmt.Fprintf(r.errOut, "  - Metadata tags and E4X literals are not supported\n\n")

	case errors.RewriteErrorCode:
		fmt.Fprintf(r.errOut, "Unresolved References:\n")
		fmt.Fprintf(r.errOut, "  - Check the import list of the file\n")
		fmt.Fprintf(r.errOut, "  - Only public top-level declarations are visible to other files\n\n")

	case errors.ExportConflictErrorCode:
		fmt.Fprintf(r.errOut, "Resolving Export Conflicts:\n")
		fmt.Fprintf(r.errOut, "  - Each package can export a name once\n")
		fmt.Fprintf(r.errOut, "  - Drop --strict-exports to keep the last file read instead\n\n")
	}
}

func (r *DiagnosticReporter) printGeneralHelp() {
	fmt.Fprintf(r.errOut, "For more help:\n")
	fmt.Fprintf(r.errOut, "  - Run with --verbose for more detailed output\n")
	fmt.Fprintf(r.errOut, "  - Run 'as2amd graph' to inspect module dependencies\n")
}

func (r *DiagnosticReporter) printVerboseDebuggingInfo(err errors.ConvertError) {
	fmt.Fprintf(r.errOut, "Verbose Debug Information:\n")
	fmt.Fprintf(r.errOut, "  Error Type Code: %d\n", int(err.ErrorCode()))

	cause := stderrors.Unwrap(err)
	if cause != nil {
		fmt.Fprintf(r.errOut, "  Error Chain:\n")
		level := 1
		for cause != nil {
			fmt.Fprintf(r.errOut, "    %d. %s\n", level, cause.Error())
			cause = stderrors.Unwrap(cause)
			level++
		}
	}

	fmt.Fprintf(r.errOut, "\n")
}

// Debug prints debug information when verbose mode is enabled
func (r *DiagnosticReporter) Debug(format string, args ...interface{}) {
	if r.verbose {
		fmt.Fprintf(r.errOut, "[DEBUG] "+format+"\n", args...)
	}
}

// ReportSuccess prints what a finished conversion wrote
func (r *DiagnosticReporter) ReportSuccess(summary ConversionSummary) {
	fmt.Fprintf(r.out, "\nConversion Completed Successfully!\n")
	fmt.Fprintf(r.out, "==================================\n\n")

	fmt.Fprintf(r.out, "Converted %d source files\n", summary.SourceFiles)
	fmt.Fprintf(r.out, "Emitted %d modules\n", summary.ModulesEmitted)

	if summary.MergedModules > 0 {
		fmt.Fprintf(r.out, "Merged %d circular dependency groups (%d redirects)\n", summary.MergedModules, summary.Redirects)
	}

	if summary.Substituted > 0 {
		fmt.Fprintf(r.out, "Replaced %d JSON library files\n", summary.Substituted)
	}

	if len(summary.RemovedFiles) > 0 {
		fmt.Fprintf(r.out, "Removed %d stale modules\n", len(summary.RemovedFiles))
	}

	if r.verbose && len(summary.GeneratedFiles) > 0 {
		fmt.Fprintf(r.out, "\nGenerated files:\n")
		for _, file := range summary.GeneratedFiles {
			fmt.Fprintf(r.out, "  - %s\n", file)
		}
	}

	fmt.Fprintf(r.out, "\nOutput written to %s\n", summary.OutDir)
}

// ConversionSummary describes a finished conversion
type ConversionSummary struct {
	RunID          string
	SourceFiles    int
	Substituted    int
	ModulesEmitted int
	MergedModules  int
	Redirects      int
	OutDir         string
	GeneratedFiles []string
	RemovedFiles   []string
}
