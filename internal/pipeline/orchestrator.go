// Package pipeline runs a whole-program conversion: parse every file, build the
// symbol table, rewrite every file against it, then build the dependency graph
// and merge its cycles. Each phase finishes for every file before the next one
// starts.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/toyz/as2amd/internal/cycles"
	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/graph"
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/report"
	"github.com/toyz/as2amd/internal/symbols"
)

// Phase names used in events and errors
const (
	PhaseParse   = "parse"
	PhaseSymbols = "symbols"
	PhaseRewrite = "rewrite"
	PhaseGraph   = "graph"
	PhaseCycles  = "cycles"
)

// ConflictPolicy decides what happens when two exports share a package and name
type ConflictPolicy int

const (
	// LastWriteWins keeps the export read last and reports a warning
	LastWriteWins ConflictPolicy = iota
	// FailOnConflict collects every conflict and aborts after the symbol phase
	FailOnConflict
)

// Options tune a run
type Options struct {
	Workers        int // per-phase parallelism, GOMAXPROCS when zero
	ConflictPolicy ConflictPolicy
	RunID          uuid.UUID // generated when zero
}

// Result is everything a successful run produced
type Result struct {
	RunID      uuid.UUID
	Table      *symbols.Table
	Graph      *graph.Graph // graph over the original modules
	Components []graph.Component
	Merged     []*models.MergedModule
	Output     *models.OutputSet
	Duration   time.Duration
}

// Orchestrator sequences the phases of a conversion run
type Orchestrator struct {
	frontend Frontend
	reporter report.Reporter
	opts     Options
}

// New creates an orchestrator. A nil reporter discards events.
func New(frontend Frontend, reporter report.Reporter, opts Options) *Orchestrator {
	if reporter == nil {
		reporter = report.Null{}
	}
	return &Orchestrator{frontend: frontend, reporter: reporter, opts: opts}
}

// Run converts files, given in source order. Either every phase succeeds and a
// complete Result is returned, or an error is returned and nothing else.
func (o *Orchestrator) Run(ctx context.Context, files []models.SourceFile) (*Result, error) {
	start := time.Now()
	runID := o.opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	o.step(PhaseParse, report.LevelInfo, fmt.Sprintf("converting %d files", len(files)),
		map[string]any{"run_id": runID.String(), "files": len(files)})

	asts, err := o.parse(ctx, files)
	if err != nil {
		return nil, err
	}

	table, err := o.buildSymbols(ctx, files, asts)
	if err != nil {
		return nil, err
	}

	rewritten, err := o.rewrite(ctx, files, asts, table)
	if err != nil {
		return nil, err
	}

	g, base, err := o.buildGraph(ctx, files, rewritten)
	if err != nil {
		return nil, err
	}

	components := g.StronglyConnected()
	for _, comp := range graph.Cyclic(components) {
		o.step(PhaseCycles, report.LevelInfo,
			"resolving circular dependencies in: "+joinIDs(comp.Members),
			map[string]any{"component": comp.Index, "size": comp.Size()})
	}
	res, err := cycles.Resolve(base, components)
	if err != nil {
		multi := &errors.MultipleErrors{}
		errors.AddToMultiple(&multi, err, errors.CycleMergeErrorCode)
		for _, e := range multi.Errors {
			o.reporter.Error(PhaseCycles, e)
		}
		return nil, errors.NewPhaseError("Cycle merge error", multi)
	}

	result := &Result{
		RunID:      runID,
		Table:      table,
		Graph:      g,
		Components: components,
		Merged:     res.Merged,
		Output:     res.Output,
		Duration:   time.Since(start),
	}
	o.step(PhaseCycles, report.LevelInfo, fmt.Sprintf("emitted %d modules (%d merged)", res.Output.Len(), len(res.Merged)),
		map[string]any{"modules": res.Output.Len(), "merged": len(res.Merged)})
	return result, nil
}

func (o *Orchestrator) parse(ctx context.Context, files []models.SourceFile) ([]models.AST, error) {
	asts := make([]models.AST, len(files))
	errs, err := o.each(ctx, len(files), func(i int) error {
		o.step(PhaseParse, report.LevelDebug, "parsing "+files[i].Path, map[string]any{"filename": files[i].Path})
		ast, err := o.frontend.Parse(files[i].Path, files[i].Text)
		asts[i] = ast
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := o.collect(PhaseParse, "Parse error", errs, errors.ParseErrorCode); err != nil {
		return nil, err
	}
	return asts, nil
}

func (o *Orchestrator) buildSymbols(ctx context.Context, files []models.SourceFile, asts []models.AST) (*symbols.Table, error) {
	exports := make([][]models.Export, len(files))
	errs, err := o.each(ctx, len(files), func(i int) error {
		var err error
		exports[i], err = o.frontend.ExtractExports(asts[i])
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := o.collect(PhaseSymbols, "Export error", errs, errors.ParseErrorCode); err != nil {
		return nil, err
	}

	// single writer, source order
	builder := symbols.NewBuilder()
	conflicts := errors.NewMultipleErrors()
	for i, file := range files {
		id := models.ModuleIDForSource(file.Path)
		for _, exp := range exports[i] {
			if exp.Symbol == nil {
				builder.CreatePackage(exp.Package)
				continue
			}
			exp.Symbol.ExportPath = id
			prev := builder.Add(exp.Package, exp.Symbol)
			if prev == nil {
				continue
			}
			conflict := errors.NewExportConflictError(exp.Package, exp.Symbol.Name, prev.ExportPath.String(), id.String())
			if o.opts.ConflictPolicy == FailOnConflict {
				o.reporter.Error(PhaseSymbols, conflict)
				conflicts.Add(conflict)
				continue
			}
			o.step(PhaseSymbols, report.LevelWarn, conflict.Error(),
				map[string]any{"package": exp.Package, "name": exp.Symbol.Name, "kept": id.String()})
		}
	}
	if !conflicts.IsEmpty() {
		return nil, errors.NewPhaseError("Export conflict", conflicts)
	}

	table := builder.Freeze()
	o.step(PhaseSymbols, report.LevelInfo,
		fmt.Sprintf("registered %d symbols in %d packages", table.Len(), len(table.Packages())), nil)
	return table, nil
}

func (o *Orchestrator) rewrite(ctx context.Context, files []models.SourceFile, asts []models.AST, table *symbols.Table) ([]models.AST, error) {
	rewritten := make([]models.AST, len(files))
	errs, err := o.each(ctx, len(files), func(i int) error {
		o.step(PhaseRewrite, report.LevelDebug, "rewriting "+files[i].Path, map[string]any{"filename": files[i].Path})
		ast, err := o.frontend.Rewrite(asts[i], table)
		rewritten[i] = ast
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := o.collect(PhaseRewrite, "Rewriting error", errs, errors.RewriteErrorCode); err != nil {
		return nil, err
	}
	return rewritten, nil
}

func (o *Orchestrator) buildGraph(ctx context.Context, files []models.SourceFile, rewritten []models.AST) (*graph.Graph, *models.OutputSet, error) {
	edges := make([]map[models.ModuleID]int, len(files))
	errs, err := o.each(ctx, len(files), func(i int) error {
		var err error
		edges[i], err = o.frontend.DependencyEdges(rewritten[i])
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if err := o.collect(PhaseGraph, "Dependency error", errs, errors.RewriteErrorCode); err != nil {
		return nil, nil, err
	}

	g := graph.New()
	base := models.NewOutputSet()
	for i, file := range files {
		id := models.ModuleIDForSource(file.Path)
		g.AddVertex(id)
		base.Put(&models.OriginalModule{ID: id, AST: rewritten[i]})
	}
	for i, file := range files {
		from := models.ModuleIDForSource(file.Path)
		targets := make([]models.ModuleID, 0, len(edges[i]))
		for to := range edges[i] {
			targets = append(targets, to)
		}
		sort.Slice(targets, func(a, b int) bool { return targets[a] < targets[b] })
		for _, to := range targets {
			if err := g.AddEdge(from, to, edges[i][to]); err != nil {
				o.step(PhaseGraph, report.LevelWarn, fmt.Sprintf("%s: ignoring dependency: %v", from, err),
					map[string]any{"from": from.String(), "to": to.String()})
			}
		}
	}
	o.step(PhaseGraph, report.LevelInfo,
		fmt.Sprintf("dependency graph has %d modules and %d edges", g.Len(), g.EdgeCount()), nil)
	return g, base, nil
}

// each runs fn for every index on the bounded worker pool. fn's error belongs
// to that file and is returned in the slice; only cancellation stops the phase.
func (o *Orchestrator) each(ctx context.Context, n int, fn func(i int) error) ([]error, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers())
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			errs[i] = fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(errors.CancelledErrorCode, "conversion cancelled", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.CancelledErrorCode, "conversion cancelled", err)
	}
	return errs, nil
}

// collect reports every per-file error of a phase and turns them into one
// PhaseError. A reporter that saw an error from elsewhere also aborts the run.
func (o *Orchestrator) collect(phase, label string, errs []error, code errors.ErrorCode) error {
	var multi *errors.MultipleErrors
	for _, err := range errs {
		if err == nil {
			continue
		}
		errors.AddToMultiple(&multi, err, code)
	}
	if multi != nil {
		for _, e := range multi.Errors {
			o.reporter.Error(phase, e)
		}
		return errors.NewPhaseError(label, multi)
	}
	if (phase == PhaseParse || phase == PhaseRewrite) && o.reporter.HasError() {
		return errors.NewPhaseError(label, errors.CollectErrors(
			errors.Newf(code, "%s phase stopped: reporter signalled an error", phase)))
	}
	return nil
}

func (o *Orchestrator) step(phase string, level report.Level, message string, fields map[string]any) {
	o.reporter.Step(report.Event{Phase: phase, Message: message, Level: level, Context: fields})
}

func (o *Orchestrator) workers() int {
	if o.opts.Workers > 0 {
		return o.opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func joinIDs(ids []models.ModuleID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
