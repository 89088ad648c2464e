package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/toyz/as2amd/internal/generator"
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/pipeline"
	"github.com/toyz/as2amd/internal/report"
	"github.com/toyz/as2amd/internal/rewriter"
	"github.com/toyz/as2amd/internal/source"
	"github.com/toyz/as2amd/internal/utils"
)

// Build is a converted project held in memory
type Build struct {
	RunID        uuid.UUID
	SourceDigest string
	Sources      []models.SourceFile
	Result       *pipeline.Result
	Modules      []*models.GeneratedModule
}

// Module returns the rendered module with the given id
func (b *Build) Module(id models.ModuleID) (*models.GeneratedModule, bool) {
	for _, m := range b.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Converter coordinates a conversion: load sources, run the pipeline, render
// and optionally verify the modules, then write them out
type Converter struct {
	fs          afero.Fs
	config      Config
	reporter    report.Reporter
	diagnostics *utils.DiagnosticSystem
	loader      *source.Loader
	frontend    pipeline.Frontend
	generator   *generator.Generator
	writer      *Writer
}

// NewConverter creates a converter. A nil reporter discards events and nil
// diagnostics print nothing.
func NewConverter(fs afero.Fs, cfg Config, reporter report.Reporter, diagnostics *utils.DiagnosticSystem) *Converter {
	if reporter == nil {
		reporter = report.Null{}
	}
	if diagnostics == nil {
		diagnostics = utils.NewDiagnosticSystem(utils.DiagnosticSilent)
		diagnostics.SetOutput(io.Discard, io.Discard)
	}
	return &Converter{
		fs:          fs,
		config:      cfg,
		reporter:    reporter,
		diagnostics: diagnostics,
		loader:      source.NewLoader(fs, reporter, cfg.SourceOptions()),
		frontend:    rewriter.NewFrontend(),
		generator:   generator.NewGenerator(),
		writer:      NewWriter(fs),
	}
}

// Config returns the configuration the converter runs with
func (c *Converter) Config() Config {
	return c.config
}

// Load reads the project sources and returns them with their digest
func (c *Converter) Load(ctx context.Context) ([]models.SourceFile, string, error) {
	files, err := c.loader.Load(ctx, c.config.Root)
	if err != nil {
		return nil, "", err
	}
	digest, err := source.Digest(files)
	if err != nil {
		return nil, "", utils.WrapProcessError("source digest", err)
	}
	return files, digest, nil
}

// Convert runs the pipeline over loaded sources and renders every module
func (c *Converter) Convert(ctx context.Context, files []models.SourceFile, digest string) (*Build, error) {
	opts := c.config.PipelineOptions()
	opts.RunID = uuid.New()

	result, err := pipeline.New(c.frontend, c.reporter, opts).Run(ctx, files)
	if err != nil {
		return nil, err
	}

	mods, err := c.generator.Generate(ctx, result.Output)
	if err != nil {
		return nil, err
	}

	if c.config.Verify {
		if err := generator.Verify(mods); err != nil {
			return nil, err
		}
	}

	return &Build{
		RunID:        result.RunID,
		SourceDigest: digest,
		Sources:      files,
		Result:       result,
		Modules:      mods,
	}, nil
}

// Build loads and converts the project without writing anything
func (c *Converter) Build(ctx context.Context) (*Build, error) {
	files, digest, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c.Convert(ctx, files, digest)
}

// Run converts the project and writes the result to the output directory.
// Nothing is written unless the whole conversion succeeds.
func (c *Converter) Run(ctx context.Context) (*ConversionSummary, error) {
	startTime := time.Now()
	c.diagnostics.Verbose("Starting conversion at %s", startTime.Format("15:04:05"))
	c.diagnostics.Debug("Project root: %s", c.config.Root)

	c.diagnostics.PhaseHeader("Loading sources")
	files, digest, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	substituted := c.countSubstituted(files)
	c.diagnostics.PhaseItem(fmt.Sprintf("Read %d source files", len(files)))
	if substituted > 0 {
		c.diagnostics.PhaseItem(fmt.Sprintf("Replaced %d JSON library files", substituted))
	}
	c.diagnostics.Debug("Source digest: %s", digest)

	c.diagnostics.PhaseHeader("Converting")
	build, err := c.Convert(ctx, files, digest)
	if err != nil {
		return nil, err
	}
	counts := build.Result.Output.CountByKind()
	c.diagnostics.PhaseItem(fmt.Sprintf("Rendered %d modules", len(build.Modules)))
	if n := counts[models.MergedKind]; n > 0 {
		c.diagnostics.PhaseItem(fmt.Sprintf("Merged %d circular dependency groups", n))
	}
	if c.config.Verify {
		c.diagnostics.PhaseItem("Verified every module loads")
	}

	c.diagnostics.PhaseHeader("Writing output")
	written, err := c.writer.Write(c.config.OutDir, build)
	if err != nil {
		return nil, err
	}
	c.diagnostics.PhaseItem(fmt.Sprintf("Wrote %d modules to %s", len(written.Written), c.config.OutDir))
	if len(written.Removed) > 0 {
		c.diagnostics.PhaseItem(fmt.Sprintf("Removed %d stale modules", len(written.Removed)))
	}

	c.diagnostics.Verbose("Conversion took %s", time.Since(startTime).Round(time.Millisecond))

	return &ConversionSummary{
		RunID:          build.RunID.String(),
		SourceFiles:    len(files),
		Substituted:    substituted,
		ModulesEmitted: len(build.Modules),
		MergedModules:  counts[models.MergedKind],
		Redirects:      counts[models.RedirectKind],
		OutDir:         c.config.OutDir,
		GeneratedFiles: written.Written,
		RemovedFiles:   written.Removed,
	}, nil
}

func (c *Converter) countSubstituted(files []models.SourceFile) int {
	if c.config.NoSubstitutions {
		return 0
	}
	n := 0
	for _, f := range files {
		if _, ok := source.Substitution(f.Path); ok {
			n++
		}
	}
	return n
}
