package cli

import (
	"context"
	"path"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/generator"
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/report"
)

const projectDir = "/proj"

// projectFs unpacks a txtar archive from testdata under projectDir
func projectFs(t *testing.T, name string) afero.Fs {
	t.Helper()
	archive, err := txtar.ParseFile(path.Join("testdata", name))
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	for _, f := range archive.Files {
		require.NoError(t, afero.WriteFile(fs, path.Join(projectDir, f.Name), f.Data, 0o644))
	}
	return fs
}

func projectConfig(t *testing.T, fs afero.Fs) Config {
	t.Helper()
	cfg, _, err := LoadConfig(LoadOptions{Fs: fs, Dir: projectDir, Lookup: noEnv})
	require.NoError(t, err)
	resolver := NewProjectResolver(fs)
	cfg.Root = resolver.ResolveRoot(projectDir, cfg.Root)
	cfg.OutDir = resolver.ResolveRoot(projectDir, cfg.OutDir)
	return cfg
}

func TestConverter_Build(t *testing.T) {
	fs := projectFs(t, "project.txtar")
	cfg := projectConfig(t, fs)
	require.True(t, cfg.Verify)

	build, err := NewConverter(fs, cfg, nil, nil).Build(context.Background())
	require.NoError(t, err)

	assert.Len(t, build.Sources, 5)
	assert.NotEmpty(t, build.SourceDigest)
	assert.Equal(t, build.Result.RunID, build.RunID)

	kinds := make(map[models.ModuleID]models.ModuleKind)
	for _, m := range build.Modules {
		kinds[m.ID] = m.Kind
	}
	assert.Equal(t, map[models.ModuleID]models.ModuleKind{
		"a/A.js":        models.RedirectKind,
		"b/B.js":        models.RedirectKind,
		"c/C.js":        models.RedirectKind,
		"d/D.js":        models.OriginalKind,
		"util/Twice.js": models.OriginalKind,
		"merged_0.js":   models.MergedKind,
	}, kinds)

	rt, err := generator.NewRuntime(build.Modules)
	require.NoError(t, err)
	v, err := rt.Eval(`require("d/D").D()`)
	require.NoError(t, err)
	assert.Equal(t, "ABCAB", v.Export())

	_, ok := build.Module("merged_0.js")
	assert.True(t, ok)
	_, ok = build.Module("missing.js")
	assert.False(t, ok)
}

func TestConverter_RunWritesOutput(t *testing.T) {
	fs := projectFs(t, "project.txtar")
	cfg := projectConfig(t, fs)
	rec := &report.Recorder{}

	summary, err := NewConverter(fs, cfg, rec, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.SourceFiles)
	assert.Equal(t, 6, summary.ModulesEmitted)
	assert.Equal(t, 1, summary.MergedModules)
	assert.Equal(t, 3, summary.Redirects)
	assert.Zero(t, summary.Substituted)
	assert.Empty(t, summary.RemovedFiles)

	content, err := afero.ReadFile(fs, "/proj/build/a/A.js")
	require.NoError(t, err)
	assert.Contains(t, string(content), `define(["merged_0"], function (merged) {`)

	ok, err := afero.Exists(fs, "/proj/build/"+ManifestName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, rec.Errors())
}

func TestConverter_FailedRunWritesNothing(t *testing.T) {
	fs := projectFs(t, "broken.txtar")
	cfg := DefaultConfig()
	cfg.Root = "/proj/src"
	cfg.OutDir = "/proj/build"
	rec := &report.Recorder{}

	_, err := NewConverter(fs, cfg, rec, nil).Run(context.Background())
	require.Error(t, err)

	var phaseErr *errors.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, "Parse error", phaseErr.Phase)
	assert.Equal(t, 1, phaseErr.Count())
	assert.Equal(t, "bad/Syntax.as", phaseErr.Errors.Errors[0].Location().File)
	assert.NotEmpty(t, rec.Errors())

	exists, err := afero.DirExists(fs, "/proj/build")
	require.NoError(t, err)
	assert.False(t, exists)
}
