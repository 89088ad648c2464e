package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/report"
	"github.com/toyz/as2amd/internal/symbols"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// lineFrontend understands a tiny line language:
//
//	package <name>
//	export <name>
//	use <package> <name>
//	raw <module id>
//	!broken
type lineFrontend struct {
	parses   atomic.Int32
	rewrites atomic.Int32
}

type lineAST struct {
	path    string
	pkg     string
	exports []string
	uses    [][2]string
	raw     []models.ModuleID
}

type lineRewritten struct {
	source *lineAST
	deps   map[models.ModuleID]int
}

func (f *lineFrontend) Parse(path, text string) (models.AST, error) {
	f.parses.Add(1)
	ast := &lineAST{path: path}
	for n, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "package":
			ast.pkg = fields[1]
		case "export":
			ast.exports = append(ast.exports, fields[1])
		case "use":
			ast.uses = append(ast.uses, [2]string{fields[1], fields[2]})
		case "raw":
			ast.raw = append(ast.raw, models.ModuleID(fields[1]))
		default:
			return nil, errors.NewParseError(path, n+1, 1, "unexpected "+fields[0])
		}
	}
	return ast, nil
}

func (f *lineFrontend) ExtractExports(ast models.AST) ([]models.Export, error) {
	a := ast.(*lineAST)
	out := []models.Export{{Package: a.pkg}}
	for _, name := range a.exports {
		out = append(out, models.Export{Package: a.pkg, Symbol: &models.Symbol{Name: name, Package: a.pkg, Public: true}})
	}
	return out, nil
}

func (f *lineFrontend) Rewrite(ast models.AST, table *symbols.Table) (models.AST, error) {
	f.rewrites.Add(1)
	a := ast.(*lineAST)
	out := &lineRewritten{source: a, deps: make(map[models.ModuleID]int)}
	for _, use := range a.uses {
		sym, ok := table.Lookup(use[0], use[1])
		if !ok {
			return nil, errors.NewRewriteError(a.path, 0, 0, use[1], fmt.Sprintf("unresolved %s.%s", use[0], use[1]))
		}
		out.deps[sym.ExportPath]++
	}
	for _, id := range a.raw {
		out.deps[id]++
	}
	return out, nil
}

func (f *lineFrontend) DependencyEdges(ast models.AST) (map[models.ModuleID]int, error) {
	return ast.(*lineRewritten).deps, nil
}

func files(pairs ...string) []models.SourceFile {
	var out []models.SourceFile
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.SourceFile{Path: pairs[i], Text: pairs[i+1]})
	}
	return out
}

func triangleProject() []models.SourceFile {
	return files(
		"A.as", "package p\nexport A\nuse p B",
		"B.as", "package p\nexport B\nuse p C",
		"C.as", "package p\nexport C\nuse p A",
		"D.as", "package p\nexport D",
	)
}

func TestRun_TriangleWithIndependentModule(t *testing.T) {
	rec := &report.Recorder{}
	result, err := New(&lineFrontend{}, rec, Options{Workers: 4}).Run(context.Background(), triangleProject())
	require.NoError(t, err)

	out := result.Output
	assert.Equal(t, []models.ModuleID{"A.js", "B.js", "C.js", "D.js", "merged_0.js"}, out.IDs())

	d, _ := out.Get("D.js")
	assert.Equal(t, models.OriginalKind, d.Kind())

	m, _ := out.Get("merged_0.js")
	merged := m.(*models.MergedModule)
	var keys []string
	for _, member := range merged.Members {
		keys = append(keys, member.Name)
		source := member.AST.(*lineRewritten).source.path
		assert.Equal(t, models.ModuleIDForSource(source), member.ID)
	}
	assert.Equal(t, []string{"A", "B", "C"}, keys)

	for _, name := range keys {
		shim, _ := out.Get(models.ModuleID(name + ".js"))
		assert.Equal(t, &models.RedirectModule{ID: models.ModuleID(name + ".js"), Target: "merged_0.js", Key: name}, shim)
	}

	cycleEvents := rec.EventsFor(PhaseCycles)
	require.NotEmpty(t, cycleEvents)
	assert.Equal(t, "resolving circular dependencies in: A.js, B.js, C.js", cycleEvents[0].Message)
	assert.False(t, rec.HasError())
	assert.NotEqual(t, uuid.Nil, result.RunID)
}

func TestRun_ResolutionIndependentOfReadOrder(t *testing.T) {
	x := models.SourceFile{Path: "x/X.as", Text: "package x\nexport foo"}
	y := models.SourceFile{Path: "y/Y.as", Text: "package y\nuse x foo"}

	for _, order := range [][]models.SourceFile{{x, y}, {y, x}} {
		result, err := New(&lineFrontend{}, nil, Options{}).Run(context.Background(), order)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Graph.Weight("y/Y.js", "x/X.js"))
		sym, ok := result.Table.Lookup("x", "foo")
		require.True(t, ok)
		assert.Equal(t, models.ModuleID("x/X.js"), sym.ExportPath)
	}
}

func TestRun_SelfLoop(t *testing.T) {
	result, err := New(&lineFrontend{}, nil, Options{}).Run(context.Background(), files(
		"Plain.as", "package q\nexport Plain",
		"Self.as", "package q\nexport Self\nuse q Self",
	))
	require.NoError(t, err)

	m, ok := result.Output.Get("merged_1.js")
	require.True(t, ok)
	assert.Len(t, m.(*models.MergedModule).Members, 1)
	shim, _ := result.Output.Get("Self.js")
	assert.Equal(t, models.RedirectKind, shim.Kind())
	plain, _ := result.Output.Get("Plain.js")
	assert.Equal(t, models.OriginalKind, plain.Kind())
}

func TestRun_Deterministic(t *testing.T) {
	project := append(triangleProject(), files(
		"E.as", "package p\nexport E\nuse p F\nuse p D",
		"F.as", "package p\nexport F\nuse p E",
	)...)

	first, err := New(&lineFrontend{}, nil, Options{Workers: 1}).Run(context.Background(), project)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := New(&lineFrontend{}, nil, Options{Workers: 8}).Run(context.Background(), project)
		require.NoError(t, err)
		assert.Equal(t, first.Output.IDs(), again.Output.IDs())
		assert.Equal(t, first.Components, again.Components)
		for _, id := range first.Output.IDs() {
			a, _ := first.Output.Get(id)
			b, _ := again.Output.Get(id)
			assert.Equal(t, a.Kind(), b.Kind(), id)
		}
	}
}

func TestRun_ParseErrorsCollectedAcrossFiles(t *testing.T) {
	fe := &lineFrontend{}
	rec := &report.Recorder{}
	_, err := New(fe, rec, Options{}).Run(context.Background(), files(
		"good.as", "package p\nexport good",
		"bad1.as", "package p\n!broken",
		"bad2.as", "??",
	))
	require.Error(t, err)

	var phaseErr *errors.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, 2, phaseErr.Count())
	assert.Contains(t, err.Error(), "Parse error prevented project from being converted")
	assert.Equal(t, int32(3), fe.parses.Load())
	assert.Equal(t, int32(0), fe.rewrites.Load())
	assert.Len(t, rec.Errors(), 2)
	assert.True(t, rec.HasError())

	var parseErr *errors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "bad1.as", parseErr.Path)
}

func TestRun_RewriteErrorsAbortWithoutOutput(t *testing.T) {
	fe := &lineFrontend{}
	result, err := New(fe, nil, Options{}).Run(context.Background(), files(
		"a.as", "package p\nuse p missing",
		"b.as", "package p\nuse nowhere thing",
		"c.as", "package p\nexport c",
	))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, int32(3), fe.rewrites.Load())

	var phaseErr *errors.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, "Rewriting error", phaseErr.Phase)
	assert.Equal(t, 2, phaseErr.Count())
	assert.True(t, phaseErr.Errors.HasCode(errors.RewriteErrorCode))
}

type failingReporter struct {
	report.Recorder
}

func (r *failingReporter) HasError() bool { return true }

func TestRun_ReporterErrorSignalAbortsAfterParse(t *testing.T) {
	fe := &lineFrontend{}
	_, err := New(fe, &failingReporter{}, Options{}).Run(context.Background(), files("a.as", "package p"))
	require.Error(t, err)
	var phaseErr *errors.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, "Parse error", phaseErr.Phase)
	assert.Equal(t, int32(0), fe.rewrites.Load())
}

func TestRun_ExportConflictLastWriteWins(t *testing.T) {
	rec := &report.Recorder{}
	result, err := New(&lineFrontend{}, rec, Options{}).Run(context.Background(), files(
		"first.as", "package p\nexport dup",
		"second.as", "package p\nexport dup",
	))
	require.NoError(t, err)

	sym, ok := result.Table.Lookup("p", "dup")
	require.True(t, ok)
	assert.Equal(t, models.ModuleID("second.js"), sym.ExportPath)

	warnings := rec.EventsFor(PhaseSymbols)
	require.NotEmpty(t, warnings)
	assert.Equal(t, report.LevelWarn, warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "first.js")
	assert.False(t, rec.HasError())
}

func TestRun_ExportConflictStrict(t *testing.T) {
	fe := &lineFrontend{}
	_, err := New(fe, nil, Options{ConflictPolicy: FailOnConflict}).Run(context.Background(), files(
		"first.as", "package p\nexport dup\nexport other",
		"second.as", "package p\nexport dup\nexport other",
	))
	require.Error(t, err)

	var conflict *errors.ExportConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "first.js", conflict.Existing)
	assert.Equal(t, "second.js", conflict.Incoming)

	var phaseErr *errors.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, 2, phaseErr.Count())
	assert.Equal(t, int32(0), fe.rewrites.Load())
}

func TestRun_UnknownDependencyIgnoredWithWarning(t *testing.T) {
	rec := &report.Recorder{}
	result, err := New(&lineFrontend{}, rec, Options{}).Run(context.Background(), files(
		"a.as", "package p\nraw ghost.js",
	))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Graph.EdgeCount())

	var warned bool
	for _, e := range rec.EventsFor(PhaseGraph) {
		if e.Level == report.LevelWarn && strings.Contains(e.Message, "ghost.js") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fe := &lineFrontend{}
	_, err := New(fe, nil, Options{}).Run(ctx, triangleProject())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Equal(t, int32(0), fe.parses.Load())
}

func TestRun_EmptyProject(t *testing.T) {
	result, err := New(&lineFrontend{}, nil, Options{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Output.Len())
	assert.Empty(t, result.Components)
}

func TestRun_UsesGivenRunID(t *testing.T) {
	id := uuid.New()
	result, err := New(&lineFrontend{}, nil, Options{RunID: id}).Run(context.Background(), triangleProject())
	require.NoError(t, err)
	assert.Equal(t, id, result.RunID)
}
