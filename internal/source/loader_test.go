package source

import (
	"context"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/models"
	"github.com/toyz/as2amd/internal/report"
)

const root = "/proj"

// projectFs unpacks a txtar archive from testdata under root
func projectFs(t *testing.T, name string) afero.Fs {
	t.Helper()
	archive, err := txtar.ParseFile(path.Join("testdata", name))
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	for _, f := range archive.Files {
		require.NoError(t, afero.WriteFile(fs, path.Join(root, f.Name), f.Data, 0o644))
	}
	return fs
}

func paths(files []models.SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestLoader_ReadsSourcesInPathOrder(t *testing.T) {
	rec := &report.Recorder{}
	files, err := NewLoader(projectFs(t, "project.txtar"), rec, Options{IgnoreDotFiles: true}).
		Load(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"com/adobe/serialization/json/JSON.as",
		"com/adobe/serialization/json/JSONDecoder.as",
		"com/adobe/serialization/json/JSONEncoder.as",
		"com/adobe/serialization/json/JSONParseError.as",
		"com/example/Main.as",
		"com/example/util/Strings.as",
	}, paths(files))

	events := rec.EventsFor(PhaseRead)
	require.Len(t, events, len(files)+1)
	assert.Equal(t, "reading com/adobe/serialization/json/JSON.as", events[0].Message)
	assert.Equal(t, "com/adobe/serialization/json/JSON.as", events[0].Context["filename"])
	assert.Nil(t, events[0].Context["substitute"])
	assert.Equal(t, "JSONDecoder", events[1].Context["substitute"])
	assert.Equal(t, "read 6 files, 0 unchanged since the last load", events[len(files)].Message)
	assert.Empty(t, rec.Errors())
}

func TestLoader_ReloadReusesUnchangedFiles(t *testing.T) {
	fs := projectFs(t, "project.txtar")
	rec := &report.Recorder{}
	loader := NewLoader(fs, rec, Options{IgnoreDotFiles: true})

	_, err := loader.Load(context.Background(), root)
	require.NoError(t, err)
	_, err = loader.Load(context.Background(), root)
	require.NoError(t, err)

	events := rec.EventsFor(PhaseRead)
	last := events[len(events)-1]
	assert.Equal(t, "read 6 files, 3 unchanged since the last load", last.Message)
	assert.Equal(t, 3, last.Context["cache_size"])
	assert.Equal(t, 3, last.Context["cache_hits"])
}

func TestLoader_DotFilesIncludedUnlessIgnored(t *testing.T) {
	fs := projectFs(t, "project.txtar")

	listed, err := NewLoader(fs, nil, Options{}).List(root)
	require.NoError(t, err)
	assert.Contains(t, listed, ".settings/Editor.as")
	assert.Contains(t, listed, "com/example/.Scratch.as")

	listed, err = NewLoader(fs, nil, Options{IgnoreDotFiles: true}).List(root)
	require.NoError(t, err)
	for _, p := range listed {
		assert.NotContains(t, p, "/.", p)
		assert.False(t, strings.HasPrefix(p, "."), p)
	}
}

func TestLoader_SubstitutesJSONLibrary(t *testing.T) {
	fs := projectFs(t, "project.txtar")

	files, err := NewLoader(fs, nil, Options{IgnoreDotFiles: true}).Load(context.Background(), root)
	require.NoError(t, err)
	byPath := map[string]string{}
	for _, f := range files {
		byPath[f.Path] = f.Text
	}

	encoder, err := Bundled("JSONEncoder")
	require.NoError(t, err)
	assert.Equal(t, encoder, byPath["com/adobe/serialization/json/JSONEncoder.as"])
	assert.NotContains(t, byPath["com/adobe/serialization/json/JSONDecoder.as"], "SLOW_DECODER_NOT_USED")
	assert.Contains(t, byPath["com/adobe/serialization/json/JSON.as"], "public class JSON")

	files, err = NewLoader(fs, nil, Options{IgnoreDotFiles: true, NoSubstitutions: true}).
		Load(context.Background(), root)
	require.NoError(t, err)
	for _, f := range files {
		if f.Path == "com/adobe/serialization/json/JSONEncoder.as" {
			assert.Contains(t, f.Text, "SLOW_ENCODER_NOT_USED")
		}
	}
}

// brokenFs fails to open one file
type brokenFs struct {
	afero.Fs
	broken string
}

func (b brokenFs) Open(name string) (afero.File, error) {
	if name == b.broken {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return b.Fs.Open(name)
}

func TestLoader_CollectsIoErrors(t *testing.T) {
	fs := brokenFs{Fs: projectFs(t, "project.txtar"), broken: "/proj/com/example/Main.as"}
	rec := &report.Recorder{}

	files, err := NewLoader(fs, rec, Options{IgnoreDotFiles: true}).Load(context.Background(), root)
	require.Error(t, err)
	assert.Nil(t, files)

	var phaseErr *errors.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, 1, phaseErr.Count())
	assert.Equal(t, errors.IOErrorCode, phaseErr.Errors.Errors[0].ErrorCode())
	assert.Equal(t, "com/example/Main.as", phaseErr.Errors.Errors[0].Location().File)
	assert.Contains(t, phaseErr.Errors.Errors[0].Error(), "permission denied")
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Len(t, rec.Errors(), 1)
}

func TestLoader_MissingRoot(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs(), nil, Options{}).Load(context.Background(), "/nowhere")
	require.Error(t, err)

	var phaseErr *errors.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.True(t, phaseErr.Errors.HasCode(errors.IOErrorCode))
}

func TestLoader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(projectFs(t, "project.txtar"), nil, Options{}).Load(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDigest(t *testing.T) {
	a := []models.SourceFile{{Path: "a/A.as", Text: "package a {}"}, {Path: "b/B.as", Text: "package b {}"}}
	reordered := []models.SourceFile{a[1], a[0]}
	changed := []models.SourceFile{a[0], {Path: "b/B.as", Text: "package b { var x; }"}}

	d1, err := Digest(a)
	require.NoError(t, err)
	d2, err := Digest(reordered)
	require.NoError(t, err)
	d3, err := Digest(changed)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(d1, "h1:"), d1)
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
}
