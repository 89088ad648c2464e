package cli

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_WriteAndManifest(t *testing.T) {
	fs := projectFs(t, "project.txtar")
	cfg := projectConfig(t, fs)

	build, err := NewConverter(fs, cfg, nil, nil).Build(context.Background())
	require.NoError(t, err)

	res, err := NewWriter(fs).Write(cfg.OutDir, build)
	require.NoError(t, err)
	assert.Len(t, res.Written, 6)
	assert.Empty(t, res.Removed)

	manifest, err := ReadManifest(fs, cfg.OutDir)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, build.RunID.String(), manifest.RunID)
	assert.Equal(t, build.SourceDigest, manifest.SourceDigest)
	assert.Regexp(t, `^h1:`, manifest.OutputDigest)
	assert.ElementsMatch(t, res.Written, manifest.Files())

	entries := make(map[string]ManifestEntry)
	for _, e := range manifest.Modules {
		entries[e.ID] = e
	}
	assert.Equal(t, ManifestEntry{ID: "a/A.js", Kind: "redirect", Target: "merged_0.js"}, entries["a/A.js"])
	assert.Equal(t, "merged", entries["merged_0.js"].Kind)
	assert.Equal(t, []string{"a/A.js", "b/B.js", "c/C.js"}, entries["merged_0.js"].Members)
	assert.Equal(t, ManifestEntry{ID: "d/D.js", Kind: "original"}, entries["d/D.js"])
}

func TestWriter_RemovesStaleModules(t *testing.T) {
	fs := projectFs(t, "project.txtar")
	cfg := projectConfig(t, fs)
	converter := NewConverter(fs, cfg, nil, nil)

	_, err := converter.Run(context.Background())
	require.NoError(t, err)
	first, err := ReadManifest(fs, cfg.OutDir)
	require.NoError(t, err)

	// break the cycle: C no longer calls back into A
	require.NoError(t, afero.WriteFile(fs, "/proj/src/c/C.as", []byte(`package c {
	public function C(n) { return "C"; }
}`), 0o644))

	summary, err := converter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"merged_0.js"}, summary.RemovedFiles)
	assert.Zero(t, summary.MergedModules)

	exists, err := afero.Exists(fs, "/proj/build/merged_0.js")
	require.NoError(t, err)
	assert.False(t, exists)

	second, err := ReadManifest(fs, cfg.OutDir)
	require.NoError(t, err)
	assert.NotEqual(t, first.SourceDigest, second.SourceDigest)
	assert.NotEqual(t, first.OutputDigest, second.OutputDigest)
}

func TestReadManifest_Missing(t *testing.T) {
	m, err := ReadManifest(afero.NewMemMapFs(), "/nowhere")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestReadManifest_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/"+ManifestName, []byte("{"), 0o644))

	_, err := ReadManifest(fs, "/out")
	assert.Error(t, err)
}

func TestCleaner_Clean(t *testing.T) {
	fs := projectFs(t, "project.txtar")
	cfg := projectConfig(t, fs)

	_, err := NewConverter(fs, cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/proj/build/index.html", []byte("<html></html>"), 0o644))

	removed, err := NewCleaner(fs).Clean(cfg.OutDir)
	require.NoError(t, err)
	assert.Len(t, removed, 6)

	for _, path := range []string{"/proj/build/d/D.js", "/proj/build/merged_0.js", "/proj/build/" + ManifestName} {
		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.False(t, exists, path)
	}

	exists, err := afero.Exists(fs, "/proj/build/index.html")
	require.NoError(t, err)
	assert.True(t, exists, "files the manifest does not list survive")

	removed, err = NewCleaner(fs).Clean(cfg.OutDir)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
