package cli

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/pipeline"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, file, err := LoadConfig(LoadOptions{Fs: afero.NewMemMapFs(), Dir: "/proj", Lookup: noEnv})
	require.NoError(t, err)
	assert.Empty(t, file)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/as2amd.yaml", []byte(`
root: src
out_dir: dist
ignore_dot_files: true
workers: 4
engine: gin
`), 0o644))

	cfg, file, err := LoadConfig(LoadOptions{Fs: fs, Dir: "/proj", Lookup: noEnv})
	require.NoError(t, err)
	assert.Equal(t, "/proj/as2amd.yaml", file)
	assert.Equal(t, "src", cfg.Root)
	assert.Equal(t, "dist", cfg.OutDir)
	assert.True(t, cfg.IgnoreDotFiles)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "gin", cfg.Engine)
	assert.Equal(t, "text", cfg.LogFormat, "unset keys keep their defaults")
}

func TestLoadConfig_TOML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/settings.toml", []byte(`
root = "as3"
strict_exports = true
verify = true
cache_size = 4
`), 0o644))

	cfg, _, err := LoadConfig(LoadOptions{Fs: fs, Dir: "/proj", File: "/proj/settings.toml", Lookup: noEnv})
	require.NoError(t, err)
	assert.Equal(t, "as3", cfg.Root)
	assert.True(t, cfg.StrictExports)
	assert.True(t, cfg.Verify)
	assert.Equal(t, 4, cfg.CacheSize)
	assert.Equal(t, pipeline.FailOnConflict, cfg.PipelineOptions().ConflictPolicy)
}

func TestLoadConfig_EnvironmentOverridesDotEnvOverridesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/as2amd.yml", []byte("root: from-file\nout_dir: out-file\nworkers: 1\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/proj/.env", []byte("AS2AMD_OUT_DIR=out-dotenv\nAS2AMD_WORKERS=2\n"), 0o644))

	cfg, _, err := LoadConfig(LoadOptions{
		Fs:     fs,
		Dir:    "/proj",
		Lookup: envOf(map[string]string{"AS2AMD_WORKERS": "8", "AS2AMD_NO_SUBSTITUTIONS": "true"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Root)
	assert.Equal(t, "out-dotenv", cfg.OutDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.NoSubstitutions)
	assert.True(t, cfg.SourceOptions().NoSubstitutions)
}

func TestLoadConfig_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/bad.yaml", []byte("root: [unterminated\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/proj/as2amd.json", []byte("{}"), 0o644))

	tests := []struct {
		name string
		opts LoadOptions
	}{
		{"missing explicit file", LoadOptions{File: "/proj/nope.yaml"}},
		{"malformed yaml", LoadOptions{File: "/proj/bad.yaml"}},
		{"unsupported format", LoadOptions{File: "/proj/as2amd.json"}},
		{"malformed environment", LoadOptions{Lookup: envOf(map[string]string{"AS2AMD_WORKERS": "many"})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Fs = fs
			tt.opts.Dir = "/proj"
			if tt.opts.Lookup == nil {
				tt.opts.Lookup = noEnv
			}
			_, _, err := LoadConfig(tt.opts)
			require.Error(t, err)

			var base *errors.BaseError
			require.ErrorAs(t, err, &base)
			assert.Equal(t, errors.ConfigurationErrorCode, base.ErrorCode())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = "./"
	cfg.Workers = -1
	cfg.Engine = "net/http"
	cfg.LogFormat = "xml"

	err := cfg.Validate()
	require.Error(t, err)

	var multi *errors.MultipleErrors
	require.ErrorAs(t, err, &multi)
	assert.Equal(t, 4, multi.Count())
	assert.Contains(t, err.Error(), "out_dir")
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "engine")
	assert.Contains(t, err.Error(), "log_format")
}

func TestConfig_ValidateRejectsFileSystemRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutDir = "/"
	assert.ErrorContains(t, cfg.Validate(), "must not be the file system root")

	cfg.OutDir = "/srv/build"
	assert.NoError(t, cfg.Validate())

	cfg.OutDir = "build"
	assert.NoError(t, cfg.Validate())
}
