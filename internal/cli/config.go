package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mstoykov/envconfig"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/pipeline"
	"github.com/toyz/as2amd/internal/source"
	"github.com/toyz/as2amd/internal/utils"
)

// ConfigFileNames are looked up in the project root, in this order, when no
// config file is named explicitly
var ConfigFileNames = []string{"as2amd.yaml", "as2amd.yml", "as2amd.toml"}

// Engines the dev server can run on
var Engines = []string{"echo", "gin", "fiber"}

// Config holds the configuration for a conversion run and the dev server
type Config struct {
	// Root is the project directory holding the .as sources
	Root string `yaml:"root" toml:"root" envconfig:"AS2AMD_ROOT"`

	// OutDir receives the emitted modules and the manifest
	OutDir string `yaml:"out_dir" toml:"out_dir" envconfig:"AS2AMD_OUT_DIR"`

	IgnoreDotFiles  bool `yaml:"ignore_dot_files" toml:"ignore_dot_files" envconfig:"AS2AMD_IGNORE_DOT_FILES"`
	StrictExports   bool `yaml:"strict_exports" toml:"strict_exports" envconfig:"AS2AMD_STRICT_EXPORTS"`
	NoSubstitutions bool `yaml:"no_substitutions" toml:"no_substitutions" envconfig:"AS2AMD_NO_SUBSTITUTIONS"`

	// Workers bounds per-phase parallelism; zero means GOMAXPROCS
	Workers int `yaml:"workers" toml:"workers" envconfig:"AS2AMD_WORKERS"`

	// Verify loads every emitted module in an embedded JavaScript engine
	Verify bool `yaml:"verify" toml:"verify" envconfig:"AS2AMD_VERIFY"`

	LogFormat string `yaml:"log_format" toml:"log_format" envconfig:"AS2AMD_LOG_FORMAT"`
	LogLevel  string `yaml:"log_level" toml:"log_level" envconfig:"AS2AMD_LOG_LEVEL"`

	// Dev server settings
	Addr      string `yaml:"addr" toml:"addr" envconfig:"AS2AMD_ADDR"`
	Engine    string `yaml:"engine" toml:"engine" envconfig:"AS2AMD_ENGINE"`
	CacheSize int    `yaml:"cache_size" toml:"cache_size" envconfig:"AS2AMD_CACHE_SIZE"`
}

// DefaultConfig returns the configuration used when nothing overrides it
func DefaultConfig() Config {
	return Config{
		Root:      ".",
		OutDir:    "build",
		LogFormat: "text",
		LogLevel:  "info",
		Addr:      "127.0.0.1:8080",
		Engine:    "echo",
		CacheSize: 16,
	}
}

// LoadOptions says where configuration comes from
type LoadOptions struct {
	Fs afero.Fs
	// Dir is searched for a config file and a .env file
	Dir string
	// File names the config file explicitly; it must exist
	File string
	// Lookup reads environment variables, os.LookupEnv when nil
	Lookup func(string) (string, bool)
}

// LoadConfig layers defaults, the config file, .env and the environment, in
// that order. It returns the config file it used, if any.
func LoadConfig(opts LoadOptions) (Config, string, error) {
	cfg := DefaultConfig()
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}

	file := opts.File
	if file == "" {
		file = findConfigFile(opts.Fs, opts.Dir)
	}
	if file != "" {
		if err := decodeConfigFile(opts.Fs, file, &cfg); err != nil {
			return cfg, file, err
		}
	}

	dotenv, err := readDotEnv(opts.Fs, filepath.Join(opts.Dir, ".env"))
	if err != nil {
		return cfg, file, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := opts.Lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := envconfig.Process("", &cfg, lookup); err != nil {
		return cfg, file, errors.WrapConfigurationError("environment", "parse", err)
	}

	return cfg, file, nil
}

func findConfigFile(fs afero.Fs, dir string) string {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if ok, _ := afero.Exists(fs, path); ok {
			return path
		}
	}
	return ""
}

func decodeConfigFile(fs afero.Fs, path string, cfg *Config) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.WrapConfigurationError(path, "read", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return errors.ConfigurationError(path, "unsupported config format, use .yaml, .yml or .toml")
	}
	if err != nil {
		return errors.WrapConfigurationError(path, "decode", err)
	}
	return nil
}

// readDotEnv returns the variables of a .env file; a missing file is empty
func readDotEnv(fs afero.Fs, path string) (map[string]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapConfigurationError(path, "open", err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return nil, errors.WrapConfigurationError(path, "parse", err)
	}
	return vars, nil
}

// Validate rejects settings no run could use
func (c Config) Validate() error {
	checks := []error{
		utils.NotEmpty("root")(c.Root),
		utils.NewValidatorChain(
			utils.NotEmpty("out_dir"),
			utils.Custom("out_dir", "must differ from the project root", func(out string) bool {
				return filepath.Clean(out) != filepath.Clean(c.Root)
			}),
			utils.Conditional(filepath.IsAbs,
				utils.Custom("out_dir", "must not be the file system root", func(out string) bool {
					return filepath.Dir(filepath.Clean(out)) != filepath.Clean(out)
				})),
		).Validate(c.OutDir),
		utils.InRange("workers", 0, 1024)(c.Workers),
		utils.IsOneOf("log_format", "text", "json")(c.LogFormat),
		utils.IsOneOf("log_level", "trace", "debug", "info", "warn", "warning", "error")(strings.ToLower(c.LogLevel)),
		utils.IsOneOf("engine", Engines...)(c.Engine),
		utils.InRange("cache_size", 1, 1<<16)(c.CacheSize),
	}

	var multi *errors.MultipleErrors
	for _, err := range checks {
		errors.AddToMultiple(&multi, err, errors.ConfigurationErrorCode)
	}
	if multi != nil {
		return multi
	}
	return nil
}

// PipelineOptions derives orchestrator options
func (c Config) PipelineOptions() pipeline.Options {
	opts := pipeline.Options{Workers: c.Workers}
	if c.StrictExports {
		opts.ConflictPolicy = pipeline.FailOnConflict
	}
	return opts
}

// SourceOptions derives loader options
func (c Config) SourceOptions() source.Options {
	return source.Options{IgnoreDotFiles: c.IgnoreDotFiles, NoSubstitutions: c.NoSubstitutions}
}
