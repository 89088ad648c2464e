package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/toyz/as2amd/internal/cli"
	"github.com/toyz/as2amd/internal/report"
	"github.com/toyz/as2amd/internal/utils"
)

// errReported marks a failure already printed to the user
var errReported = stderrors.New("reported")

// app holds what commands read from the outside world, so tests can swap it
type app struct {
	fs     afero.Fs
	lookup func(string) (string, bool)
	getwd  func() (string, error)
	stdout io.Writer
	stderr io.Writer

	configFile string
	logFormat  string
	logLevel   string
	verbose    bool
	quiet      bool
	noColor    bool
}

// env is what a command runs with once configuration is settled
type env struct {
	projectDir  string
	config      cli.Config
	diagnostics *utils.DiagnosticSystem
	reporter    report.Reporter
	logger      *logrus.Logger
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if !stderrors.Is(err, errReported) {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "as2amd",
		Short: "Convert ActionScript 3 projects into AMD JavaScript modules",
		Long: `as2amd converts a whole ActionScript 3 source tree into AMD modules.

Every file is parsed and rewritten against a project-wide symbol table.
Files that depend on each other in a cycle are merged into one module,
and the original module names are kept as thin redirects.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (as2amd.yaml, as2amd.yml or as2amd.toml)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text|json")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "show every step and full error details")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "only show errors")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		a.convertCommand(),
		a.serveCommand(),
		a.graphCommand(),
		a.cleanCommand(),
		a.versionCommand(),
	)
	return root
}

// sourceFlags registers the flags every converting command shares
func sourceFlags(fs *pflag.FlagSet) {
	fs.Bool("ignore-dot-files", false, "skip files and directories whose name starts with a dot")
	fs.Bool("strict-exports", false, "fail when two files export the same name into a package")
	fs.Bool("no-substitutions", false, "convert bundled JSON library files as written")
	fs.Bool("verify", false, "load every emitted module in an embedded JavaScript engine")
	fs.Int("workers", 0, "files processed in parallel per phase (0 means one per CPU)")
}

// applyFlags copies every flag the user set over the loaded configuration
func applyFlags(fs *pflag.FlagSet, cfg *cli.Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "out":
			cfg.OutDir, err = fs.GetString(f.Name)
		case "ignore-dot-files":
			cfg.IgnoreDotFiles, err = fs.GetBool(f.Name)
		case "strict-exports":
			cfg.StrictExports, err = fs.GetBool(f.Name)
		case "no-substitutions":
			cfg.NoSubstitutions, err = fs.GetBool(f.Name)
		case "verify":
			cfg.Verify, err = fs.GetBool(f.Name)
		case "workers":
			cfg.Workers, err = fs.GetInt(f.Name)
		case "addr":
			cfg.Addr, err = fs.GetString(f.Name)
		case "engine":
			cfg.Engine, err = fs.GetString(f.Name)
		case "cache-size":
			cfg.CacheSize, err = fs.GetInt(f.Name)
		}
	})
	return err
}

// setup settles configuration: the project directory comes from the argument
// or the working directory, then file, .env, environment and flags are layered
func (a *app) setup(cmd *cobra.Command, args []string) (*env, error) {
	var start string
	if len(args) > 0 {
		start = args[0]
	} else {
		wd, err := a.getwd()
		if err != nil {
			return nil, err
		}
		start = wd
	}

	resolver := cli.NewProjectResolver(a.fs)
	projectDir, err := resolver.FindProjectRoot(start)
	if err != nil {
		return nil, err
	}
	if a.configFile != "" {
		projectDir = filepath.Dir(resolver.ResolveRoot(projectDir, a.configFile))
	}

	cfg, file, err := cli.LoadConfig(cli.LoadOptions{
		Fs:     a.fs,
		Dir:    projectDir,
		File:   a.configFile,
		Lookup: a.lookup,
	})
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Root = resolver.ResolveRoot(projectDir, cfg.Root)
	cfg.OutDir = resolver.ResolveRoot(projectDir, cfg.OutDir)

	diagnostics := a.diagnostics()
	logger, err := report.NewLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(a.stderr)

	var reporter report.Reporter = report.NewConsole(diagnostics)
	if cfg.LogFormat == "json" {
		reporter = report.NewLog(logger, logrus.Fields{"project": projectDir})
	}

	if file != "" {
		diagnostics.Debug("Using config file %s", file)
	}
	diagnostics.Debug("Project directory: %s", projectDir)

	return &env{
		projectDir:  projectDir,
		config:      cfg,
		diagnostics: diagnostics,
		reporter:    reporter,
		logger:      logger,
	}, nil
}

func (a *app) diagnostics() *utils.DiagnosticSystem {
	level := utils.DiagnosticInfo
	switch {
	case a.quiet:
		level = utils.DiagnosticError
	case a.verbose:
		level = utils.DiagnosticVerbose
	}

	d := utils.NewDiagnosticSystem(level)
	if f, ok := a.stdout.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		d.SetOutput(a.stdout, a.stderr)
	}
	if a.noColor {
		d.SetColors(false)
		color.NoColor = true
	}
	return d
}

func (a *app) reportFailure(err error) error {
	r := cli.NewDiagnosticReporter(a.verbose)
	r.SetOutput(a.stdout, a.stderr)
	r.ReportError(err)
	return errReported
}
