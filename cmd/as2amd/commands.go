package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/toyz/as2amd/internal/cli"
	"github.com/toyz/as2amd/internal/devserver"
	"github.com/toyz/as2amd/internal/report"
)

const shutdownTimeout = 5 * time.Second

func (a *app) convertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [project-dir]",
		Short: "Convert the project and write the modules to the output directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd, args)
			if err != nil {
				return err
			}

			e.diagnostics.Section("as2amd")
			summary, err := cli.NewConverter(a.fs, e.config, e.reporter, e.diagnostics).Run(cmd.Context())
			if err != nil {
				return a.reportFailure(err)
			}

			if !a.quiet {
				r := cli.NewDiagnosticReporter(a.verbose)
				r.SetOutput(a.stdout, a.stderr)
				r.ReportSuccess(*summary)
			}
			e.logger.WithField("run_id", summary.RunID).Debug("conversion finished")
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "output directory (default \"build\")")
	sourceFlags(cmd.Flags())
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [project-dir]",
		Short: "Serve the converted modules over HTTP, converting again when sources change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd, args)
			if err != nil {
				return err
			}

			web, err := devserver.NewWebServer(e.config.Engine)
			if err != nil {
				return err
			}
			converter := cli.NewConverter(a.fs, e.config, e.reporter, e.diagnostics)
			srv, err := devserver.New(web, converter, e.config.CacheSize, e.logger)
			if err != nil {
				return err
			}

			e.diagnostics.Info("Serving %s on http://%s (%s)", e.config.Root, e.config.Addr, web.Name())
			return srv.Run(cmd.Context(), e.config.Addr, shutdownTimeout)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default \"127.0.0.1:8080\")")
	cmd.Flags().String("engine", "", "web engine: echo|gin|fiber (default \"echo\")")
	cmd.Flags().Int("cache-size", 0, "number of builds kept in memory (default 16)")
	sourceFlags(cmd.Flags())
	return cmd
}

func (a *app) graphCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "graph [project-dir]",
		Short: "Print the module dependency graph and its cycles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd, args)
			if err != nil {
				return err
			}

			// keep stdout clean for the JSON document
			reporter := e.reporter
			if asJSON {
				reporter = report.Null{}
			}

			build, err := cli.NewConverter(a.fs, e.config, reporter, e.diagnostics).Build(cmd.Context())
			if err != nil {
				return a.reportFailure(err)
			}

			graph := cli.DescribeGraph(build)
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(graph)
			}
			return cli.WriteGraphText(a.stdout, graph)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the graph as JSON")
	sourceFlags(cmd.Flags())
	return cmd
}

func (a *app) cleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [project-dir]",
		Short: "Remove the modules the last conversion wrote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd, args)
			if err != nil {
				return err
			}

			removed, err := cli.NewCleaner(a.fs).Clean(e.config.OutDir)
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				e.diagnostics.Info("Nothing to clean in %s", e.config.OutDir)
				return nil
			}
			if a.verbose {
				e.diagnostics.Indent()
				for _, f := range removed {
					e.diagnostics.List("%s", f)
				}
				e.diagnostics.Unindent()
			}
			e.diagnostics.Success("Removed %d modules from %s", len(removed), e.config.OutDir)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "output directory (default \"build\")")
	return cmd
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "as2amd %s\n", version)
		},
	}
}
