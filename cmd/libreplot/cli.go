package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/logging"
	"github.com/hpungsan/libreplot/internal/mcp"
	"github.com/hpungsan/libreplot/internal/ops"
	"github.com/hpungsan/libreplot/internal/watch"
	"github.com/hpungsan/libreplot/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:      "libreplot",
		Usage:     "Daily glucose charts from a flash glucose monitor export",
		ArgsUsage: "<file>",
		Version:   Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "debug|info|warn|error (default: from config)"},
			&cli.StringFlag{Name: "log-format", Usage: "console|json (default: from config)"},
			&cli.StringFlag{Name: "log-output", Value: "stderr", Usage: "Log destination: stderr, stdout or a file path"},
		},
		Before: func(c *cli.Context) error {
			if e.log != nil {
				return nil
			}
			log, err := logging.NewWithOutput(
				firstNonEmpty(c.String("log-level"), e.cfg.LogLevel),
				firstNonEmpty(c.String("log-format"), e.cfg.LogFormat),
				c.String("log-output"),
			)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			e.log = log
			return nil
		},
		Action: func(c *cli.Context) error {
			return renderFile(c, e)
		},
		Commands: []*cli.Command{
			renderCmd(e),
			daysCmd(e),
			storeCmd(e),
			importsCmd(e),
			showCmd(e),
			deleteCmd(e),
			exportCmd(e),
			reportCmd(e),
			debugCmd(e),
			watchCmd(e),
			serveCmd(e),
			mcpCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// renderFile is the default action: render every day of the export named by
// the only argument, reporting progress as plain text. Every outcome returns
// normally; problems are reported as text, not as an exit status.
func renderFile(c *cli.Context, e *env) error {
	w := c.App.Writer
	if c.NArg() == 0 {
		fmt.Fprintln(w, "which file to open")
		return nil
	}

	out, err := ops.Render(c.Context, e.cfg, e.log, ops.RenderInput{Path: c.Args().First()})
	if err != nil {
		fmt.Fprintln(w, message(err))
		return nil
	}
	for _, path := range out.Written {
		fmt.Fprintf(w, "wrote %s\n", path)
	}
	for _, f := range out.Failed {
		fmt.Fprintf(w, "failed %s: %s\n", f.Day, f.Error)
	}
	return nil
}

// renderCmd creates the render command.
func renderCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Write one chart per day of an export (or of a stored import)",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory (default: output_dir from config)"},
			&cli.StringSliceFlag{Name: "day", Aliases: []string{"d"}, Usage: "Only render this day (YYYY-MM-DD); repeatable"},
			&cli.StringFlag{Name: "import", Usage: "Render a stored import by ID instead of a file"},
		},
		Action: func(c *cli.Context) error {
			if id := c.String("import"); id != "" {
				database, err := e.database()
				if err != nil {
					return outputError(err)
				}
				days, err := ops.ImportDays(database, e.cfg, id)
				if err != nil {
					return outputError(err)
				}
				output, err := ops.RenderDays(c.Context, e.cfg, e.log, days, c.String("out"), c.StringSlice("day"))
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, output)
			}

			output, err := ops.Render(c.Context, e.cfg, e.log, ops.RenderInput{
				Path:      c.Args().First(),
				OutputDir: c.String("out"),
				Days:      c.StringSlice("day"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// daysCmd creates the days command.
func daysCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "days",
		Usage:     "Summarize each day of an export",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			output, err := ops.Days(e.cfg, e.log, ops.DaysInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// storeCmd creates the store command.
func storeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "store",
		Usage:     "Save a normalized export as a new import",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "Import label (optional)"},
		},
		Action: func(c *cli.Context) error {
			database, err := e.database()
			if err != nil {
				return outputError(err)
			}

			input := ops.StoreInput{Path: c.Args().First()}
			if label := c.String("label"); label != "" {
				input.Label = &label
			}

			output, err := ops.Store(c.Context, database, e.cfg, e.log, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// importsCmd creates the imports command.
func importsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "imports",
		Usage: "List stored imports, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			database, err := e.database()
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Imports(database, ops.ImportsInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a stored import with per-day summaries",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			database, err := e.database()
			if err != nil {
				return outputError(err)
			}

			output, err := ops.ImportDetail(database, e.cfg, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently delete a stored import",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			database, err := e.database()
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Delete(database, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the normalized export as an .xlsx workbook",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Workbook path (default: <output_dir>/<name>.xlsx)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(e.cfg, e.log, ops.ExportInput{
				Path: c.Args().First(),
				Out:  c.String("out"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Write an HTML summary page linking each day's chart",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Report path (default: <output_dir>/<name>.html)"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Page title (default: export file name)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Report(e.cfg, e.log, ops.ReportInput{
				Path:  c.Args().First(),
				Out:   c.String("out"),
				Title: c.String("title"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// debugCmd creates the debug command.
func debugCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "debug",
		Usage:     "Dump the normalized records as tab-separated text",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Dump path (default: <output_dir>/<name>.debug.tsv)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.DumpDebug(e.cfg, e.log, ops.DumpInput{
				Path: c.Args().First(),
				Out:  c.String("out"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// watchCmd creates the watch command.
func watchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Render every export that appears in a directory",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory (default: output_dir from config)"},
			&cli.DurationFlag{Name: "settle", Value: watch.DefaultSettle, Usage: "Quiet period before a changed file is processed"},
			&cli.BoolFlag{Name: "backfill", Usage: "Render exports already in the directory first"},
		},
		Action: func(c *cli.Context) error {
			dir := c.Args().First()
			if dir == "" {
				return outputError(errors.NewInvalidRequest("directory is required"))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := watch.New(dir, e.log, watch.RenderHandler(e.cfg, e.log, c.String("out")), watch.WithSettle(c.Duration("settle")))
			if c.Bool("backfill") {
				if err := w.Backfill(ctx); err != nil {
					return outputError(err)
				}
			}
			if err := w.Run(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
				return outputError(err)
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Browse stored imports and their charts in a web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8340, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			database, err := e.database()
			if err != nil {
				return outputError(err)
			}
			srv, err := web.NewServer(database, e.cfg, e.log, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(err)
			}
			return web.Run(c.Context, srv, e.log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the glucose tools over MCP stdio",
		Action: func(c *cli.Context) error {
			if c.String("log-output") == "stdout" {
				return outputError(errors.NewInvalidRequest("mcp mode cannot log to stdout"))
			}
			if unknown := mcp.ValidateDisabledTools(e.cfg.DisabledTools); len(unknown) > 0 {
				e.log.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
			}

			database, err := e.database()
			if err != nil {
				return outputError(err)
			}
			return mcp.Run(database, e.cfg, e.log, Version)
		},
	}
}

// Helper functions

// outputJSON marshals result to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats err for the CLI.
func outputError(err error) error {
	return cli.Exit(message(err), 1)
}

// message renders err as "[CODE] message" when it carries a code.
func message(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
