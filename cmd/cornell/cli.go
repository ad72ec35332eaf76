package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/cornell/internal/autosave"
	"github.com/hpungsan/cornell/internal/config"
	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/ops"
	"github.com/hpungsan/cornell/internal/session"
	"github.com/hpungsan/cornell/internal/store"
	"github.com/hpungsan/cornell/internal/web"
)

// maxStdinBytes bounds cue and section input read from stdin.
const maxStdinBytes = 16 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(st store.Store, cfg *config.Config, logger zerolog.Logger) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	app := &cli.App{
		Name:    "cornell",
		Usage:   "Cornell-style study notes",
		Version: Version,
		Commands: []*cli.Command{
			newCmd(st),
			showCmd(st),
			listCmd(st),
			searchCmd(st),
			cueCmd(st),
			sectionCmd(st),
			updateCmd(st),
			deleteCmd(st),
			exportCmd(st, cfg),
			importCmd(st, cfg),
			serveCmd(st, cfg, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newCmd creates the new command.
func newCmd(st store.Store) *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a note",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Note title (default: " + note.DefaultTitle + ")"},
			&cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Usage: "Course or unit label"},
			&cli.StringFlag{Name: "cue", Usage: "Cue block, one cue per line"},
			&cli.StringFlag{Name: "summary", Aliases: []string{"s"}, Usage: "Summary text"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Create(c.Context, st, ops.CreateInput{
				Title:   c.String("title"),
				Unit:    c.String("unit"),
				Cue:     unescapeNewlines(c.String("cue")),
				Summary: c.String("summary"),
				Tags:    parseTags(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(st store.Store) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a note",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-html", Usage: "Exclude section markup from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{ID: c.Args().First()}
			if c.Bool("no-html") {
				includeHTML := false
				input.IncludeHTML = &includeHTML
			}

			output, err := ops.Fetch(c.Context, st, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// listCmd creates the list command.
func listCmd(st store.Store) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes, most recently updated first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
			&cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Usage: "Filter by unit"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, st, ops.ListInput{
				Tag:    c.String("tag"),
				Unit:   c.String("unit"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(st store.Store) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find notes containing every word of a query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(c.Context, st, ops.SearchInput{
				Query:  strings.Join(c.Args().Slice(), " "),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// cueCmd creates the cue command.
func cueCmd(st store.Store) *cli.Command {
	return &cli.Command{
		Name:      "cue",
		Usage:     "Replace a note's cue block (reads from stdin unless --text is given)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Usage: `Cue block; "\n" separates cues`},
		},
		Action: func(c *cli.Context) error {
			var cue string
			if c.IsSet("text") {
				cue = unescapeNewlines(c.String("text"))
			} else {
				text, err := readInput(c, maxStdinBytes)
				if err != nil {
					return outputError(err)
				}
				cue = text
			}

			output, err := ops.SetCue(c.Context, st, ops.SetCueInput{
				ID:  c.Args().First(),
				Cue: cue,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// sectionCmd groups the per-section commands.
func sectionCmd(st store.Store) *cli.Command {
	return &cli.Command{
		Name:  "section",
		Usage: "Edit, collapse, reorder or delete sections",
		Subcommands: []*cli.Command{
			{
				Name:      "edit",
				Usage:     "Replace a section's markup (reads from stdin unless --html is given)",
				ArgsUsage: "<id> <section-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "html", Usage: "Section markup"},
					&cli.StringFlag{Name: "text", Usage: "Plain text (default: derived from the markup)"},
				},
				Action: func(c *cli.Context) error {
					markup := c.String("html")
					if !c.IsSet("html") {
						text, err := readInput(c, maxStdinBytes)
						if err != nil {
							return outputError(err)
						}
						markup = text
					}

					input := ops.EditSectionInput{
						ID:        c.Args().Get(0),
						SectionID: c.Args().Get(1),
						Content:   note.RawMarkup(markup),
					}
					if c.IsSet("text") {
						text := c.String("text")
						input.Text = &text
					}

					output, err := ops.EditSection(c.Context, st, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "toggle",
				Usage:     "Collapse or expand a section",
				ArgsUsage: "<id> <section-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.ToggleSection(c.Context, st, ops.SectionInput{
						ID:        c.Args().Get(0),
						SectionID: c.Args().Get(1),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "move",
				Usage:     "Move the section at --from to position --to",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "from", Required: true, Usage: "Current position (0-based)"},
					&cli.IntFlag{Name: "to", Usage: "New position (0-based); omitted means no move"},
				},
				Action: func(c *cli.Context) error {
					input := ops.MoveSectionInput{
						ID:   c.Args().First(),
						From: c.Int("from"),
					}
					if c.IsSet("to") {
						to := c.Int("to")
						input.To = &to
					}

					output, err := ops.MoveSection(c.Context, st, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a section and its content",
				ArgsUsage: "<id> <section-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteSection(c.Context, st, ops.SectionInput{
						ID:        c.Args().Get(0),
						SectionID: c.Args().Get(1),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}

// updateCmd creates the update command.
func updateCmd(st store.Store) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update a note's title, unit, summary or tags",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Usage: "New unit"},
			&cli.StringFlag{Name: "summary", Aliases: []string{"s"}, Usage: "New summary"},
			&cli.StringFlag{Name: "tags", Usage: "New comma-separated tags"},
		},
		Action: func(c *cli.Context) error {
			input := ops.UpdateInput{ID: c.Args().First()}

			if c.IsSet("title") {
				title := c.String("title")
				input.Title = &title
			}
			if c.IsSet("unit") {
				unit := c.String("unit")
				input.Unit = &unit
			}
			if c.IsSet("summary") {
				summary := c.String("summary")
				input.Summary = &summary
			}
			if c.IsSet("tags") {
				tags := parseTags(c.String("tags"))
				input.Tags = &tags
			}

			output, err := ops.Update(c.Context, st, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(st store.Store) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently delete a note",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, st, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(st store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export notes to a JSONL file, or one note to HTML",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.cornell/exports/<name>-<timestamp>.<ext>)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(ops.FormatJSONL), Usage: "Export format: jsonl|html"},
			&cli.StringFlag{Name: "id", Usage: "Note to export (required for html)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, st, cfg, ops.ExportInput{
				Path:   c.String("path"),
				Format: ops.ExportFormat(c.String("format")),
				ID:     c.String("id"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(st store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import notes from a JSONL export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeError), Usage: "Collision mode: error|replace|skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, st, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(st store.Store, cfg *config.Config, logger zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the notes UI in the browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: cfg.WebBind, Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Value: cfg.WebPort, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			saver := autosave.NewSaver(st, cfg.AutosaveDelay(), logger)
			sess := session.New(st, saver, session.Options{
				SkipSamples: cfg.SkipSamples,
				Logger:      logger,
			})
			if err := sess.Open(c.Context); err != nil {
				return outputError(err)
			}
			defer sess.Close()

			srv, err := web.NewServer(sess, Version, c.String("bind"), c.Int("port"), logger)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, sess, logger)
		},
	}
}

// Helper functions

// outputJSON writes result to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	nErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", nErr.Code, nErr.Message), 1)
}

// readInput reads piped input up to limit bytes. An interactive terminal is
// rejected so the command never blocks waiting for typing.
func readInput(c *cli.Context, limit int64) (string, error) {
	r := c.App.Reader
	if f, ok := r.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return "", errors.NewInvalidRequest("input must be piped via stdin or passed as a flag")
	}
	return readLimited(r, limit)
}

// readLimited reads all of r, failing once more than limit bytes arrive.
func readLimited(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("input exceeds %d bytes", limit))
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// unescapeNewlines turns a literal \n typed in a flag into a line break.
func unescapeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
