package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/ops"
	"github.com/hpungsan/nexus/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// env may be nil when only help or version output is needed.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "nexus",
		Usage:   "Personal knowledge graph",
		Version: Version,
		Commands: []*cli.Command{
			saveCmd(env),
			fetchCmd(env),
			searchCmd(env),
			connectionsCmd(env),
			summarizeCmd(env),
			digestCmd(env),
			deleteCmd(env),
			listCmd(env),
			graphCmd(env),
			statsCmd(env),
			exportCmd(env),
			importCmd(env),
			uiCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// saveCmd creates the save command.
func saveCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save a note and connect it to related notes (reads content from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Note title"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "origin", Value: "manual", Usage: "Origin: manual|auto|conversation"},
		},
		Action: func(c *cli.Context) error {
			// Require stdin input
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("content must be piped via stdin"))
			}

			content, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			input := ops.SaveInput{
				Content: content,
				Tags:    parseTags(c.String("tags")),
				Origin:  c.String("origin"),
			}
			if title := c.String("title"); title != "" {
				input.Title = &title
			}

			output, err := ops.Save(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a note with its direct connections",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-connections", Usage: "Exclude connections from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{ID: c.Args().First()}
			if c.Bool("no-connections") {
				include := false
				input.IncludeConnections = &include
			}

			output, err := ops.Fetch(c.Context, env.DB, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Semantic search over notes",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags; results must carry all of them"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 10, Usage: "Maximum results"},
			&cli.Float64Flag{Name: "min-similarity", Usage: "Minimum similarity in [0,1]"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(c.Context, env, ops.SearchInput{
				Query:         strings.Join(c.Args().Slice(), " "),
				Tags:          parseTags(c.String("tags")),
				Limit:         c.Int("limit"),
				MinSimilarity: c.Float64("min-similarity"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// connectionsCmd creates the connections command.
func connectionsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "connections",
		Usage:     "Traverse the graph from a note",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "depth", Aliases: []string{"d"}, Value: 1, Usage: "Traversal depth (1 = direct)"},
			&cli.Float64Flag{Name: "min-strength", Usage: "Minimum edge strength in [0,1] (default 0.3)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Connections(c.Context, env.DB, env.Config, ops.ConnectionsInput{
				ID:          c.Args().First(),
				Depth:       c.Int("depth"),
				MinStrength: floatFlag(c, "min-strength"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// summarizeCmd creates the summarize command.
func summarizeCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "Bundle the notes matching a query with their neighborhood",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 5, Usage: "Maximum matched notes"},
			&cli.Float64Flag{Name: "min-strength", Usage: "Minimum edge strength in [0,1] (default 0.3)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Summarize(c.Context, env, ops.SummarizeInput{
				Query:       strings.Join(c.Args().Slice(), " "),
				Tags:        parseTags(c.String("tags")),
				Limit:       c.Int("limit"),
				MinStrength: floatFlag(c, "min-strength"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// digestCmd creates the digest command.
func digestCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "digest",
		Usage: "Summarize recent activity",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 7, Usage: "Window size in days"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum notes listed"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Digest(c.Context, env.DB, ops.DigestInput{
				Days:  c.Int("days"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently delete a note and its connections",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, env.DB, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
			&cli.StringFlag{Name: "origin", Usage: "Filter by origin"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				Tag:    stringFlag(c, "tag"),
				Origin: stringFlag(c, "origin"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}

			output, err := ops.List(c.Context, env.DB, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// graphCmd creates the graph command.
func graphCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Show the interest graph of recent notes",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Number of recent notes"},
			&cli.Float64Flag{Name: "min-strength", Usage: "Minimum edge strength in [0,1] (default 0.3)"},
			&cli.StringFlag{Name: "tag", Usage: "Only notes with this tag"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Graph(c.Context, env.DB, ops.GraphInput{
				Limit:       c.Int("limit"),
				MinStrength: floatFlag(c, "min-strength"),
				Tag:         stringFlag(c, "tag"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show note and connection counts",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, env.DB)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export notes and connections to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.nexus/exports/nexus-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, env.DB, env.Config, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import notes and connections from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, env.DB, env.Config, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve the read-only web UI and /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8484, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(env, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv, env.Logger); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if nexusErr, ok := err.(*errors.NexusError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", nexusErr.Code, nexusErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
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

// stringFlag returns a pointer to the flag value, or nil when it was not set.
func stringFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// floatFlag returns a pointer to the flag value, or nil when it was not set.
func floatFlag(c *cli.Context, name string) *float64 {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Float64(name)
	return &v
}
