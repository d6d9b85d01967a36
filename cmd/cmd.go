// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunz/internal/formatter"
)

// setupCommand handles first-run configuration and database setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the session database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the session lifecycle
func authCommand(r *Runner) *cli.Command {
	credentialFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Account username (prompted when omitted)",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password (prompted without echo when omitted)",
				Sources: cli.EnvVars("TUNZ_PASSWORD"),
			},
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Log in, register and inspect the stored session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in and store the session token",
				Flags:  credentialFlags(),
				Action: r.AuthLogin,
			},
			{
				Name:   "register",
				Usage:  "Create an account and log in",
				Flags:  credentialFlags(),
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session token",
				Action: r.AuthLogout,
			},
			{
				Name:  "whoami",
				Usage: "Revalidate the stored token and print the user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthWhoAmI,
			},
			{
				Name:   "status",
				Usage:  "Show the stored session without contacting the server",
				Action: r.AuthStatus,
			},
		},
	}
}

// songsCommand handles catalog operations
func songsCommand(r *Runner) *cli.Command {
	songFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Song title"},
			&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Usage: "Artist name"},
			&cli.StringFlag{Name: "album", Aliases: []string{"l"}, Usage: "Album name"},
			&cli.StringFlag{Name: "year", Aliases: []string{"y"}, Usage: "Release year"},
			&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Genre (POP, ROCK, HIPHOP, JAZZ, CLASSICAL, ELECTRONIC, COUNTRY, OTHER)"},
			&cli.StringFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Duration as m:ss or seconds"},
		}
	}

	return &cli.Command{
		Name:  "songs",
		Usage: "List, edit, export and import songs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List songs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Only show songs whose title, artist, album or genre contains the term",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SongsList,
			},
			{
				Name:      "show",
				Usage:     "Show a single song",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SongsShow,
			},
			{
				Name:   "add",
				Usage:  "Create a song",
				Flags:  songFlags(),
				Action: r.SongsAdd,
			},
			{
				Name:      "edit",
				Usage:     "Update a song; omitted flags keep their current value",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     songFlags(),
				Action:    r.SongsEdit,
			},
			{
				Name:      "delete",
				Usage:     "Delete a song",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Skip the confirmation prompt",
					},
				},
				Action: r.SongsDelete,
			},
			{
				Name:  "export",
				Usage: "Export every song",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, md, txt, json)",
						Value:   string(formatter.FormatCSV),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default songs.<format>)",
					},
					&cli.BoolFlag{
						Name:  "stdout",
						Usage: "Write to stdout instead of a file",
					},
				},
				Action: r.SongsExport,
			},
			{
				Name:      "import",
				Usage:     "Create songs from a CSV file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent create requests (max 10, default api.workers)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second (default api.requests_per_second)",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Write a JSON import report to this path",
					},
				},
				Action: r.SongsImport,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the songs API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Authorized GET, prints the response body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand launches the interactive interface
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}
