// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// setupCommand handles setup operations for configuration and storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// feedCommand handles the stored feed snapshot.
func feedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Import, inspect and export the feed snapshot",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a snapshot from a fixture file or the feed proxy",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Fixture path (default: feed.fixture_path)",
					},
					&cli.BoolFlag{
						Name:  "remote",
						Usage: "Fetch the snapshot from feed.proxy_url instead of a file",
					},
				}, jsonFlags()...),
				Action: r.FeedImport,
			},
			{
				Name:  "fetch",
				Usage: "Download the proxy's snapshot as a fixture without importing it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the fixture to a file instead of stdout",
					},
				},
				Action: r.FeedFetch,
			},
			{
				Name:  "list",
				Usage: "List stored stories",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include expired stories",
					},
					&cli.StringFlag{
						Name:  "author",
						Usage: "Only stories by this author ID",
					},
				}, jsonFlags()...),
				Action: r.FeedList,
			},
			{
				Name:   "groups",
				Usage:  "Show the author groups a session would play",
				Flags:  jsonFlags(),
				Action: r.FeedGroups,
			},
			{
				Name:   "prune",
				Usage:  "Delete expired stories",
				Action: r.FeedPrune,
			},
			{
				Name:  "export",
				Usage: "Export the playable groups, one directory or file per author",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: json, csv, markdown, txt",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: stories_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers (max 8)",
						Value: 4,
					},
					&cli.BoolFlag{
						Name:  "avatars",
						Usage: "Download author avatars (markdown only)",
					},
					&cli.BoolFlag{
						Name:  "stdout",
						Usage: "Write a single document to stdout instead of files",
					},
				},
				Action: r.FeedExport,
			},
		},
	}
}

// playCommand returns the top-level command that plays a session.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "play",
		Aliases: []string{"view"},
		Usage:   "Play stories in the terminal, or print transitions when output is not a terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "author",
				Usage: "Start at this author ID",
			},
			&cli.StringFlag{
				Name:  "item",
				Usage: "Start at this story ID",
			},
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "Print transitions instead of launching the viewer",
			},
		},
		Action: r.Play,
	}
}

// serveCommand returns the command that runs the remote control surface.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Play a session controlled over HTTP and websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// remoteCommand drives a running server.
func remoteCommand(r *Runner) *cli.Command {
	urlFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "url",
			Aliases: []string{"u"},
			Usage:   "Server base URL (default: http://server.host:server.port)",
		}
	}

	commands := []*cli.Command{
		{
			Name:   "state",
			Usage:  "Show the current snapshot",
			Flags:  []cli.Flag{urlFlag()},
			Action: r.RemoteState,
		},
		{
			Name:  "jump",
			Usage: "Seek to an author and story index",
			Flags: []cli.Flag{
				urlFlag(),
				&cli.IntFlag{Name: "author-index", Aliases: []string{"a"}, Required: true},
				&cli.IntFlag{Name: "item-index", Aliases: []string{"i"}},
			},
			Action: r.RemoteJump,
		},
		{
			Name:  "duration",
			Usage: "Report the natural length of the story on screen",
			Flags: []cli.Flag{
				urlFlag(),
				&cli.StringFlag{Name: "item", Aliases: []string{"i"}, Required: true, Usage: "Story ID the length belongs to"},
				&cli.DurationFlag{Name: "length", Aliases: []string{"l"}, Required: true, Usage: "Playback length, e.g. 12.5s"},
			},
			Action: r.RemoteDuration,
		},
	}
	for _, action := range remoteActionUsage {
		commands = append(commands, &cli.Command{
			Name:   action[0],
			Usage:  action[1],
			Flags:  []cli.Flag{urlFlag()},
			Action: r.RemoteCommand,
		})
	}

	return &cli.Command{
		Name:     "remote",
		Usage:    "Control a running 'storyx serve' session",
		Commands: commands,
	}
}

var remoteActionUsage = [][2]string{
	{"next", "Advance to the next story"},
	{"prev", "Go back one story"},
	{"pause", "Pause playback"},
	{"resume", "Resume playback"},
	{"close", "End the session"},
}
