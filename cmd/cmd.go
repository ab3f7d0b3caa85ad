// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes the config file and the local journal database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize config file, database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// watchCommand runs the live dashboard
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"w"},
		Usage:   "Follow backend jobs live in a terminal dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file path while the dashboard owns the terminal",
				Value: "./tmp/subwatch.log",
			},
			&cli.BoolFlag{
				Name:  "no-journal",
				Usage: "Skip journaling finished jobs to the local database",
			},
		},
		Action: r.Watch,
	}
}

// jobsCommand handles job queue operations
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "jobs",
		Aliases: []string{"j"},
		Usage:   "Job queue operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List jobs currently known to the backend",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.JobsList,
			},
			{
				Name:  "history",
				Usage: "Show finished jobs from the local journal",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of entries",
						Value:   20,
					},
					&cli.IntFlag{
						Name:  "job",
						Usage: "Only entries for this job id",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
					&cli.BoolFlag{
						Name:  "markdown",
						Usage: "Output a Markdown table",
					},
				},
				Action: r.JobsHistory,
			},
			{
				Name:  "delete",
				Usage: "Remove a pending job from the backend queue",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.JobsDelete,
			},
		},
	}
}

// apiCommand handles direct backend API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the backend, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:   "health",
				Usage:  "Check whether the backend is reachable",
				Action: r.APIHealth,
			},
		},
	}
}
