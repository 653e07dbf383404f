package cmd

import (
	"feedreader/config"
	"feedreader/feeds"

	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "feedreader",
		Usage: "A feed reader page and the behavioral checks that verify it",
		Description: `A feed reader that shows the entries of one feed at a time.

		Feeds are read from a TOML registry. The reader page is served over HTTP,
		and the check command runs the behavioral check groups against it:
		the feed registry, the menu toggle, initial entries and new feed selection.
		Fetched entries are cached in an SQLite database.

		Flags can generally be set via environment variables, e.g.:

		--database => FEEDREADER_DATABASE=feed.db
		--port => FEEDREADER_PORT=3000
		`,
		Commands: []*cli.Command{
			serveCmd(),
			checkCmd(),
			fetchCmd(),
			addCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config/feeds.toml",
		Usage:   "Path to feeds configuration file",
		EnvVars: []string{"FEEDREADER_CONFIG"},
	}
}

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database",
		Aliases: []string{"d"},
		Value:   "feed.db",
		Usage:   "SQLite database file location",
		EnvVars: []string{"FEEDREADER_DATABASE"},
	}
}

func newFetcher(cfg *config.TomlConfig) *feeds.HTTPFetcher {
	return feeds.NewHTTPFetcher(feeds.FetcherConfig{
		Timeout:    cfg.Loader.Timeout,
		MaxRetries: cfg.Loader.MaxRetries,
		UserAgent:  cfg.Loader.UserAgent,
	})
}
