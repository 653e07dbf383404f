package cmd

import (
	"fmt"
	"os"

	"feedreader/config"
	"feedreader/db"
	"feedreader/feeds"
	"feedreader/page"
	"feedreader/specs"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Run the behavioral checks against the configured feeds",
		Description: `Runs the four check groups of the feed reader page in order:

RSS Feeds, The Menu, Initial Entries and New Feed Selection.

Feeds are fetched over the network. In strict mode the first load of the
new feed selection group is awaited before its content is captured. In
faithful mode it is not, so the captured content depends on timing.

Exits with a non-zero status when any check fails.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "Optional SQLite database used as entry cache",
				EnvVars: []string{"FEEDREADER_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Suite mode, strict or faithful. Overrides the config file",
				EnvVars: []string{"FEEDREADER_MODE"},
			},
			&cli.BoolFlag{
				Name:    "isolate",
				Usage:   "Reset the page before every check group. Overrides the config file",
				EnvVars: []string{"FEEDREADER_ISOLATE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if ctx.IsSet("mode") {
				cfg.Suite.Mode = ctx.String("mode")
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if ctx.IsSet("isolate") {
				isolate := ctx.Bool("isolate")
				cfg.Suite.IsolateGroups = &isolate
			}

			loaderConfig := feeds.LoaderConfig{
				MaxEntries: cfg.Loader.MaxEntries,
				Tagger:     feeds.NewLanguageTagger(cfg.Loader.Languages),
			}
			if path := ctx.String("database"); path != "" {
				database, err := db.Open(path)
				if err != nil {
					return err
				}
				defer database.Close()
				loaderConfig.Store = database
			}

			p, err := page.New()
			if err != nil {
				return err
			}

			registry := feeds.RegistryFromConfig(cfg)
			loader := feeds.NewLoader(registry, newFetcher(cfg), p, loaderConfig)
			page.Bind(p, registry.Feeds(), loader)

			h := &specs.Harness{
				Registry: registry,
				Page:     p,
				Loader:   loader,
				Options:  specs.OptionsFromConfig(cfg.Suite),
			}

			log.WithFields(log.Fields{
				"feeds":   registry.Len(),
				"mode":    h.Options.Mode,
				"isolate": h.Options.IsolateGroups,
			}).Info("Running checks")

			report := specs.NewRunner(h).Run(ctx.Context, specs.Groups(h))
			if err := report.Write(os.Stdout); err != nil {
				return err
			}

			if report.Failed() > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d checks failed", report.Failed(), len(report.Results)), 1)
			}
			return nil
		},
	}
}
