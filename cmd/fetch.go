package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"feedreader/config"
	"feedreader/feeds"
	"feedreader/models"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Print the entries of every registered feed to the command line",
		Description: `Fetches every feed in the registry and prints its entries.

Returns each entry as a JSON object on a single line. Use a tool like jq to process
the output.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "index",
				Value: -1,
				Usage: "Only fetch the feed at this registry index",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   4,
				Usage:   "Number of feeds fetched concurrently",
				EnvVars: []string{"FEEDREADER_WORKERS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			// Disable logging to stdout
			log.SetOutput(os.Stderr)

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			registry := feeds.RegistryFromConfig(cfg)
			selected := registry.Feeds()
			if index := ctx.Int("index"); index >= 0 {
				feed, err := registry.At(index)
				if err != nil {
					return err
				}
				selected = []models.Feed{feed}
			}

			pool := feeds.NewFetchPool(newFetcher(cfg), ctx.Int("workers"))
			tagger := feeds.NewLanguageTagger(cfg.Loader.Languages)

			failed := 0
			for _, result := range pool.FetchAll(ctx.Context, selected) {
				if result.Err != nil {
					failed++
					log.WithFields(log.Fields{
						"feed":  result.Feed.Name,
						"error": result.Err,
					}).Error("Error fetching feed")
					continue
				}

				entries := result.Entries
				if len(entries) > cfg.Loader.MaxEntries {
					entries = entries[:cfg.Loader.MaxEntries]
				}
				tagger.Tag(entries)

				for i := range entries {
					printStdout(&entries[i])
				}
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d feeds could not be fetched", failed, len(selected)), 1)
			}
			return nil
		},
	}
}

func printStdout(entry *models.Entry) {
	// Print as single JSON string on a single line
	entryJson, err := json.Marshal(entry)
	if err == nil {
		fmt.Println(string(entryJson))
	}
}
