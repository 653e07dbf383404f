package cmd

import (
	"fmt"
	"time"

	"feedreader/db"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing cached entries that are old.

		Removes entries fetched more than the given number of days ago.
		This is to keep the database size down and the cache fresh.`,
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.IntFlag{
				Name:    "days",
				Value:   30,
				Usage:   "Remove entries fetched more than this many days ago",
				EnvVars: []string{"FEEDREADER_TIDY_DAYS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			path := ctx.String("database")
			fmt.Println("Database configured: ", path)

			database, err := db.Open(path)
			if err != nil {
				return err
			}
			defer database.Close()

			removed, err := database.Tidy(ctx.Context, time.Duration(ctx.Int("days"))*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d entries\n", removed)
			return nil
		},
	}
}
