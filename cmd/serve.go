package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedreader/config"
	"feedreader/db"
	"feedreader/feeds"
	"feedreader/page"
	"feedreader/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the feed reader page",
		Description: `Starts the feed reader HTTP server.

Renders the reader page at / and loads the first registered feed. Clicking a
feed link, or calling the HTTP API, loads another feed. Fetched entries are
cached in the SQLite database and shown when a feed cannot be fetched.
Load events are streamed to clients connected to /events.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Value:   "localhost",
				Usage:   "The hostname to listen on",
				EnvVars: []string{"FEEDREADER_HOSTNAME"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"FEEDREADER_PORT"},
			},
			&cli.DurationFlag{
				Name:    "load-timeout",
				Value:   30 * time.Second,
				Usage:   "How long an API load request waits for the feed",
				EnvVars: []string{"FEEDREADER_LOAD_TIMEOUT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			registry := feeds.RegistryFromConfig(cfg)
			if err := registry.Validate(); err != nil {
				log.WithField("error", err).Warn("Feed registry has problems")
			}

			database, err := db.Open(ctx.String("database"))
			if err != nil {
				return err
			}
			defer database.Close()

			p, err := page.New()
			if err != nil {
				return err
			}

			bc := server.NewBroadcaster()
			loader := feeds.NewLoader(registry, newFetcher(cfg), p, feeds.LoaderConfig{
				MaxEntries: cfg.Loader.MaxEntries,
				Store:      database,
				Tagger:     feeds.NewLanguageTagger(cfg.Loader.Languages),
				OnComplete: func(result feeds.LoadResult) {
					bc.Broadcast(result.Event())
				},
			})
			page.Bind(p, registry.Feeds(), loader)

			app := server.Server(&server.ServerConfig{
				Page:        p,
				Loader:      loader,
				Broadcaster: bc,
				LoadTimeout: ctx.Duration("load-timeout"),
			})

			// Graceful shutdown
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)

			go func() {
				<-sig
				fmt.Println("Gracefully shutting down...")
				bc.Shutdown()
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.WithField("error", err).Error("Error shutting down server")
				}
			}()

			// The page shows the first feed on startup
			if registry.Len() > 0 {
				loader.LoadFeed(0, nil)
			}

			host := fmt.Sprintf("%s:%d", ctx.String("hostname"), ctx.Int("port"))
			log.WithFields(log.Fields{
				"address": host,
				"feeds":   registry.Len(),
			}).Info("Starting server")

			err = app.Listen(host)
			loader.Wait()
			fmt.Println("Done!")
			return err
		},
	}
}
