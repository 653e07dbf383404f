package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"feedreader/config"
	"feedreader/models"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/urfave/cli/v2"
)

// addCmd registers a new feed in the configuration file
func addCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a feed to the registry",
		Description: `Prompts for a feed name and url and appends the feed to the
configuration file.

The feed is fetched once before it is added, unless --no-verify is given.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "no-verify",
				Usage: "Add the feed without fetching it first",
			},
		},
		Action: func(ctx *cli.Context) error {
			path := ctx.String("config")
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			name, err := prompt.New().Ask("Name:").Input("Udacity Blog", input.WithValidateFunc(notBlank))
			if err != nil {
				return err
			}

			rawURL, err := prompt.New().Ask("URL:").Input("https://blog.udacity.com/feed", input.WithValidateFunc(validFeedURL))
			if err != nil {
				return err
			}

			feed := config.TomlFeed{Name: strings.TrimSpace(name), URL: strings.TrimSpace(rawURL)}
			for _, existing := range cfg.Feeds {
				if existing.URL == feed.URL {
					return fmt.Errorf("feed %s is already registered as %q", feed.URL, existing.Name)
				}
			}

			if !ctx.Bool("no-verify") {
				entries, err := newFetcher(cfg).Fetch(ctx.Context, models.Feed{Name: feed.Name, URL: feed.URL})
				if err != nil {
					return fmt.Errorf("could not fetch feed: %w", err)
				}
				fmt.Printf("Fetched %d entries\n", len(entries))
			}

			if err := config.AppendFeed(path, feed); err != nil {
				return err
			}
			fmt.Println("Added feed...", feed.Name)
			return nil
		},
	}
}

func notBlank(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("must not be empty")
	}
	return nil
}

func validFeedURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return errors.New("must be an absolute http or https url")
	}
	return nil
}
