package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"feedreader/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"
)

const snippetLength = 200

// Fetcher retrieves the entries of a feed
type Fetcher interface {
	Fetch(ctx context.Context, feed models.Feed) ([]models.Entry, error)
}

// FetcherConfig holds configuration for HTTP feed fetching
type FetcherConfig struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	Client     *http.Client
	// NewBackOff overrides the retry schedule, mostly for tests
	NewBackOff func() backoff.BackOff
}

// HTTPFetcher fetches RSS, Atom and JSON feeds over HTTP
type HTTPFetcher struct {
	parser *gofeed.Parser
	config FetcherConfig
}

func NewHTTPFetcher(config FetcherConfig) *HTTPFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = config.UserAgent
	if config.Client != nil {
		parser.Client = config.Client
	}

	if config.NewBackOff == nil {
		config.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		}
	}

	return &HTTPFetcher{parser: parser, config: config}
}

// Fetch downloads and parses the feed, retrying transient failures.
// Client errors (4xx) are not retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, feed models.Feed) ([]models.Entry, error) {
	b := backoff.WithContext(
		backoff.WithMaxRetries(f.config.NewBackOff(), uint64(max(f.config.MaxRetries, 0))),
		ctx,
	)

	parsed, err := backoff.RetryNotifyWithData(func() (*gofeed.Feed, error) {
		attemptCtx := ctx
		if f.config.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, f.config.Timeout)
			defer cancel()
		}

		parsed, err := f.parser.ParseURLWithContext(feed.URL, attemptCtx)
		if err != nil {
			var httpErr gofeed.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
				return nil, backoff.Permanent(err)
			}
			if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return parsed, nil
	}, b, func(err error, wait time.Duration) {
		fetchRetries.Inc()
		log.WithFields(log.Fields{
			"url":   feed.URL,
			"error": err,
			"wait":  wait,
		}).Warn("Fetching feed failed, retrying")
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching feed %s: %w", feed.URL, err)
	}

	return ConvertItems(feed.URL, parsed.Items), nil
}

// ConvertItems maps parsed feed items to entries, keeping feed order
func ConvertItems(feedURL string, items []*gofeed.Item) []models.Entry {
	entries := make([]models.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			guid = item.Title
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		entry := models.Entry{
			FeedURL: feedURL,
			GUID:    guid,
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Snippet: Snippet(description, snippetLength),
		}
		if item.PublishedParsed != nil {
			entry.Published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			entry.Published = item.UpdatedParsed.UTC()
		}

		entries = append(entries, entry)
	}
	return entries
}

// Snippet reduces an HTML fragment to at most limit runes of plain text
func Snippet(fragment string, limit int) string {
	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		text = doc.Text()
	}

	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
