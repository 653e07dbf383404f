// Package feeds provides the feed registry and the asynchronous feed loader
package feeds

import (
	"errors"
	"fmt"
	"strings"

	"feedreader/config"
	"feedreader/models"

	"github.com/samber/lo"
)

var (
	// ErrEmptyRegistry is returned when a registry holds no feeds
	ErrEmptyRegistry = errors.New("feed registry is empty")
	// ErrFeedNotFound is returned when a feed index is out of range
	ErrFeedNotFound = errors.New("feed not found")
)

// Registry is an ordered, immutable list of feed descriptors
type Registry struct {
	feeds []models.Feed
}

// NewRegistry copies feeds into a new registry. A nil registry is never
// returned, an empty one is allowed so validation can report on it.
func NewRegistry(feeds []models.Feed) *Registry {
	return &Registry{feeds: append([]models.Feed(nil), feeds...)}
}

// RegistryFromConfig builds a registry from the [[feeds]] tables in cfg
func RegistryFromConfig(cfg *config.TomlConfig) *Registry {
	return NewRegistry(lo.Map(cfg.Feeds, func(f config.TomlFeed, _ int) models.Feed {
		return models.Feed{Name: f.Name, URL: f.URL}
	}))
}

// Len returns the number of feeds
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.feeds)
}

// Feeds returns a copy of the feeds in registry order
func (r *Registry) Feeds() []models.Feed {
	if r == nil {
		return nil
	}
	return append([]models.Feed(nil), r.feeds...)
}

// At returns the feed at index i
func (r *Registry) At(i int) (models.Feed, error) {
	if i < 0 || i >= r.Len() {
		return models.Feed{}, fmt.Errorf("%w: index %d of %d", ErrFeedNotFound, i, r.Len())
	}
	return r.feeds[i], nil
}

// Validate reports every descriptor with an empty name or url. A field is
// empty only when it has zero length, the same rule the check group applies.
// Unlike the check group, which stops at the first bad descriptor, all
// violations are collected into one error.
func (r *Registry) Validate() error {
	if r.Len() == 0 {
		return ErrEmptyRegistry
	}

	var problems []string
	for i, feed := range r.feeds {
		if feed.URL == "" {
			problems = append(problems, fmt.Sprintf("feed %d (%q) has no url", i, feed.Name))
		}
		if feed.Name == "" {
			problems = append(problems, fmt.Sprintf("feed %d (%q) has no name", i, feed.URL))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid feed registry: %s", strings.Join(problems, "; "))
	}
	return nil
}
