package feeds_test

import (
	"errors"
	"testing"

	"feedreader/config"
	"feedreader/feeds"
	"feedreader/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryValidate(t *testing.T) {
	tests := []struct {
		name      string
		feeds     []models.Feed
		wantErr   error
		wantParts []string
	}{
		{
			name:  "two valid feeds",
			feeds: []models.Feed{{Name: "A", URL: "http://a"}, {Name: "B", URL: "http://b"}},
		},
		{
			name:    "empty registry",
			feeds:   nil,
			wantErr: feeds.ErrEmptyRegistry,
		},
		{
			name:      "missing url",
			feeds:     []models.Feed{{Name: "A"}},
			wantParts: []string{"feed 0", "no url"},
		},
		{
			name:      "every violation is reported",
			feeds:     []models.Feed{{Name: "A", URL: "http://a"}, {URL: "http://b"}, {Name: "C"}},
			wantParts: []string{"feed 1", "no name", "feed 2", "no url"},
		},
		{
			name:  "whitespace is not empty",
			feeds: []models.Feed{{Name: " ", URL: " "}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := feeds.NewRegistry(tt.feeds).Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case len(tt.wantParts) > 0:
				require.Error(t, err)
				for _, part := range tt.wantParts {
					assert.Contains(t, err.Error(), part)
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistryAt(t *testing.T) {
	registry := feeds.NewRegistry([]models.Feed{{Name: "A", URL: "http://a"}})

	feed, err := registry.At(0)
	require.NoError(t, err)
	assert.Equal(t, "A", feed.Name)

	for _, index := range []int{-1, 1, 42} {
		_, err := registry.At(index)
		assert.True(t, errors.Is(err, feeds.ErrFeedNotFound), "index %d", index)
	}
}

func TestRegistryIsACopy(t *testing.T) {
	source := []models.Feed{{Name: "A", URL: "http://a"}}
	registry := feeds.NewRegistry(source)
	source[0].Name = "changed"

	got := registry.Feeds()
	got[0].URL = "changed"

	feed, _ := registry.At(0)
	assert.Equal(t, models.Feed{Name: "A", URL: "http://a"}, feed)
}

func TestRegistryFromConfig(t *testing.T) {
	cfg := &config.TomlConfig{Feeds: []config.TomlFeed{
		{Name: "A", URL: "http://a"},
		{Name: "B", URL: "http://b"},
	}}

	registry := feeds.RegistryFromConfig(cfg)
	assert.Equal(t, 2, registry.Len())
	assert.Equal(t, []models.Feed{{Name: "A", URL: "http://a"}, {Name: "B", URL: "http://b"}}, registry.Feeds())
	assert.NoError(t, registry.Validate())
}

func TestNilRegistry(t *testing.T) {
	var registry *feeds.Registry
	assert.Equal(t, 0, registry.Len())
	assert.ErrorIs(t, registry.Validate(), feeds.ErrEmptyRegistry)
}
