package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedreader/feeds"
	"feedreader/feedtest"
	"feedreader/models"
	"feedreader/page"
	"feedreader/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app      *fiber.App
	fixtures *feedtest.Server
	page     *page.Page
	loader   *feeds.Loader
	bc       *server.Broadcaster
}

type fixtureConfig struct {
	fetchTimeout time.Duration
	loadTimeout  time.Duration
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, fixtureConfig{fetchTimeout: 5 * time.Second})
}

func newFixtureWith(t *testing.T, config fixtureConfig) *fixture {
	t.Helper()

	srv := feedtest.NewServer()
	t.Cleanup(srv.Close)

	p, err := page.New()
	require.NoError(t, err)

	bc := server.NewBroadcaster()
	registry := feeds.NewRegistry(srv.Feeds())
	loader := feeds.NewLoader(registry, feeds.NewHTTPFetcher(feeds.FetcherConfig{Timeout: config.fetchTimeout}), p, feeds.LoaderConfig{
		OnComplete: func(result feeds.LoadResult) { bc.Broadcast(result.Event()) },
	})
	page.Bind(p, registry.Feeds(), loader)
	t.Cleanup(loader.Wait)

	app := server.Server(&server.ServerConfig{Page: p, Loader: loader, Broadcaster: bc, LoadTimeout: config.loadTimeout})
	return &fixture{app: app, fixtures: srv, page: p, loader: loader, bc: bc}
}

func (f *fixture) do(t *testing.T, method, target string) (int, []byte) {
	t.Helper()
	resp, err := f.app.Test(httptest.NewRequest(method, target, nil), 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestIndexServesPage(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `class="menu-hidden"`)
	assert.Contains(t, string(body), `class="feed-link"`)
}

func TestListFeeds(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/feeds")
	require.Equal(t, http.StatusOK, status)

	var views []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &views))
	require.Len(t, views, 2)
	assert.Equal(t, "Alpha", views[0]["name"])
	assert.Equal(t, float64(1), views[1]["index"])
}

func TestLoadFeedRendersEntries(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/feeds/0/load")
	require.Equal(t, http.StatusOK, status)

	var event models.LoadEvent
	require.NoError(t, json.Unmarshal(body, &event))
	assert.Equal(t, 3, event.Entries)
	assert.True(t, event.Rendered)

	status, body = f.do(t, http.MethodGet, "/api/entries")
	require.Equal(t, http.StatusOK, status)

	var entries struct {
		Title   string   `json:"title"`
		Entries []string `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(body, &entries))
	assert.Equal(t, "Alpha", entries.Title)
	assert.Len(t, entries.Entries, 3)
}

func TestLoadUnknownFeed(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodPost, "/api/feeds/9/load")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodPost, "/api/feeds/abc/load")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLoadStatusOnTimeouts(t *testing.T) {
	tests := []struct {
		name   string
		config fixtureConfig
		want   int
	}{
		{
			name:   "fetch times out before the wait",
			config: fixtureConfig{fetchTimeout: 50 * time.Millisecond, loadTimeout: 5 * time.Second},
			want:   http.StatusBadGateway,
		},
		{
			name:   "wait times out before the fetch",
			config: fixtureConfig{fetchTimeout: 5 * time.Second, loadTimeout: 50 * time.Millisecond},
			want:   http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixtureWith(t, tt.config)
			f.fixtures.SetDelay("alpha", 300*time.Millisecond)

			status, body := f.do(t, http.MethodPost, "/api/feeds/0/load")
			assert.Equal(t, tt.want, status)

			if tt.want == http.StatusBadGateway {
				var event models.LoadEvent
				require.NoError(t, json.Unmarshal(body, &event))
				assert.Contains(t, event.Error, context.DeadlineExceeded.Error())
				assert.False(t, event.Rendered)
			}
		})
	}
}

func TestToggleMenu(t *testing.T) {
	f := newFixture(t)

	expected := []bool{false, true}
	for _, hidden := range expected {
		status, body := f.do(t, http.MethodPost, "/api/menu/toggle")
		require.Equal(t, http.StatusOK, status)

		var view struct {
			Hidden bool `json:"hidden"`
		}
		require.NoError(t, json.Unmarshal(body, &view))
		assert.Equal(t, hidden, view.Hidden)
	}
}

func TestSelectFeedHidesMenuAndLoads(t *testing.T) {
	f := newFixture(t)
	f.page.RemoveClass(page.BodySelector, page.MenuHiddenClass)

	status, _ := f.do(t, http.MethodPost, "/api/feeds/1/select")
	require.Equal(t, http.StatusAccepted, status)
	f.loader.Wait()

	assert.True(t, f.page.HasClass(page.BodySelector, page.MenuHiddenClass))
	assert.Equal(t, "Beta", f.page.Text(page.HeaderTitleSelector))
	assert.Equal(t, 2, f.page.Count(page.EntrySelector))

	status, _ = f.do(t, http.MethodPost, "/api/feeds/5/select")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStaticAssetsAndMetrics(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/css/style.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), ".menu-hidden")

	f.do(t, http.MethodPost, "/api/feeds/0/load")
	status, body = f.do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "feedreader_loads_total")
}

func TestLoadBroadcastsEvent(t *testing.T) {
	f := newFixture(t)

	events := make(chan models.LoadEvent, 1)
	f.bc.AddClient("test", events)
	defer f.bc.RemoveClient("test")

	f.do(t, http.MethodPost, "/api/feeds/1/load")

	select {
	case event := <-events:
		assert.Equal(t, 1, event.Index)
		assert.Equal(t, "Beta", event.Feed.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no load event broadcast")
	}
}
