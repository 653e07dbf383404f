package specs_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"feedreader/config"
	"feedreader/feeds"
	"feedreader/models"
	"feedreader/page"
	"feedreader/specs"

	"github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves entries by feed url, optionally after a delay
type stubFetcher struct {
	entries map[string][]models.Entry
	delay   time.Duration
}

func (f stubFetcher) Fetch(ctx context.Context, feed models.Feed) ([]models.Entry, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	entries, ok := f.entries[feed.URL]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return entries, nil
}

func entriesFor(url string, titles ...string) []models.Entry {
	entries := make([]models.Entry, 0, len(titles))
	for _, title := range titles {
		entries = append(entries, models.Entry{FeedURL: url, GUID: title, Title: title, Snippet: "about " + title})
	}
	return entries
}

func newHarness(t *testing.T, registry []models.Feed, fetcher feeds.Fetcher, options specs.Options) *specs.Harness {
	t.Helper()

	p, err := page.New()
	require.NoError(t, err)

	reg := feeds.NewRegistry(registry)
	loader := feeds.NewLoader(reg, fetcher, p, feeds.LoaderConfig{})
	page.Bind(p, reg.Feeds(), loader)
	t.Cleanup(loader.Wait)

	return &specs.Harness{Registry: reg, Page: p, Loader: loader, Options: options}
}

func strict() specs.Options {
	return specs.Options{Mode: config.ModeStrict, IsolateGroups: true, CheckTimeout: 5 * time.Second}
}

func run(h *specs.Harness) *specs.Report {
	return specs.NewRunner(h).Run(context.Background(), specs.Groups(h))
}

func passed(t *testing.T, report *specs.Report, group, check string) bool {
	t.Helper()
	result, ok := report.Find(group, check)
	require.True(t, ok, "%s %s was not run", group, check)
	return result.Passed()
}

func TestAllChecksPass(t *testing.T) {
	fetcher := stubFetcher{entries: map[string][]models.Entry{
		"http://a": entriesFor("http://a", "a1", "a2"),
		"http://b": entriesFor("http://b", "b1"),
	}}
	h := newHarness(t, []models.Feed{{Name: "A", URL: "http://a"}, {Name: "B", URL: "http://b"}}, fetcher, strict())

	report := run(h)
	assert.Equal(t, 7, len(report.Results))
	assert.Equal(t, 0, report.Failed(), "%+v", report.Results)

	// Groups run in declaration order
	groups := []string{}
	for _, result := range report.Results {
		if len(groups) == 0 || groups[len(groups)-1] != result.Group {
			groups = append(groups, result.Group)
		}
	}
	assert.Equal(t, []string{"RSS Feeds", "The Menu", "Initial Entries", "New Feed Selection"}, groups)
}

func TestRegistryChecksWithUnreachableFeeds(t *testing.T) {
	h := newHarness(t, []models.Feed{{Name: "A", URL: "http://a"}, {Name: "B", URL: "http://b"}}, stubFetcher{}, strict())

	report := run(h)
	assert.True(t, passed(t, report, "RSS Feeds", "are defined"))
	assert.True(t, passed(t, report, "RSS Feeds", "have urls that are defined and not empty"))
	assert.True(t, passed(t, report, "RSS Feeds", "have names that are defined and not empty"))
	assert.True(t, passed(t, report, "The Menu", "is hidden by default"))
	assert.False(t, passed(t, report, "Initial Entries", "are loaded and loadFeed function completes its work"))
	assert.False(t, passed(t, report, "New Feed Selection", "is loaded and content successfully changes"))
}

func TestEmptyRegistry(t *testing.T) {
	h := newHarness(t, nil, stubFetcher{}, strict())

	report := run(h)
	require.Len(t, report.Results, 7)

	result, _ := report.Find("RSS Feeds", "are defined")
	assert.False(t, result.Passed())
	assert.NotEmpty(t, result.Failure)

	// Vacuously true over an empty registry
	assert.True(t, passed(t, report, "RSS Feeds", "have urls that are defined and not empty"))

	result, _ = report.Find("Initial Entries", "are loaded and loadFeed function completes its work")
	assert.Contains(t, result.Failure, "beforeEach")
	assert.False(t, passed(t, report, "New Feed Selection", "is loaded and content successfully changes"))
}

func TestMissingUrlAndName(t *testing.T) {
	h := newHarness(t, []models.Feed{{Name: "A", URL: ""}, {Name: "", URL: "http://b"}}, stubFetcher{}, strict())

	report := run(h)
	assert.True(t, passed(t, report, "RSS Feeds", "are defined"))

	result, _ := report.Find("RSS Feeds", "have urls that are defined and not empty")
	assert.Contains(t, result.Failure, `feed "A" has no url`)

	result, _ = report.Find("RSS Feeds", "have names that are defined and not empty")
	assert.Contains(t, result.Failure, `feed "http://b" has no name`)
}

func TestIdenticalFeedsFailNewFeedSelection(t *testing.T) {
	fetcher := stubFetcher{entries: map[string][]models.Entry{
		"http://same": entriesFor("http://same", "s1", "s2"),
	}}
	h := newHarness(t, []models.Feed{{Name: "A", URL: "http://same"}, {Name: "B", URL: "http://same"}}, fetcher, strict())

	report := run(h)
	assert.True(t, passed(t, report, "Initial Entries", "are loaded and loadFeed function completes its work"))
	assert.False(t, passed(t, report, "New Feed Selection", "is loaded and content successfully changes"))
	assert.Equal(t, 1, report.Failed())
}

func TestFaithfulMode(t *testing.T) {
	fetcher := stubFetcher{
		entries: map[string][]models.Entry{
			"http://a": entriesFor("http://a", "a1", "a2"),
			"http://b": entriesFor("http://b", "b1"),
		},
		delay: 20 * time.Millisecond,
	}

	for _, isolate := range []bool{true, false} {
		options := strict()
		options.Mode = config.ModeFaithful
		options.IsolateGroups = isolate

		h := newHarness(t, []models.Feed{{Name: "A", URL: "http://a"}, {Name: "B", URL: "http://b"}}, fetcher, options)
		report := run(h)
		assert.Equal(t, 0, report.Failed(), "isolate=%v: %+v", isolate, report.Results)

		// The awaited second load wins over the unawaited first one
		assert.Equal(t, "B", h.Page.Text(page.HeaderTitleSelector))
	}
}

func TestBeforeEachTimeout(t *testing.T) {
	fetcher := stubFetcher{
		entries: map[string][]models.Entry{"http://a": entriesFor("http://a", "a1")},
		delay:   time.Second,
	}
	options := strict()
	options.CheckTimeout = 10 * time.Millisecond
	h := newHarness(t, []models.Feed{{Name: "A", URL: "http://a"}}, fetcher, options)

	report := run(h)
	result, _ := report.Find("Initial Entries", "are loaded and loadFeed function completes its work")
	assert.Contains(t, result.Failure, context.DeadlineExceeded.Error())
}

func TestCancelledRun(t *testing.T) {
	h := newHarness(t, []models.Feed{{Name: "A", URL: "http://a"}}, stubFetcher{}, strict())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := specs.NewRunner(h).Run(ctx, specs.Groups(h))
	assert.Equal(t, len(report.Results), report.Failed())
}

func TestHaveClass(t *testing.T) {
	p, err := page.New()
	require.NoError(t, err)
	body := specs.Element{Page: p, Selector: page.BodySelector}

	g := gomega.NewGomega(func(message string, _ ...int) { panic(message) })
	g.Expect(body).To(specs.HaveClass(page.MenuHiddenClass))

	p.RemoveClass(page.BodySelector, page.MenuHiddenClass)
	success, err := specs.HaveClass(page.MenuHiddenClass).Match(body)
	require.NoError(t, err)
	assert.False(t, success)

	message := specs.HaveClass(page.MenuHiddenClass).FailureMessage(body)
	assert.Contains(t, message, `have class "menu-hidden"`)
}

func TestReportWrite(t *testing.T) {
	report := &specs.Report{Results: []specs.Result{
		{Group: "The Menu", Check: "is hidden by default"},
		{Group: "The Menu", Check: "changes visibility when the menu icon is clicked", Failure: "expected menu-hidden"},
	}}
	assert.Equal(t, 1, report.Passed())
	assert.Equal(t, 1, report.Failed())

	var out bytes.Buffer
	require.NoError(t, report.Write(&out))
	assert.Contains(t, out.String(), "The Menu")
	assert.Contains(t, out.String(), "is hidden by default")
	assert.Contains(t, out.String(), "expected menu-hidden")
	assert.Contains(t, out.String(), "1 failed")
}

func TestMenuChecksFail(t *testing.T) {
	feedList := []models.Feed{{Name: "A", URL: "http://a"}}

	t.Run("icon without behaviour", func(t *testing.T) {
		p, err := page.New()
		require.NoError(t, err)
		reg := feeds.NewRegistry(feedList)
		loader := feeds.NewLoader(reg, stubFetcher{}, p, feeds.LoaderConfig{})
		t.Cleanup(loader.Wait)

		// No page.Bind, so clicking the icon changes nothing
		h := &specs.Harness{Registry: reg, Page: p, Loader: loader, Options: strict()}
		report := run(h)

		assert.True(t, passed(t, report, "The Menu", "is hidden by default"))
		result, _ := report.Find("The Menu", "changes visibility when the menu icon is clicked")
		assert.False(t, result.Passed())
		assert.Contains(t, result.Failure, `have class "menu-hidden"`)
	})

	t.Run("menu visible from the start", func(t *testing.T) {
		options := strict()
		options.IsolateGroups = false
		h := newHarness(t, feedList, stubFetcher{}, options)
		h.Page.RemoveClass(page.BodySelector, page.MenuHiddenClass)

		report := run(h)
		assert.False(t, passed(t, report, "The Menu", "is hidden by default"))
	})
}

func TestRunnerRecoversPanics(t *testing.T) {
	h := newHarness(t, nil, stubFetcher{}, strict())
	groups := []specs.Group{
		{
			Name: "bodies",
			Checks: []specs.Check{
				{Name: "panics", Body: func(gomega.Gomega) { panic("broken body") }},
				{Name: "passes", Body: func(g gomega.Gomega) { g.Expect(true).To(gomega.BeTrue()) }},
			},
		},
		{
			Name:       "hooks",
			BeforeEach: func(context.Context) error { panic("broken hook") },
			Checks: []specs.Check{
				{Name: "never runs", Body: func(gomega.Gomega) { t.Error("body ran after a failed hook") }},
			},
		},
	}

	report := specs.NewRunner(h).Run(context.Background(), groups)
	require.Len(t, report.Results, 3)

	result, _ := report.Find("bodies", "panics")
	assert.Equal(t, "panic: broken body", result.Failure)
	assert.True(t, passed(t, report, "bodies", "passes"))

	result, _ = report.Find("hooks", "never runs")
	assert.Equal(t, "beforeEach: panic: broken hook", result.Failure)
}

func TestWhitespaceFieldsAreNotEmpty(t *testing.T) {
	feedList := []models.Feed{{Name: " ", URL: " "}}
	h := newHarness(t, feedList, stubFetcher{}, strict())

	report := run(h)
	assert.True(t, passed(t, report, "RSS Feeds", "have urls that are defined and not empty"))
	assert.True(t, passed(t, report, "RSS Feeds", "have names that are defined and not empty"))
	assert.NoError(t, h.Registry.Validate())
}
