// Package specs declares the behavioral checks of the feed reader page: the
// feed registry, the menu toggle, initial entries and new feed selection.
//
// The checks are plain data (groups of named bodies with an optional
// before-each hook) so the same declarations run under Ginkgo in tests and
// under Runner from the command line.
package specs

import (
	"context"
	"time"

	"feedreader/config"
	"feedreader/feeds"
	"feedreader/page"

	"github.com/onsi/gomega"
)

// Loader starts feed loads and can wait for all of them to finish
type Loader interface {
	Load(ctx context.Context, index int) *feeds.Pending
	Wait()
}

// Options tune how the checks run
type Options struct {
	// Mode is config.ModeStrict or config.ModeFaithful. In faithful mode the
	// first load of the new feed selection group is not awaited before the
	// first snapshot is taken, which makes that snapshot timing dependent.
	Mode string
	// IsolateGroups resets the page before every group so no group sees
	// entries rendered by another.
	IsolateGroups bool
	// CheckTimeout bounds every before-each hook
	CheckTimeout time.Duration
}

// OptionsFromConfig reads the [suite] table
func OptionsFromConfig(cfg config.TomlSuite) Options {
	return Options{
		Mode:          cfg.Mode,
		IsolateGroups: cfg.Isolated(),
		CheckTimeout:  cfg.CheckTimeout,
	}
}

// Harness holds the collaborators the checks run against
type Harness struct {
	Registry *feeds.Registry
	Page     *page.Page
	Loader   Loader
	Options  Options
}

// Element points at the first element matching Selector on Page
type Element struct {
	Page     *page.Page
	Selector string
}

// Body returns the page body
func (h *Harness) Body() Element {
	return Element{Page: h.Page, Selector: page.BodySelector}
}

// Isolate waits for outstanding loads and resets the page when groups are
// isolated. It is a no-op otherwise.
func (h *Harness) Isolate() error {
	if !h.Options.IsolateGroups {
		return nil
	}
	h.Loader.Wait()
	return h.Page.Reset()
}

// Check is one named expectation body
type Check struct {
	Name string
	Body func(g gomega.Gomega)
}

// Group is a named set of checks sharing a before-each hook
type Group struct {
	Name string
	// BeforeEach runs before every check of the group. A non-nil error fails
	// the check without running its body.
	BeforeEach func(ctx context.Context) error
	Checks     []Check
}

// Groups declares the four check groups in execution order. Every call
// returns groups with fresh state.
func Groups(h *Harness) []Group {
	return []Group{
		registryGroup(h),
		menuGroup(h),
		initialEntriesGroup(h),
		newFeedSelectionGroup(h),
	}
}

func registryGroup(h *Harness) Group {
	return Group{
		Name: "RSS Feeds",
		Checks: []Check{
			{
				Name: "are defined",
				Body: func(g gomega.Gomega) {
					g.Expect(h.Registry).NotTo(gomega.BeNil())
					g.Expect(h.Registry.Len()).NotTo(gomega.BeZero())
				},
			},
			{
				Name: "have urls that are defined and not empty",
				Body: func(g gomega.Gomega) {
					for _, feed := range h.Registry.Feeds() {
						g.Expect(feed.URL).NotTo(gomega.BeEmpty(), "feed %q has no url", feed.Name)
					}
				},
			},
			{
				Name: "have names that are defined and not empty",
				Body: func(g gomega.Gomega) {
					for _, feed := range h.Registry.Feeds() {
						g.Expect(feed.Name).NotTo(gomega.BeEmpty(), "feed %q has no name", feed.URL)
					}
				},
			},
		},
	}
}

func menuGroup(h *Harness) Group {
	return Group{
		Name: "The Menu",
		Checks: []Check{
			{
				Name: "is hidden by default",
				Body: func(g gomega.Gomega) {
					g.Expect(h.Body()).To(HaveClass(page.MenuHiddenClass))
				},
			},
			{
				Name: "changes visibility when the menu icon is clicked",
				Body: func(g gomega.Gomega) {
					g.Expect(h.Page.Click(page.MenuIconSelector)).To(gomega.Succeed())
					g.Expect(h.Body()).NotTo(HaveClass(page.MenuHiddenClass))

					g.Expect(h.Page.Click(page.MenuIconSelector)).To(gomega.Succeed())
					g.Expect(h.Body()).To(HaveClass(page.MenuHiddenClass))
				},
			},
		},
	}
}

func initialEntriesGroup(h *Harness) Group {
	return Group{
		Name: "Initial Entries",
		BeforeEach: func(ctx context.Context) error {
			_, err := h.Loader.Load(ctx, 0).Wait(ctx)
			return err
		},
		Checks: []Check{
			{
				Name: "are loaded and loadFeed function completes its work",
				Body: func(g gomega.Gomega) {
					g.Expect(h.Page.Count(page.FeedContainerSelector+" "+page.EntrySelector)).To(gomega.BeNumerically(">", 0))
				},
			},
		},
	}
}

func newFeedSelectionGroup(h *Harness) Group {
	var contentOne []string

	return Group{
		Name: "New Feed Selection",
		BeforeEach: func(ctx context.Context) error {
			if h.Options.Mode == config.ModeFaithful {
				// Fire and forget: the snapshot below races this load
				h.Loader.Load(context.WithoutCancel(ctx), 0)
			} else {
				if _, err := h.Loader.Load(ctx, 0).Wait(ctx); err != nil {
					return err
				}
			}

			contentOne = h.Page.Texts(page.EntrySelector)

			_, err := h.Loader.Load(ctx, 1).Wait(ctx)
			return err
		},
		Checks: []Check{
			{
				Name: "is loaded and content successfully changes",
				Body: func(g gomega.Gomega) {
					contentTwo := h.Page.Texts(page.EntrySelector)
					g.Expect(contentOne).NotTo(gomega.Equal(contentTwo))
				},
			},
		},
	}
}
