// Package page models the feed reader page as an HTML document. Behaviour is
// attached to CSS selectors and triggered by simulated clicks, and rendered
// state is read back through selectors, the way a browser test would.
package page

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"feedreader/models"

	"github.com/PuerkitoBio/goquery"
)

// Selectors and marker classes of the page
const (
	MenuHiddenClass = "menu-hidden"

	BodySelector          = "body"
	MenuIconSelector      = ".menu-icon-link"
	HeaderTitleSelector   = ".header-title"
	FeedListSelector      = ".feed-list"
	FeedLinkSelector      = ".feed-list .feed-link"
	FeedContainerSelector = ".feed"
	EntrySelector         = ".entry"
)

// ErrNoElement is returned when a click selector matches nothing
var ErrNoElement = errors.New("no element matches selector")

//go:embed templates/index.html
var indexHTML string

var (
	entryTemplate = template.Must(template.New("entry").Parse(
		`<a class="entry-link" href="{{.Link}}"><article class="entry"{{with .Language}} lang="{{.}}"{{end}}><h2>{{.Title}}</h2><p>{{.Snippet}}</p></article></a>`,
	))
	feedLinkTemplate = template.Must(template.New("feed-link").Parse(
		`<li><a href="#" class="feed-link" data-id="{{.ID}}">{{.Name}}</a></li>`,
	))
)

// Event describes the element a click was dispatched to
type Event struct {
	Selector string
	Text     string
	Attrs    map[string]string
}

// Data returns the value of the data-<key> attribute of the target
func (e Event) Data(key string) string {
	return e.Attrs["data-"+key]
}

// Handler reacts to a click on an element matching its selector
type Handler func(p *Page, e Event)

type binding struct {
	selector string
	handler  Handler
}

// Page is a feed reader document. It is safe for concurrent use.
type Page struct {
	mu         sync.RWMutex
	doc        *goquery.Document
	bindings   []binding
	resetHooks []func(p *Page)
}

// New parses the page template into a fresh document
func New() (*Page, error) {
	doc, err := parse()
	if err != nil {
		return nil, err
	}
	return &Page{doc: doc}, nil
}

func parse() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexHTML))
	if err != nil {
		return nil, fmt.Errorf("error parsing page template: %w", err)
	}
	return doc, nil
}

// Reset replaces the document with a fresh copy of the template and runs the
// reset hooks. Click bindings are kept.
func (p *Page) Reset() error {
	doc, err := parse()
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.doc = doc
	hooks := append([]func(*Page){}, p.resetHooks...)
	p.mu.Unlock()

	for _, hook := range hooks {
		hook(p)
	}
	return nil
}

// OnReset registers a function that runs after every Reset
func (p *Page) OnReset(hook func(p *Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetHooks = append(p.resetHooks, hook)
}

// On registers handler for clicks on elements matching selector. Bindings are
// delegated: they apply to matching elements added later as well.
func (p *Page) On(selector string, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindings = append(p.bindings, binding{selector: selector, handler: handler})
}

// Click dispatches a click to every element matching selector, calling the
// handlers bound to it in registration order.
func (p *Page) Click(selector string) error {
	type dispatch struct {
		event   Event
		handler Handler
	}

	p.mu.RLock()
	var queue []dispatch
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		event := Event{Selector: selector, Text: strings.TrimSpace(s.Text()), Attrs: map[string]string{}}
		for _, attr := range s.Nodes[0].Attr {
			event.Attrs[attr.Key] = attr.Val
		}
		for _, b := range p.bindings {
			if s.Is(b.selector) {
				queue = append(queue, dispatch{event: event, handler: b.handler})
			}
		}
	})
	matched := p.doc.Find(selector).Length()
	p.mu.RUnlock()

	if matched == 0 {
		return fmt.Errorf("%w: %s", ErrNoElement, selector)
	}

	// Handlers run unlocked so they can change the page
	for _, d := range queue {
		d.handler(p, d.event)
	}
	return nil
}

// HasClass reports whether the first element matching selector has class
func (p *Page) HasClass(selector, class string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Find(selector).First().HasClass(class)
}

// Classes returns the class attribute of the first element matching selector
func (p *Page) Classes(selector string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	class, _ := p.doc.Find(selector).First().Attr("class")
	return class
}

// AddClass adds class to every element matching selector
func (p *Page) AddClass(selector, class string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(selector).AddClass(class)
}

// RemoveClass removes class from every element matching selector
func (p *Page) RemoveClass(selector, class string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(selector).RemoveClass(class)
}

// ToggleClass flips class on every element matching selector
func (p *Page) ToggleClass(selector, class string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(selector).ToggleClass(class)
}

// Count returns the number of elements matching selector
func (p *Page) Count(selector string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Find(selector).Length()
}

// Text returns the whitespace-normalized text of the first element matching selector
func (p *Page) Text(selector string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return normalize(p.doc.Find(selector).First().Text())
}

// Texts returns the rendered text of every element matching selector. Child
// elements are separated by a newline, like a browser's innerText.
func (p *Page) Texts(selector string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	texts := []string{}
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		children := s.Children()
		if children.Length() == 0 {
			texts = append(texts, normalize(s.Text()))
			return
		}
		parts := children.Map(func(_ int, c *goquery.Selection) string {
			return normalize(c.Text())
		})
		texts = append(texts, strings.Join(parts, "\n"))
	})
	return texts
}

// HTML serializes the whole document
func (p *Page) HTML() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Html()
}

// Render replaces the container's entries with entries and shows the feed name
// as the header title.
func (p *Page) Render(feed models.Feed, entries []models.Entry) {
	var b strings.Builder
	for _, entry := range entries {
		// Executing into a strings.Builder only fails on template bugs
		_ = entryTemplate.Execute(&b, entry)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.doc.Find(HeaderTitleSelector).SetText(feed.Name)
	container := p.doc.Find(FeedContainerSelector)
	container.Empty()
	container.AppendHtml(b.String())
}

// RenderFeedList replaces the menu's feed list with one link per feed
func (p *Page) RenderFeedList(feeds []models.Feed) {
	var b strings.Builder
	for i, feed := range feeds {
		_ = feedLinkTemplate.Execute(&b, struct {
			ID   int
			Name string
		}{ID: i, Name: feed.Name})
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.doc.Find(FeedListSelector)
	list.Empty()
	list.AppendHtml(b.String())
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
