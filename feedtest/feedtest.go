// Package feedtest serves fixed RSS documents for tests
package feedtest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"feedreader/models"
)

// Item is one item of a fixture feed
type Item struct {
	Title       string
	Link        string
	Description string
}

// Server is an httptest.Server answering /feeds/{name} with an RSS document
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	feeds  map[string][]Item
	status map[string]int
	delay  map[string]time.Duration
	hits   map[string]int
}

// NewServer starts a fixture server with the "alpha" and "beta" feeds, whose
// items have different titles.
func NewServer() *Server {
	s := &Server{
		feeds: map[string][]Item{
			"alpha": {
				{Title: "Alpha one", Link: "http://example.com/alpha/1", Description: "<p>The <b>first</b> alpha story</p>"},
				{Title: "Alpha two", Link: "http://example.com/alpha/2", Description: "The second alpha story"},
				{Title: "Alpha three", Link: "http://example.com/alpha/3", Description: "The third alpha story"},
			},
			"beta": {
				{Title: "Beta one", Link: "http://example.com/beta/1", Description: "The first beta story"},
				{Title: "Beta two", Link: "http://example.com/beta/2", Description: "The second beta story"},
			},
		},
		status: map[string]int{},
		delay:  map[string]time.Duration{},
		hits:   map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Feed returns a descriptor pointing at the named fixture feed
func (s *Server) Feed(displayName, name string) models.Feed {
	return models.Feed{Name: displayName, URL: s.URL + "/feeds/" + name}
}

// Feeds returns descriptors for alpha and beta, in that order
func (s *Server) Feeds() []models.Feed {
	return []models.Feed{s.Feed("Alpha", "alpha"), s.Feed("Beta", "beta")}
}

// SetItems replaces the items of the named feed
func (s *Server) SetItems(name string, items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[name] = items
}

// SetStatus makes the named feed answer with status instead of a document.
// A zero status restores normal behavior.
func (s *Server) SetStatus(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[name] = status
}

// SetDelay makes the named feed wait d before answering
func (s *Server) SetDelay(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[name] = d
}

// Hits returns how many requests the named feed received
func (s *Server) Hits(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/feeds/")

	s.mu.Lock()
	s.hits[name]++
	items, ok := s.feeds[name]
	status := s.status[name]
	delay := s.delay[name]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	fmt.Fprint(w, RSS(name, items))
}

// RSS renders an RSS 2.0 document
func RSS(title string, items []Item) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0"><channel>`)
	fmt.Fprintf(&b, "<title>%s</title><link>http://example.com/%s</link><description>%s fixture</description>",
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(title))
	for _, item := range items {
		fmt.Fprintf(&b, "<item><title>%s</title><link>%s</link><guid>%s</guid><description>%s</description><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>",
			html.EscapeString(item.Title),
			html.EscapeString(item.Link),
			html.EscapeString(item.Link),
			html.EscapeString(item.Description),
		)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}
