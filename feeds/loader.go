package feeds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"feedreader/models"

	log "github.com/sirupsen/logrus"
)

// Renderer replaces the rendered entries with those of feed
type Renderer interface {
	Render(feed models.Feed, entries []models.Entry)
}

// EntryStore caches fetched entries per feed
type EntryStore interface {
	SaveEntries(ctx context.Context, feedURL string, entries []models.Entry) error
	GetEntries(ctx context.Context, feedURL string, limit int) ([]models.Entry, error)
}

// LoaderConfig holds the optional collaborators of a Loader
type LoaderConfig struct {
	MaxEntries int
	Store      EntryStore
	Tagger     *LanguageTagger
	// OnComplete is called once per load, after rendering
	OnComplete func(LoadResult)
}

// LoadResult describes a finished load
type LoadResult struct {
	Index     int
	Feed      models.Feed
	Entries   []models.Entry
	Rendered  bool
	FromCache bool
	Err       error
}

// Event converts the result into its wire form
func (r LoadResult) Event() models.LoadEvent {
	event := models.LoadEvent{
		Index:    r.Index,
		Feed:     r.Feed,
		Entries:  len(r.Entries),
		Rendered: r.Rendered,
	}
	if r.Err != nil {
		event.Error = r.Err.Error()
	}
	return event
}

// Pending is the handle of a load in progress
type Pending struct {
	done   chan struct{}
	result LoadResult
}

// Done is closed when the load has completed
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the load completes or ctx is done. The returned error is
// the load error, or the context error if waiting was abandoned.
func (p *Pending) Wait(ctx context.Context) (LoadResult, error) {
	select {
	case <-p.done:
		return p.result, p.result.Err
	case <-ctx.Done():
		return LoadResult{}, ctx.Err()
	}
}

// Loader fetches feeds from a registry and renders their entries. Loads run
// concurrently; the most recently started load that succeeds wins the
// container, older loads completing later are not rendered.
type Loader struct {
	registry *Registry
	fetcher  Fetcher
	renderer Renderer
	config   LoaderConfig

	mu         sync.Mutex
	generation uint64
	rendered   uint64

	wg sync.WaitGroup
}

func NewLoader(registry *Registry, fetcher Fetcher, renderer Renderer, config LoaderConfig) *Loader {
	return &Loader{
		registry: registry,
		fetcher:  fetcher,
		renderer: renderer,
		config:   config,
	}
}

// Registry returns the registry the loader reads from
func (l *Loader) Registry() *Registry {
	return l.registry
}

// Load starts loading the feed at index and returns immediately
func (l *Loader) Load(ctx context.Context, index int) *Pending {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.mu.Unlock()

	p := &Pending{done: make(chan struct{})}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		p.result = l.load(ctx, index, gen)
		close(p.done)

		if l.config.OnComplete != nil {
			l.config.OnComplete(p.result)
		}
	}()

	return p
}

// LoadFeed starts loading the feed at index. onComplete, when not nil, is
// invoked exactly once after the load finished, whether it succeeded or not.
func (l *Loader) LoadFeed(index int, onComplete func()) {
	p := l.Load(context.Background(), index)
	if onComplete == nil {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		<-p.Done()
		onComplete()
	}()
}

// Wait blocks until every started load and callback has finished
func (l *Loader) Wait() {
	l.wg.Wait()
}

func (l *Loader) load(ctx context.Context, index int, gen uint64) LoadResult {
	start := time.Now()
	defer func() { loadDuration.Observe(time.Since(start).Seconds()) }()

	result := LoadResult{Index: index}

	feed, err := l.registry.At(index)
	if err != nil {
		loadsTotal.WithLabelValues(statusFailed).Inc()
		result.Err = err
		return result
	}
	result.Feed = feed

	entries, err := l.fetcher.Fetch(ctx, feed)
	if err != nil {
		cached, cacheErr := l.cached(ctx, feed)
		if cacheErr != nil || len(cached) == 0 {
			loadsTotal.WithLabelValues(statusFailed).Inc()
			log.WithFields(log.Fields{
				"feed":  feed.Name,
				"index": index,
				"error": err,
			}).Error("Error loading feed")
			result.Err = err
			return result
		}

		log.WithFields(log.Fields{
			"feed":    feed.Name,
			"entries": len(cached),
			"error":   err,
		}).Warn("Fetching feed failed, rendering cached entries")
		entries = cached
		result.FromCache = true
	} else {
		entries = l.prepare(ctx, feed, entries)
	}
	result.Entries = entries

	result.Rendered = l.render(gen, feed, entries)

	status := statusRendered
	switch {
	case !result.Rendered:
		status = statusStale
	case result.FromCache:
		status = statusCached
	}
	loadsTotal.WithLabelValues(status).Inc()

	log.WithFields(log.Fields{
		"feed":     feed.Name,
		"index":    index,
		"entries":  len(entries),
		"rendered": result.Rendered,
		"latency":  time.Since(start),
	}).Info("Loaded feed")

	return result
}

// prepare truncates, tags and caches freshly fetched entries
func (l *Loader) prepare(ctx context.Context, feed models.Feed, entries []models.Entry) []models.Entry {
	if l.config.MaxEntries > 0 && len(entries) > l.config.MaxEntries {
		entries = entries[:l.config.MaxEntries]
	}

	l.config.Tagger.Tag(entries)

	if l.config.Store != nil {
		if err := l.config.Store.SaveEntries(ctx, feed.URL, entries); err != nil {
			log.WithFields(log.Fields{
				"feed":  feed.Name,
				"error": err,
			}).Warn("Error caching entries")
		}
	}
	return entries
}

func (l *Loader) cached(ctx context.Context, feed models.Feed) ([]models.Entry, error) {
	if l.config.Store == nil {
		return nil, errors.New("no entry store configured")
	}

	entries, err := l.config.Store.GetEntries(ctx, feed.URL, l.config.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("error reading cached entries: %w", err)
	}
	return entries, nil
}

// render hands the entries to the renderer unless a newer load has rendered already
func (l *Loader) render(gen uint64, feed models.Feed, entries []models.Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen < l.rendered {
		return false
	}
	l.rendered = gen

	if l.renderer != nil {
		l.renderer.Render(feed, entries)
	}
	entriesRendered.Set(float64(len(entries)))
	return true
}
