package feeds

import (
	"context"
	"sync"

	"feedreader/models"

	log "github.com/sirupsen/logrus"
)

// FetchResult is the outcome of fetching one feed of a batch
type FetchResult struct {
	Index   int
	Feed    models.Feed
	Entries []models.Entry
	Err     error
}

type fetchJob struct {
	index int
	feed  models.Feed
}

// FetchPool fetches many feeds with a fixed number of workers
type FetchPool struct {
	fetcher    Fetcher
	maxWorkers int
}

func NewFetchPool(fetcher Fetcher, maxWorkers int) *FetchPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &FetchPool{fetcher: fetcher, maxWorkers: maxWorkers}
}

// FetchAll fetches every feed and returns the results in the order of feeds.
// Feeds not yet started when ctx is done fail with the context error.
func (fp *FetchPool) FetchAll(ctx context.Context, feeds []models.Feed) []FetchResult {
	results := make([]FetchResult, len(feeds))
	workerQueue := make(chan fetchJob)

	var wg sync.WaitGroup
	for i := 0; i < fp.maxWorkers && i < len(feeds); i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for job := range workerQueue {
				entries, err := fp.fetcher.Fetch(ctx, job.feed)
				if err != nil {
					log.WithFields(log.Fields{
						"worker": id,
						"feed":   job.feed.Name,
						"error":  err,
					}).Debug("Error fetching feed")
				}
				results[job.index] = FetchResult{Index: job.index, Feed: job.feed, Entries: entries, Err: err}
			}
		}(i)
	}

	for i, feed := range feeds {
		select {
		case workerQueue <- fetchJob{index: i, feed: feed}:
		case <-ctx.Done():
			results[i] = FetchResult{Index: i, Feed: feed, Err: ctx.Err()}
		}
	}
	close(workerQueue)
	wg.Wait()

	return results
}
