package models

import "time"

// Feed is a named source with a retrieval address
type Feed struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Entry is one item of a loaded feed
type Entry struct {
	FeedURL   string    `json:"feedUrl"`
	GUID      string    `json:"guid"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Snippet   string    `json:"snippet"`
	Language  string    `json:"language,omitempty"`
	Published time.Time `json:"published"`
}

// LoadEvent fired when a feed load completes, successfully or not
type LoadEvent struct {
	Index    int    `json:"index"`
	Feed     Feed   `json:"feed"`
	Entries  int    `json:"entries"`
	Rendered bool   `json:"rendered"`
	Error    string `json:"error,omitempty"`
}
