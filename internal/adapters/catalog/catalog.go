// Package catalog looks up playable content for a genre.
package catalog

import "sync"

// UnknownGenreTitle is the placeholder returned for genres without content.
const UnknownGenreTitle = "Unknown Genre"

// DefaultTopN is the number of tracks returned per genre when none is requested.
const DefaultTopN = 2

// Track is one playable item.
type Track struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// InMemory is a read-mostly genre -> tracks table.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string][]Track
}

// NewInMemory copies entries into a new catalog.
func NewInMemory(entries map[string][]Track) *InMemory {
	c := &InMemory{entries: make(map[string][]Track, len(entries))}
	for g, tracks := range entries {
		c.entries[g] = append([]Track(nil), tracks...)
	}
	return c
}

// Lookup returns up to topN tracks for genre. Unknown genres yield one
// placeholder entry; topN <= 0 selects DefaultTopN.
func (c *InMemory) Lookup(genre string, topN int) []Track {
	if topN <= 0 {
		topN = DefaultTopN
	}
	c.mu.RLock()
	tracks, ok := c.entries[genre]
	c.mu.RUnlock()
	if !ok || len(tracks) == 0 {
		return []Track{{Title: UnknownGenreTitle, URL: ""}}
	}
	if len(tracks) > topN {
		tracks = tracks[:topN]
	}
	return append([]Track(nil), tracks...)
}

// Set replaces the tracks for genre.
func (c *InMemory) Set(genre string, tracks []Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[genre] = append([]Track(nil), tracks...)
}

// Genres returns the number of genres with content.
func (c *InMemory) Genres() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
