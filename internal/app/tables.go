package service

import (
	"github.com/okian/vibe/internal/adapters/catalog"
	"github.com/okian/vibe/internal/config"
	"github.com/okian/vibe/internal/domain/scoring"
)

// TablesFromConfig converts the scoring section into engine lookup tables.
func TablesFromConfig(cfg *config.Config) *scoring.Tables {
	sc := cfg.Scoring
	t := &scoring.Tables{
		EmotionGenres:   make(map[string][]string, len(sc.EmotionGenres)),
		FallbackGenres:  append([]string(nil), sc.FallbackGenres...),
		ContextBoosts:   make(map[string][]scoring.Boost, len(sc.ContextBoosts)),
		TimeBoosts:      make(map[scoring.TimeBucket][]scoring.Boost, len(sc.TimeBoosts)),
		DiversityGenres: append([]string(nil), sc.DiversityGenres...),
	}
	for emotion, genres := range sc.EmotionGenres {
		t.EmotionGenres[emotion] = append([]string(nil), genres...)
	}
	for emotion, boosts := range sc.ContextBoosts {
		t.ContextBoosts[emotion] = convertBoosts(boosts)
	}
	for bucket, boosts := range sc.TimeBoosts {
		t.TimeBoosts[scoring.TimeBucket(bucket)] = convertBoosts(boosts)
	}
	return t
}

func convertBoosts(in []config.Boost) []scoring.Boost {
	out := make([]scoring.Boost, len(in))
	for i, b := range in {
		out[i] = scoring.Boost{Genre: b.Genre, Weight: b.Weight}
	}
	return out
}

// CatalogFromConfig builds the in-memory catalog from the catalog section.
func CatalogFromConfig(cfg *config.Config) *catalog.InMemory {
	entries := make(map[string][]catalog.Track, len(cfg.Catalog))
	for genre, tracks := range cfg.Catalog {
		for _, t := range tracks {
			entries[genre] = append(entries[genre], catalog.Track{Title: t.Title, URL: t.URL})
		}
	}
	return catalog.NewInMemory(entries)
}
