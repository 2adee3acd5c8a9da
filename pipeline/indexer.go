package pipeline

import (
	"context"

	"github.com/aluiziolira/go-scrape-cycling/models"
	"github.com/aluiziolira/go-scrape-cycling/parser"
)

// PageFetcher is the single capability the pipeline needs from the fetch
// layer: page content for a site-relative path, with the courtesy delay
// already applied.
type PageFetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// RaceIndexer enumerates the races of one (year, circuit) index page.
type RaceIndexer struct {
	fetcher PageFetcher
}

// NewRaceIndexer builds an indexer on a shared fetcher.
func NewRaceIndexer(fetcher PageFetcher) *RaceIndexer {
	return &RaceIndexer{fetcher: fetcher}
}

// ListRaces returns every non-cancelled race listed for the year and
// circuit, first-listed order, one entry per slug+year even when the index
// page lists a race more than once. An index page with no race links yields
// an empty slice; a fetch failure propagates to the caller.
func (ix *RaceIndexer) ListRaces(ctx context.Context, year int, circuit models.Circuit) ([]models.RaceRef, error) {
	body, err := ix.fetcher.Fetch(ctx, models.IndexPath(year, circuit))
	if err != nil {
		return nil, err
	}

	refs, err := parser.ParseRaceIndex(body)
	if err != nil {
		return nil, err
	}

	type key struct {
		slug string
		year int
	}
	seen := make(map[key]struct{}, len(refs))
	races := make([]models.RaceRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Cancelled {
			continue
		}
		k := key{ref.Slug, ref.Year}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		races = append(races, ref)
	}
	return races, nil
}
