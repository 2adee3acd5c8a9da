package pipeline

import (
	"context"

	"github.com/aluiziolira/go-scrape-cycling/models"
	"github.com/aluiziolira/go-scrape-cycling/parser"
)

// StageResolver expands a race into its per-stage fetch targets.
type StageResolver struct {
	fetcher PageFetcher
}

// NewStageResolver builds a resolver on a shared fetcher.
func NewStageResolver(fetcher PageFetcher) *StageResolver {
	return &StageResolver{fetcher: fetcher}
}

// ResolveStages fetches the race's landing page and expands it into fetch
// targets. A race whose stage selector yields no numeric labels is a
// one-day race: a single target addressed without a stage segment. A race
// with N stages yields targets 1..N.
func (sr *StageResolver) ResolveStages(ctx context.Context, ref models.RaceRef) ([]models.StageTarget, error) {
	body, err := sr.fetcher.Fetch(ctx, ref.PagePath())
	if err != nil {
		return nil, err
	}

	count, err := parser.ParseStageCount(body)
	if err != nil {
		return nil, err
	}

	if count == 1 {
		return []models.StageTarget{{Slug: ref.Slug, Year: ref.Year}}, nil
	}

	targets := make([]models.StageTarget, 0, count)
	for stage := 1; stage <= count; stage++ {
		targets = append(targets, models.StageTarget{Slug: ref.Slug, Year: ref.Year, Stage: stage})
	}
	return targets, nil
}
