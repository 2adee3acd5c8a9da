// Package pipeline runs the harvesting passes: race discovery, stage
// expansion, result fetching, normalization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-cycling/config"
	"github.com/aluiziolira/go-scrape-cycling/models"
	"github.com/aluiziolira/go-scrape-cycling/normalize"
	"github.com/aluiziolira/go-scrape-cycling/parser"
)

// Runner coordinates the sequential passes over a shared fetcher. Fetch and
// parse failures below the index level never abort the run; each is
// recorded in the summary and processing continues with the remaining work.
type Runner struct {
	cfg      *config.Config
	indexer  *RaceIndexer
	resolver *StageResolver
	results  *ResultParser
	tiers    models.TierTable
}

// NewRunner builds a runner for cfg on a shared fetcher.
func NewRunner(cfg *config.Config, fetcher PageFetcher) *Runner {
	return &Runner{
		cfg:      cfg,
		indexer:  NewRaceIndexer(fetcher),
		resolver: NewStageResolver(fetcher),
		results:  NewResultParser(fetcher, nil),
		tiers:    models.DefaultTierTable(),
	}
}

// WithTiers replaces the race classification table.
func (r *Runner) WithTiers(tiers models.TierTable) *Runner {
	r.tiers = tiers
	return r
}

// Run executes the full harvest. Cancelling ctx stops the run between
// fetches; rows gathered up to that point are still normalized and
// returned, with the summary marked cancelled.
func (r *Runner) Run(ctx context.Context) (models.Dataset, *models.RunSummary, error) {
	summary := &models.RunSummary{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}

	races := r.discoverRaces(ctx, summary)
	targets := r.expandStages(ctx, races, summary)
	results := r.fetchResults(ctx, targets, summary)

	dataset, issues := normalize.Normalize(results, r.tiers)
	for _, issue := range issues {
		slog.Debug("coercion issue",
			slog.String("target", issue.Target.String()),
			slog.String("field", issue.Field),
			slog.String("raw", issue.Raw),
		)
	}

	summary.EndTime = time.Now()
	summary.RowCount = len(dataset.Rows)
	summary.CoercionIssues = len(issues)
	summary.Cancelled = ctx.Err() != nil
	return dataset, summary, nil
}

func (r *Runner) discoverRaces(ctx context.Context, summary *models.RunSummary) []models.RaceRef {
	var races []models.RaceRef
	for _, year := range r.cfg.Years {
		for _, circuit := range r.cfg.Circuits {
			if ctx.Err() != nil {
				return races
			}
			listed, err := r.indexer.ListRaces(ctx, year, circuit)
			if err != nil {
				r.skip(summary, models.Skip{
					Slug:   fmt.Sprintf("circuit-%d", circuit),
					Year:   year,
					Reason: fmt.Sprintf("index fetch failed: %v", err),
				}, "fetch")
				continue
			}
			slog.Info("indexed races",
				slog.Int("year", year),
				slog.Int("circuit", int(circuit)),
				slog.Int("races", len(listed)),
			)
			races = append(races, listed...)
		}
	}
	summary.RaceCount = len(races)
	return races
}

func (r *Runner) expandStages(ctx context.Context, races []models.RaceRef, summary *models.RunSummary) []models.StageTarget {
	var targets []models.StageTarget
	for _, ref := range races {
		if ctx.Err() != nil {
			return targets
		}
		expanded, err := r.resolver.ResolveStages(ctx, ref)
		if err != nil {
			r.skip(summary, models.Skip{
				Slug:   ref.Slug,
				Year:   ref.Year,
				Reason: fmt.Sprintf("stage resolution failed: %v", err),
			}, "fetch")
			continue
		}
		for _, target := range expanded {
			if r.cfg.IsExcluded(target) {
				r.skip(summary, models.Skip{
					Slug:   target.Slug,
					Year:   target.Year,
					Stage:  target.Stage,
					Reason: "excluded by configuration",
				}, "excluded")
				continue
			}
			targets = append(targets, target)
		}
	}
	summary.TargetCount = len(targets)
	return targets
}

func (r *Runner) fetchResults(ctx context.Context, targets []models.StageTarget, summary *models.RunSummary) []normalize.StageResult {
	var results []normalize.StageResult
	for _, target := range targets {
		if ctx.Err() != nil {
			return results
		}
		summary.FetchCount++
		result, err := r.results.FetchResult(ctx, target)
		if err != nil {
			kind := "fetch"
			var parseErr *parser.ParseError
			if errors.As(err, &parseErr) {
				kind = "parse"
			}
			r.skip(summary, models.Skip{
				Slug:   target.Slug,
				Year:   target.Year,
				Stage:  target.Stage,
				Reason: err.Error(),
			}, kind)
			continue
		}
		results = append(results, result)
	}
	return results
}

func (r *Runner) skip(summary *models.RunSummary, skip models.Skip, kind string) {
	summary.Skipped = append(summary.Skipped, skip)
	summary.ErrorsByType[kind]++
	if kind != "excluded" {
		summary.ErrorCount++
	}
	slog.Warn("skipping",
		slog.String("race", skip.Slug),
		slog.Int("year", skip.Year),
		slog.Int("stage", skip.Stage),
		slog.String("reason", skip.Reason),
	)
}
