package pipeline

import (
	"context"

	"github.com/aluiziolira/go-scrape-cycling/models"
	"github.com/aluiziolira/go-scrape-cycling/normalize"
	"github.com/aluiziolira/go-scrape-cycling/parser"
)

// ResultParser fetches one result page and extracts its table and metadata.
type ResultParser struct {
	fetcher PageFetcher
	pairer  parser.InfoPairer
}

// NewResultParser builds a result parser on a shared fetcher. pairer may be
// nil to use the positional label/value pairing the site's markup needs
// today.
func NewResultParser(fetcher PageFetcher, pairer parser.InfoPairer) *ResultParser {
	if pairer == nil {
		pairer = parser.AlternatingPairer{}
	}
	return &ResultParser{fetcher: fetcher, pairer: pairer}
}

// FetchResult retrieves the target's result page and parses it. A page
// whose results table is missing or empty (a withheld team-time-trial
// table, for instance) returns a parser.ParseError so the caller can skip
// just this target.
func (rp *ResultParser) FetchResult(ctx context.Context, target models.StageTarget) (normalize.StageResult, error) {
	body, err := rp.fetcher.Fetch(ctx, target.ResultPath())
	if err != nil {
		return normalize.StageResult{}, err
	}

	table, meta, err := parser.ParseResultPage(body, rp.pairer)
	if err != nil {
		return normalize.StageResult{}, err
	}

	return normalize.StageResult{Target: target, Table: table, Meta: meta}, nil
}
