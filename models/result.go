package models

import "time"

// RaceMetadata holds the label/value pairs scraped from a race's info panel.
// Keys vary page to page; there is no fixed schema.
type RaceMetadata map[string]string

// ResultRow is one finisher/entrant of one race or stage, joined with the
// race metadata it was scraped alongside.
type ResultRow struct {
	// Race tags.
	Slug     string   `csv:"race" json:"race"`
	Year     int      `csv:"year" json:"year"`
	Stage    int      `csv:"stage" json:"stage"` // 0 for one-day races
	RaceType RaceType `csv:"race_type" json:"race_type"`
	Tier     Tier     `csv:"tier" json:"tier"`

	// Table columns.
	Rank      Rank    `csv:"rank" json:"rank"`
	Rider     string  `csv:"rider" json:"rider"`
	Team      string  `csv:"team" json:"team"`
	Bib       string  `csv:"bib" json:"bib"`
	Age       int     `csv:"age" json:"age"`
	UCIPoints float64 `csv:"uci_points" json:"uci_points"`
	Points    float64 `csv:"points" json:"points"`

	// Time columns. Time is the elapsed-time string after forward-filling
	// same-time placeholders; GapSeconds is the deficit behind the leader;
	// BonusSeconds is the stage-placement bonus.
	Time         string `csv:"time" json:"time"`
	GapSeconds   int    `csv:"gap_seconds" json:"gap_seconds"`
	BonusSeconds int    `csv:"bonus_seconds" json:"bonus_seconds"`

	// Metadata-derived fields.
	Date      time.Time `csv:"date" json:"date"`
	StartTime string    `csv:"start_time" json:"start_time"`
	Distance  float64   `csv:"distance_km" json:"distance_km"`
	AvgSpeed  float64   `csv:"avg_speed" json:"avg_speed"`
	Category  string    `csv:"category" json:"category"`

	// Extra keeps table cells whose column the normalizer does not recognize,
	// keyed by column header.
	Extra map[string]string `csv:"-" json:"extra,omitempty"`
}

// Dataset is the normalized table: all rows of a run, sorted by race date
// ascending, with column types reconciled across pages.
type Dataset struct {
	Rows []ResultRow
}

// Skip records one race or target dropped from a run, with its reason.
type Skip struct {
	Slug   string
	Year   int
	Stage  int // 0 when the whole race was skipped
	Reason string
}

// RunSummary holds the overall outcome of a harvesting run.
type RunSummary struct {
	StartTime time.Time
	EndTime   time.Time

	RaceCount   int
	TargetCount int
	RowCount    int

	FetchCount   int
	ErrorCount   int
	ErrorsByType map[string]int

	Skipped        []Skip
	CoercionIssues int
	Cancelled      bool
}
