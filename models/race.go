// Package models defines data structures for the race-result harvester.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Circuit identifies a race-series category in the source site's index query.
type Circuit int

// Circuit codes accepted by the index page.
const (
	CircuitWorldTour Circuit = 1
	CircuitProSeries Circuit = 2
)

// RaceType distinguishes single-event races from multi-day races.
type RaceType string

const (
	RaceTypeOneDay RaceType = "one-day"
	RaceTypeStage  RaceType = "stage"
)

// RaceRef identifies one race listed on an index page. Slug+Year is the
// natural key for a scrape run; the same race may be listed more than once.
type RaceRef struct {
	Slug      string
	Year      int
	Cancelled bool
}

func (r RaceRef) String() string {
	return fmt.Sprintf("%s/%d", r.Slug, r.Year)
}

// PagePath returns the race's landing page path, where the stage selector lives.
func (r RaceRef) PagePath() string {
	return fmt.Sprintf("race/%s/%d", r.Slug, r.Year)
}

// IndexPath returns the index query path for a year and circuit.
func IndexPath(year int, circuit Circuit) string {
	return fmt.Sprintf("races.php?year=%d&circuit=%d&class=&filter=Filter", year, circuit)
}

// StageTarget addresses one result page to fetch. Stage 0 denotes a one-day
// race (the race's single result page carries no stage segment).
type StageTarget struct {
	Slug  string
	Year  int
	Stage int
}

// OneDay reports whether the target addresses a one-day result page.
func (t StageTarget) OneDay() bool {
	return t.Stage == 0
}

// Type returns the race type implied by the target's addressing.
func (t StageTarget) Type() RaceType {
	if t.OneDay() {
		return RaceTypeOneDay
	}
	return RaceTypeStage
}

// ResultPath builds the result page path for the target.
func (t StageTarget) ResultPath() string {
	if t.OneDay() {
		return fmt.Sprintf("race/%s/%d/result", t.Slug, t.Year)
	}
	return fmt.Sprintf("race/%s/%d/stage-%d/result", t.Slug, t.Year, t.Stage)
}

func (t StageTarget) String() string {
	if t.OneDay() {
		return fmt.Sprintf("%s/%d", t.Slug, t.Year)
	}
	return fmt.Sprintf("%s/%d/stage-%d", t.Slug, t.Year, t.Stage)
}

// ParseResultPath recovers the target addressed by a result page path.
// It is the inverse of ResultPath.
func ParseResultPath(path string) (StageTarget, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 4 || parts[0] != "race" || parts[len(parts)-1] != "result" {
		return StageTarget{}, fmt.Errorf("not a result path: %q", path)
	}

	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return StageTarget{}, fmt.Errorf("invalid year in %q: %w", path, err)
	}

	target := StageTarget{Slug: parts[1], Year: year}
	switch len(parts) {
	case 4:
		return target, nil
	case 5:
		stage, ok := strings.CutPrefix(parts[3], "stage-")
		if !ok {
			return StageTarget{}, fmt.Errorf("invalid stage segment in %q", path)
		}
		n, err := strconv.Atoi(stage)
		if err != nil || n < 1 {
			return StageTarget{}, fmt.Errorf("invalid stage number in %q", path)
		}
		target.Stage = n
		return target, nil
	default:
		return StageTarget{}, fmt.Errorf("not a result path: %q", path)
	}
}
