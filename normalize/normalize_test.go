package normalize

import (
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-cycling/models"
	"github.com/aluiziolira/go-scrape-cycling/parser"
)

func stageResult(target models.StageTarget, meta models.RaceMetadata, rows ...parser.RawRow) StageResult {
	return StageResult{
		Target: target,
		Table: &parser.Table{
			Columns: []string{"Rnk", "Rider", "Team", "Age", "UCI", "Bonis", "Timelag", "Time"},
			Rows:    rows,
		},
		Meta: meta,
	}
}

func TestNormalizeBuildsTypedRows(t *testing.T) {
	target := models.StageTarget{Slug: "tour-de-france", Year: 2021, Stage: 1}
	meta := models.RaceMetadata{
		"Date":              "26 June 2021",
		"Start time":        "12:10",
		"Distance":          "197.8 km",
		"Avg. speed winner": "44.6 km/h",
		"Race category":     "ME - Men Elite",
	}
	result := stageResult(target, meta,
		parser.RawRow{
			"Rnk": "1", "Rider": "Julian AlaphilippeDeceuninck - Quick Step",
			"Team": "Deceuninck - Quick Step", "Age": "29", "UCI": "100",
			"Bonis": `10"`, "Timelag": "0:00", "Time": "4:39:05",
		},
		parser.RawRow{
			"Rnk": "2", "Rider": "Michael MatthewsTeam BikeExchange",
			"Team": "Team BikeExchange", "Age": "30", "UCI": "70",
			"Bonis": `6"`, "Timelag": "0:12", "Time": ",,00",
		},
		parser.RawRow{
			"Rnk": "DNF", "Rider": "Chris FroomeIsrael Start-Up Nation",
			"Team": "Israel Start-Up Nation", "Age": "36", "UCI": "",
			"Bonis": "", "Timelag": "", "Time": "",
		},
	)

	dataset, issues := Normalize([]StageResult{result}, nil)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}
	if len(dataset.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(dataset.Rows))
	}

	winner := dataset.Rows[0]
	if pos, ok := winner.Rank.Position(); !ok || pos != 1 {
		t.Fatalf("winner rank = %v", winner.Rank)
	}
	if winner.Rider != "Julian Alaphilippe" {
		t.Fatalf("rider = %q, team should be stripped", winner.Rider)
	}
	if winner.BonusSeconds != 10 {
		t.Fatalf("bonus = %d, want 10", winner.BonusSeconds)
	}
	if winner.UCIPoints != 100 {
		t.Fatalf("uci = %v, want 100", winner.UCIPoints)
	}
	if winner.Date != time.Date(2021, 6, 26, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("date = %v", winner.Date)
	}
	if winner.Distance != 197.8 || winner.AvgSpeed != 44.6 {
		t.Fatalf("distance/speed = %v/%v", winner.Distance, winner.AvgSpeed)
	}
	if winner.Category != "ME - Men Elite" || winner.StartTime != "12:10" {
		t.Fatalf("category/start = %q/%q", winner.Category, winner.StartTime)
	}
	if winner.Tier != models.TierGrandTour || winner.RaceType != models.RaceTypeStage {
		t.Fatalf("tier/type = %q/%q", winner.Tier, winner.RaceType)
	}

	second := dataset.Rows[1]
	if second.Time != "4:39:05" {
		t.Fatalf("same-time placeholder not filled: %q", second.Time)
	}
	if second.GapSeconds != 12 {
		t.Fatalf("gap = %d, want 12", second.GapSeconds)
	}

	dnf := dataset.Rows[2]
	if token, ok := dnf.Rank.Status(); !ok || token != "DNF" {
		t.Fatalf("non-finisher rank = %v, must be preserved", dnf.Rank)
	}
	if dnf.Time != "4:39:05" {
		t.Fatalf("empty time cell should inherit last concrete time, got %q", dnf.Time)
	}
}

func TestNormalizeSortsByDate(t *testing.T) {
	older := stageResult(
		models.StageTarget{Slug: "milano-sanremo", Year: 2021},
		models.RaceMetadata{"Date": "20 March 2021"},
		parser.RawRow{"Rnk": "1", "Rider": "Jasper StuyvenTrek - Segafredo", "Team": "Trek - Segafredo", "Time": "6:38:06"},
	)
	newer := stageResult(
		models.StageTarget{Slug: "il-lombardia", Year: 2021},
		models.RaceMetadata{"Date": "9 October 2021"},
		parser.RawRow{"Rnk": "1", "Rider": "Tadej PogačarUAE Team Emirates", "Team": "UAE Team Emirates", "Time": "6:00:59"},
	)

	// Fetch order is newest first; the table must come out oldest first.
	dataset, _ := Normalize([]StageResult{newer, older}, nil)
	if len(dataset.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(dataset.Rows))
	}
	if dataset.Rows[0].Slug != "milano-sanremo" {
		t.Fatalf("rows not sorted by date: %q first", dataset.Rows[0].Slug)
	}
	if dataset.Rows[0].RaceType != models.RaceTypeOneDay {
		t.Fatalf("one-day race mistyped as %q", dataset.Rows[0].RaceType)
	}
	if dataset.Rows[1].Tier != models.TierMonument {
		t.Fatalf("il-lombardia tier = %q", dataset.Rows[1].Tier)
	}
}

func TestNormalizeRecordsCoercionIssues(t *testing.T) {
	target := models.StageTarget{Slug: "tour-de-pologne", Year: 2021, Stage: 2}
	result := stageResult(target,
		models.RaceMetadata{"Date": "not a date"},
		parser.RawRow{"Rnk": "1", "Rider": "Somebody", "Team": "", "Age": "young", "Time": "4:00:00"},
	)

	dataset, issues := Normalize([]StageResult{result}, nil)
	if len(dataset.Rows) != 1 {
		t.Fatalf("row with coercion problems must be retained, rows = %d", len(dataset.Rows))
	}

	fields := map[string]bool{}
	for _, issue := range issues {
		if issue.Target != target {
			t.Fatalf("issue target = %+v, want %+v", issue.Target, target)
		}
		fields[issue.Field] = true
	}
	if !fields["Date"] || !fields["age"] {
		t.Fatalf("expected Date and age issues, got %+v", issues)
	}

	row := dataset.Rows[0]
	if row.Extra["Age"] != "young" {
		t.Fatalf("raw unparseable age should be kept in Extra, got %v", row.Extra)
	}
	if !row.Date.IsZero() {
		t.Fatalf("unparseable date should stay zero, got %v", row.Date)
	}
}

func TestNormalizeCustomTiers(t *testing.T) {
	target := models.StageTarget{Slug: "strade-bianche", Year: 2021}
	result := stageResult(target,
		models.RaceMetadata{"Date": "6 March 2021"},
		parser.RawRow{"Rnk": "1", "Rider": "Mathieu van der PoelAlpecin-Fenix", "Team": "Alpecin-Fenix", "Time": "4:58:57"},
	)

	tiers := models.TierTable{"strade-bianche": models.TierMonument}
	dataset, _ := Normalize([]StageResult{result}, tiers)
	if dataset.Rows[0].Tier != models.TierMonument {
		t.Fatalf("custom tier table ignored, tier = %q", dataset.Rows[0].Tier)
	}
}
