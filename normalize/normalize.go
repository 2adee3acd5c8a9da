package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-cycling/models"
	"github.com/aluiziolira/go-scrape-cycling/parser"
)

// StageResult is one fetched result page awaiting normalization.
type StageResult struct {
	Target models.StageTarget
	Table  *parser.Table
	Meta   models.RaceMetadata
}

// Issue records a cell that could not be coerced to its target type. The
// row is kept; the raw value stays available under Extra.
type Issue struct {
	Target models.StageTarget
	Field  string
	Raw    string
}

// Normalize reconciles all fetched row-sets into one table: column types
// coerced, rider names stripped of team names, time placeholders filled,
// races tiered, rows sorted by race date ascending. Coercion failures never
// drop a row; each is reported as an Issue.
func Normalize(results []StageResult, tiers models.TierTable) (models.Dataset, []Issue) {
	if tiers == nil {
		tiers = models.DefaultTierTable()
	}

	var (
		rows   []models.ResultRow
		issues []Issue
	)
	for _, result := range results {
		stageRows, stageIssues := normalizeStage(result, tiers)
		rows = append(rows, stageRows...)
		issues = append(issues, stageIssues...)
	}

	// Stable sort keeps fetch order within a date, so rows of one race stay
	// together in table order.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	return models.Dataset{Rows: rows}, issues
}

func normalizeStage(result StageResult, tiers models.TierTable) ([]models.ResultRow, []Issue) {
	var issues []Issue
	report := func(field, raw string) {
		issues = append(issues, Issue{Target: result.Target, Field: field, Raw: raw})
	}

	date, startTime, distance, avgSpeed, category := parseMeta(result, report)

	timeCol := columnNamed(result.Table.Columns, "time")
	times := make([]string, len(result.Table.Rows))
	for i, row := range result.Table.Rows {
		times[i] = row[timeCol]
	}
	times = ForwardFillTimes(times)

	rows := make([]models.ResultRow, 0, len(result.Table.Rows))
	for i, raw := range result.Table.Rows {
		row := models.ResultRow{
			Slug:      result.Target.Slug,
			Year:      result.Target.Year,
			Stage:     result.Target.Stage,
			RaceType:  result.Target.Type(),
			Tier:      tiers.Classify(result.Target.Slug),
			Time:      times[i],
			Date:      date,
			StartTime: startTime,
			Distance:  distance,
			AvgSpeed:  avgSpeed,
			Category:  category,
			Extra:     map[string]string{},
		}

		for _, col := range result.Table.Columns {
			value := raw[col]
			switch canonicalColumn(col) {
			case "rank":
				row.Rank = CoerceRank(value)
			case "rider":
				row.Rider = value
			case "team":
				row.Team = value
			case "bib":
				row.Bib = value
			case "age":
				if value == "" {
					continue
				}
				age, err := strconv.Atoi(strings.TrimSpace(value))
				if err != nil {
					report("age", value)
					row.Extra[col] = value
					continue
				}
				row.Age = age
			case "uci":
				if pts, ok := parsePoints(col, value, &row, report); ok {
					row.UCIPoints = pts
				}
			case "points":
				if pts, ok := parsePoints(col, value, &row, report); ok {
					row.Points = pts
				}
			case "bonus":
				row.BonusSeconds = ParseBonusSeconds(value)
			case "gap":
				lag, err := ParseLagSeconds(value)
				if err != nil {
					report("gap", value)
					row.Extra[col] = value
					continue
				}
				row.GapSeconds = lag
			case "time":
				// Already consumed by the forward-fill pass.
			default:
				if value != "" {
					row.Extra[col] = value
				}
			}
		}

		row.Rider = StripTeam(row.Rider, row.Team)
		rows = append(rows, row)
	}
	return rows, issues
}

func parsePoints(col, value string, row *models.ResultRow, report func(field, raw string)) (float64, bool) {
	if strings.TrimSpace(value) == "" {
		return 0, false
	}
	pts, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		report(col, value)
		row.Extra[col] = value
		return 0, false
	}
	return pts, true
}

// parseMeta pulls the typed fields out of the info-panel metadata. Label
// spellings vary page to page, so each field probes its known variants.
func parseMeta(result StageResult, report func(field, raw string)) (date time.Time, startTime string, distance, avgSpeed float64, category string) {
	if raw, ok := metaValue(result.Meta, "Date"); ok {
		parsed, err := ParseDate(raw)
		if err != nil {
			report("Date", raw)
		} else {
			date = parsed
		}
	}
	startTime, _ = metaValue(result.Meta, "Start time", "Starttime")
	if raw, ok := metaValue(result.Meta, "Distance"); ok {
		value, err := parseLeadingFloat(raw)
		if err != nil {
			report("Distance", raw)
		} else {
			distance = value
		}
	}
	if raw, ok := metaValue(result.Meta, "Avg. speed winner", "Avg speed winner"); ok {
		value, err := parseLeadingFloat(raw)
		if err != nil {
			report("Avg. speed winner", raw)
		} else {
			avgSpeed = value
		}
	}
	category, _ = metaValue(result.Meta, "Race category", "Classification", "Race class")
	return date, startTime, distance, avgSpeed, category
}

func metaValue(meta models.RaceMetadata, labels ...string) (string, bool) {
	for _, label := range labels {
		if value, ok := meta[label]; ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

// canonicalColumn maps a scraped column header onto the normalizer's
// vocabulary. Headers differ slightly across pages and years.
func canonicalColumn(header string) string {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "rnk", "rank", "pos":
		return "rank"
	case "rider":
		return "rider"
	case "team":
		return "team"
	case "bib":
		return "bib"
	case "age":
		return "age"
	case "uci":
		return "uci"
	case "pnt", "points":
		return "points"
	case "bonis", "bonus":
		return "bonus"
	case "timelag", "time lag", "gap":
		return "gap"
	case "time":
		return "time"
	default:
		return ""
	}
}

// columnNamed finds the page's header for a canonical column, or returns an
// empty string when the page lacks it.
func columnNamed(columns []string, canonical string) string {
	for _, col := range columns {
		if canonicalColumn(col) == canonical {
			return col
		}
	}
	return ""
}
