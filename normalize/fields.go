// Package normalize reconciles parsed row-sets into one typed table.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-cycling/models"
)

// CoerceRank converts a rank cell to its tagged form: numeric for
// finishers, the verbatim token ("DNF", "DNS", "OTL", ...) otherwise.
// Non-finishers are never dropped or forced to a number.
func CoerceRank(raw string) models.Rank {
	trimmed := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return models.NumericRank(n)
	}
	return models.StatusRank(trimmed)
}

// StripTeam removes the team name embedded in a scraped rider cell. The
// site renders the cell as the rider's name with the team name concatenated
// after it, so the exact team substring is removed and whitespace trimmed.
// Substring removal, not a delimiter split: a rider whose name contained
// their team's name would be corrupted. No such collision is known.
func StripTeam(rider, team string) string {
	if team == "" {
		return strings.TrimSpace(rider)
	}
	return strings.TrimSpace(strings.Replace(rider, team, "", 1))
}

var concreteTimeRe = regexp.MustCompile(`^\d+(:\d{2})*$`)

// concreteTime reports whether a time cell holds an actual value rather
// than the site's "same time as previous rider" placeholder of repeated
// separator characters (e.g. ",,00").
func concreteTime(raw string) bool {
	return concreteTimeRe.MatchString(strings.TrimSpace(raw))
}

// ForwardFillTimes resolves same-time placeholders: each placeholder cell
// inherits the most recently seen concrete time in table order. Rows before
// the first concrete value are left untouched. Applying the fill to already
// filled data is a no-op.
func ForwardFillTimes(times []string) []string {
	filled := make([]string, len(times))
	last := ""
	for i, raw := range times {
		if concreteTime(raw) {
			last = strings.TrimSpace(raw)
			filled[i] = last
			continue
		}
		if last == "" {
			filled[i] = raw
			continue
		}
		filled[i] = last
	}
	return filled
}

var bonusRe = regexp.MustCompile(`(\d+)`)

// ParseBonusSeconds extracts the numeric bonus from a composite bonus cell
// (rendered like `10"`). Absent or non-numeric cells yield zero.
func ParseBonusSeconds(raw string) int {
	m := bonusRe.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// ParseLagSeconds converts a "minutes:seconds behind leader" cell (or
// h:mm:ss for long deficits) into total seconds. Empty cells, dashes and
// placeholders denote the leader or an unpublished lag and yield zero.
func ParseLagSeconds(raw string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "+"))
	if trimmed == "" || trimmed == "-" || !concreteTime(trimmed) {
		return 0, nil
	}

	total := 0
	for _, part := range strings.Split(trimmed, ":") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid time lag %q", raw)
		}
		total = total*60 + n
	}
	return total, nil
}

var ordinalRe = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\b`)

var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"2006-01-02",
}

// ParseDate parses the info panel's day-month-year date. Ordinal suffixes
// ("13th July 2021") are tolerated.
func ParseDate(raw string) (time.Time, error) {
	cleaned := strings.TrimSpace(ordinalRe.ReplaceAllString(raw, "$1"))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parseLeadingFloat pulls the numeric part out of a unit-suffixed value
// such as "183.5 km" or "41.2 km/h".
func parseLeadingFloat(raw string) (float64, error) {
	m := numberRe.FindString(raw)
	if m == "" {
		return 0, fmt.Errorf("no number in %q", raw)
	}
	return strconv.ParseFloat(m, 64)
}
