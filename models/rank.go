package models

import (
	"encoding/json"
	"strconv"
)

// Rank is the finishing position of a row. On the source site the rank cell
// is numeric for finishers but becomes a status token ("DNF", "DNS", "OTL",
// "DSQ", ...) when a rider did not complete the race, so the value is a
// tagged variant: exactly one of position or status is set.
type Rank struct {
	position int
	status   string
}

// NumericRank builds a rank for a finisher at position n.
func NumericRank(n int) Rank {
	return Rank{position: n}
}

// StatusRank builds a rank carrying a non-finisher status token verbatim.
func StatusRank(token string) Rank {
	return Rank{status: token}
}

// Position returns the numeric position and true for finishers.
func (r Rank) Position() (int, bool) {
	if r.status != "" {
		return 0, false
	}
	return r.position, true
}

// Status returns the status token and true for non-finishers.
func (r Rank) Status() (string, bool) {
	if r.status == "" {
		return "", false
	}
	return r.status, true
}

// Finished reports whether the rank is numeric.
func (r Rank) Finished() bool {
	return r.status == ""
}

func (r Rank) String() string {
	if r.status != "" {
		return r.status
	}
	return strconv.Itoa(r.position)
}

// MarshalJSON encodes numeric ranks as numbers and status ranks as strings.
func (r Rank) MarshalJSON() ([]byte, error) {
	if r.status != "" {
		return json.Marshal(r.status)
	}
	return json.Marshal(r.position)
}
