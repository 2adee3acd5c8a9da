// Package parser extracts race data from pages of the statistics site.
// Functions here are pure: they take page content and return structured
// values, leaving fetching and run control to the pipeline.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-cycling/models"
)

// ParseError indicates expected markup was absent or malformed on a page.
type ParseError struct {
	Page   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Page, e.Reason)
}

func document(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}
	return doc, nil
}

// ParseRaceIndex extracts every race link from an index page. Links encode
// race/{slug}/{year} with an optional trailing status segment marking the
// race cancelled; the cancelled flag is carried through so the caller can
// filter. A page without race links yields an empty slice.
func ParseRaceIndex(body []byte) ([]models.RaceRef, error) {
	doc, err := document(body)
	if err != nil {
		return nil, err
	}

	var refs []models.RaceRef
	doc.Find(`a[href^="race/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, ok := parseRaceLink(href)
		if !ok {
			return
		}
		refs = append(refs, ref)
	})
	return refs, nil
}

func parseRaceLink(href string) (models.RaceRef, bool) {
	parts := strings.Split(strings.Trim(href, "/"), "/")
	if len(parts) < 3 || len(parts) > 4 || parts[0] != "race" {
		return models.RaceRef{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return models.RaceRef{}, false
	}
	return models.RaceRef{
		Slug:      parts[1],
		Year:      year,
		Cancelled: len(parts) == 4,
	}, true
}

var stageLabelRe = regexp.MustCompile(`\bStage\s+(\d+)`)

// ParseStageCount infers a race's stage count from its stage-selector
// labels. The maximum numbered stage wins; a page without numeric stage
// labels is a one-day race and counts as a single stage.
func ParseStageCount(body []byte) (int, error) {
	doc, err := document(body)
	if err != nil {
		return 0, err
	}

	count := 0
	doc.Find("select option").Each(func(_ int, sel *goquery.Selection) {
		m := stageLabelRe.FindStringSubmatch(sel.Text())
		if m == nil {
			return
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		if n > count {
			count = n
		}
	})

	if count == 0 {
		return 1, nil
	}
	return count, nil
}
