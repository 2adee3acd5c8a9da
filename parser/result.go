package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-cycling/models"
)

// RawRow is one results-table row as scraped, keyed by column header.
type RawRow map[string]string

// Table is the primary results table of one page: the column headers in
// page order plus one RawRow per entrant, in page order.
type Table struct {
	Columns []string
	Rows    []RawRow
}

// ParseResultPage extracts the results table and the info-panel metadata
// from a result page. The first table on the page is the results table; a
// page without one (or with an empty one) fails with a ParseError so the
// caller can skip the target without aborting the batch.
func ParseResultPage(body []byte, pairer InfoPairer) (*Table, models.RaceMetadata, error) {
	doc, err := document(body)
	if err != nil {
		return nil, nil, err
	}

	table, err := parseTable(doc)
	if err != nil {
		return nil, nil, err
	}

	meta := parseInfoPanel(doc, pairer)
	return table, meta, nil
}

func parseTable(doc *goquery.Document) (*Table, error) {
	sel := doc.Find("table").First()
	if sel.Length() == 0 {
		return nil, &ParseError{Page: "result", Reason: "no results table"}
	}

	var columns []string
	sel.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		columns = append(columns, strings.TrimSpace(th.Text()))
	})
	if len(columns) == 0 {
		// Some pages carry the header as the first body row.
		sel.Find("tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
			columns = append(columns, strings.TrimSpace(th.Text()))
		})
	}
	if len(columns) == 0 {
		return nil, &ParseError{Page: "result", Reason: "results table has no header row"}
	}

	table := &Table{Columns: columns}
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		row := make(RawRow, len(columns))
		cells.EachWithBreak(func(i int, td *goquery.Selection) bool {
			if i >= len(columns) {
				return false
			}
			row[columns[i]] = strings.TrimSpace(td.Text())
			return true
		})
		table.Rows = append(table.Rows, row)
	})

	if len(table.Rows) == 0 {
		return nil, &ParseError{Page: "result", Reason: "results table is empty"}
	}
	return table, nil
}
