package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/aluiziolira/go-scrape-cycling/models"
)

// LabelValue is one metadata pair from a race's info panel.
type LabelValue struct {
	Label string
	Value string
}

// InfoPairer turns the ordered text nodes of an info panel into label/value
// pairs. The site's markup carries no attribute linking a label to its
// value, only document order, so the pairing strategy is swappable in case
// the markup changes.
type InfoPairer interface {
	Pairs(sel *goquery.Selection) []LabelValue
}

// AlternatingPairer pairs text nodes positionally: the first, third,
// fifth... non-empty text node is a label and the node that follows each is
// its value. A trailing label without a value is dropped.
type AlternatingPairer struct{}

// Pairs implements InfoPairer.
func (AlternatingPairer) Pairs(sel *goquery.Selection) []LabelValue {
	var texts []string
	for _, node := range sel.Nodes {
		collectTexts(node, &texts)
	}

	pairs := make([]LabelValue, 0, len(texts)/2)
	for i := 0; i+1 < len(texts); i += 2 {
		label := strings.TrimSuffix(texts[i], ":")
		pairs = append(pairs, LabelValue{
			Label: strings.TrimSpace(label),
			Value: texts[i+1],
		})
	}
	return pairs
}

func collectTexts(node *html.Node, out *[]string) {
	if node.Type == html.TextNode {
		if text := strings.TrimSpace(node.Data); text != "" {
			*out = append(*out, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectTexts(child, out)
	}
}

// parseInfoPanel reads the race info list into metadata. A page without an
// info panel yields empty metadata, not an error; keys vary page to page.
func parseInfoPanel(doc *goquery.Document, pairer InfoPairer) models.RaceMetadata {
	if pairer == nil {
		pairer = AlternatingPairer{}
	}

	meta := models.RaceMetadata{}
	doc.Find("ul.infolist li").Each(func(_ int, li *goquery.Selection) {
		for _, pair := range pairer.Pairs(li) {
			if pair.Label == "" {
				continue
			}
			meta[pair.Label] = pair.Value
		}
	})
	return meta
}
