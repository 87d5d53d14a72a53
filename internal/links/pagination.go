package links

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Next-control heuristics, ordered strongest to weakest. The explicit
// relation marker is authoritative; class/role conventions come second;
// visible label text across locales is the last resort.
var nextAttrSelectors = []string{
	`a[rel="next"]`,
	`link[rel="next"]`,
}

var nextClassSelectors = []string{
	`a.prevNextBut[title*="onraki"]`,
	`a.next`,
	`a.pagination-next`,
	`li.next > a`,
	`a[aria-label="Next"]`,
	`a[aria-label="Sonraki"]`,
}

// Label texts that mean "next page" on the locales we walk.
var nextLabels = []string{"sonraki", "ileri", "next", "siguiente", "weiter", "»", ">"}

// FindNext locates the pagination "next" control and returns its href.
// Heuristics are tried in order and the first hit wins; ok is false when the
// listing has no further pages.
func FindNext(doc *goquery.Document) (href string, ok bool) {
	for _, sel := range nextAttrSelectors {
		if h, found := hrefOf(doc.Find(sel).First()); found {
			return h, true
		}
	}
	for _, sel := range nextClassSelectors {
		if h, found := hrefOf(doc.Find(sel).First()); found {
			return h, true
		}
	}

	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label := strings.ToLower(strings.TrimSpace(s.Text()))
		if label == "" {
			return true
		}
		for _, want := range nextLabels {
			if label == want {
				href, found = hrefOf(s)
				return !found
			}
		}
		return true
	})
	return href, found
}

func hrefOf(s *goquery.Selection) (string, bool) {
	if s.Length() == 0 {
		return "", false
	}
	h, ok := s.Attr("href")
	h = strings.TrimSpace(h)
	if !ok || h == "" || strings.HasPrefix(h, "javascript:") || h == "#" {
		return "", false
	}
	return h, true
}
