package blockguard

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// challengePhrases are matched against folded lowercase page text. The site
// serves interstitials in the visitor's locale, so both Turkish and English
// renderings are listed; folding makes the Turkish entries diacritic-proof.
var challengePhrases = []string{
	"robot olmadiginizi dogrulayin",
	"guvenlik dogrulamasi",
	"erisim engellendi",
	"olagandisi trafik",
	"cok fazla istek",
	"verify you are human",
	"verify you are not a robot",
	"access denied",
	"unusual traffic",
	"too many requests",
	"captcha",
	"attention required",
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldLower(s string) string {
	folded, _, err := transform.String(foldChain, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// ScanDocument checks a rendered page for challenge or rate-limit wording.
// It returns the phrase that matched so the raise can be attributed.
func ScanDocument(doc *goquery.Document) (string, bool) {
	if doc == nil {
		return "", false
	}
	haystack := foldLower(doc.Find("title").Text() + " " + doc.Find("body").Text())
	for _, phrase := range challengePhrases {
		if strings.Contains(haystack, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// ScanHTML is ScanDocument over raw markup, for callers holding a string.
func ScanHTML(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Unparseable markup is scanned as plain text rather than skipped.
		haystack := foldLower(html)
		for _, phrase := range challengePhrases {
			if strings.Contains(haystack, phrase) {
				return phrase, true
			}
		}
		return "", false
	}
	return ScanDocument(doc)
}
