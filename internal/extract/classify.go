package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Labels the attribute table uses for the "listed by" row, folded.
var sellerLabels = []string{"kimden", "ilan sahibi", "listed by", "seller", "from"}

var ownerKeywords = []string{"sahibinden", "sahibi", "owner", "private seller"}

var agencyKeywords = []string{
	"emlak", "gayrimenkul", "emlakcidan", "kurumsal",
	"agency", "agent", "realtor", "real estate",
}

// classifySeller resolves Owner vs Agency. The labeled detail row is
// authoritative; a keyword scan over the configured From selectors (or the
// whole page as last resort) is the fallback.
func (e *Engine) classifySeller(doc *goquery.Document, details map[string]string) Seller {
	for key, value := range details {
		if !isSellerLabel(key) {
			continue
		}
		if s := sellerFromText(value); s != SellerUnknown {
			return s
		}
	}

	if raw, ok := FirstMatch(doc, FieldSpec{Selectors: e.selectors.From.Selectors, Attr: e.selectors.From.Attr}); ok {
		if s := sellerFromText(raw); s != SellerUnknown {
			return s
		}
	}

	return sellerFromText(doc.Find("body").Text())
}

func isSellerLabel(key string) bool {
	folded := foldLower(key)
	for _, label := range sellerLabels {
		if strings.Contains(folded, label) {
			return true
		}
	}
	return false
}

func sellerFromText(text string) Seller {
	folded := foldLower(text)
	for _, kw := range agencyKeywords {
		if strings.Contains(folded, kw) {
			return SellerAgency
		}
	}
	for _, kw := range ownerKeywords {
		if strings.Contains(folded, kw) {
			return SellerOwner
		}
	}
	return SellerUnknown
}
