// Package extract turns a rendered detail page into a structured Record
// using ordered selector-fallback chains: per field, the first selector
// producing a non-empty value wins, then a value transform is applied.
package extract

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrMissingPhone marks a record discarded because the job requires a phone
// number and none could be recovered.
var ErrMissingPhone = errors.New("record has no phone")

// FieldSpec describes how to locate one field: candidate selectors tried in
// order, an optional attribute (text content when empty), and a transform.
type FieldSpec struct {
	Selectors []string  `mapstructure:"selectors" json:"selectors"`
	Attr      string    `mapstructure:"attr" json:"attr,omitempty"`
	Transform Transform `mapstructure:"transform" json:"transform,omitempty"`
}

// DetailRowsSpec locates the key/value attribute table on a detail page.
type DetailRowsSpec struct {
	Rows  []string `mapstructure:"rows" json:"rows"`
	Key   string   `mapstructure:"key" json:"key"`
	Value string   `mapstructure:"value" json:"value"`
}

// Selectors bundles the per-field specs supplied with a job.
type Selectors struct {
	Title       FieldSpec      `mapstructure:"title" json:"title"`
	Price       FieldSpec      `mapstructure:"price" json:"price"`
	Description FieldSpec      `mapstructure:"description" json:"description"`
	Images      FieldSpec      `mapstructure:"images" json:"images"`
	Details     DetailRowsSpec `mapstructure:"details" json:"details"`
	Phone       FieldSpec      `mapstructure:"phone" json:"phone"`
	ContactName FieldSpec      `mapstructure:"contact_name" json:"contact_name"`
	Address     FieldSpec      `mapstructure:"address" json:"address"`
	From        FieldSpec      `mapstructure:"from" json:"from"`
	Date        FieldSpec      `mapstructure:"date" json:"date"`
}

// Seller classifies who placed the listing.
type Seller string

// Seller classes.
const (
	SellerOwner   Seller = "owner"
	SellerAgency  Seller = "agency"
	SellerUnknown Seller = "unknown"
)

// Price keeps both the displayed and the parsed form of a price.
type Price struct {
	Raw     string `json:"raw"`
	Numeric int64  `json:"numeric"`
}

// Contact holds whoever answers for the listing.
type Contact struct {
	Phone string `json:"phone,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Record is one extracted listing.
type Record struct {
	Title       string            `json:"title"`
	Price       Price             `json:"price"`
	Description string            `json:"description,omitempty"`
	Images      []string          `json:"images,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	Contact     Contact           `json:"contact"`
	Address     string            `json:"address,omitempty"`
	From        Seller            `json:"from"`
	Date        string            `json:"date,omitempty"`
	URL         string            `json:"url"`
}

// Engine extracts Records from parsed documents.
type Engine struct {
	selectors    Selectors
	requirePhone bool
	logger       *zap.Logger
}

// NewEngine builds an extraction engine for one job's selector config.
func NewEngine(selectors Selectors, requirePhone bool, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{selectors: selectors, requirePhone: requirePhone, logger: logger}
}

// FirstMatch is the shared "ordered candidates, first success wins"
// combinator: it walks the selector chain and returns the first non-empty
// normalized value. Used identically for field extraction here and for
// link/pagination discovery in the collector.
func FirstMatch(doc *goquery.Document, spec FieldSpec) (string, bool) {
	for _, sel := range spec.Selectors {
		if strings.TrimSpace(sel) == "" {
			continue
		}
		var raw string
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if spec.Attr != "" {
			raw, _ = node.Attr(spec.Attr)
		} else {
			raw = node.Text()
		}
		raw = normalizeSpace(raw)
		if raw != "" {
			return raw, true
		}
	}
	return "", false
}

// Extract builds a Record from the document. Field-level failures skip the
// field and continue; only a missing phone under requirePhone discards the
// whole record.
func (e *Engine) Extract(doc *goquery.Document, pageURL string) (Record, error) {
	rec := Record{URL: pageURL, From: SellerUnknown, Details: map[string]string{}}

	rec.Title = e.field(doc, e.selectors.Title, "title")
	rec.Description = e.field(doc, e.selectors.Description, "description")
	rec.Address = e.field(doc, e.selectors.Address, "address")
	rec.Date = e.field(doc, e.selectors.Date, "date")
	rec.Contact.Name = e.field(doc, e.selectors.ContactName, "contact_name")
	rec.Contact.Phone = e.field(doc, e.selectors.Phone, "phone")

	if raw, ok := FirstMatch(doc, FieldSpec{Selectors: e.selectors.Price.Selectors, Attr: e.selectors.Price.Attr}); ok {
		rec.Price.Raw = raw
		if n, err := ParsePrice(raw); err == nil {
			rec.Price.Numeric = n
		} else {
			e.logger.Debug("price parse failed", zap.String("raw", raw), zap.Error(err))
		}
	}

	rec.Images = e.images(doc)
	rec.Details = e.detailRows(doc)
	rec.From = e.classifySeller(doc, rec.Details)

	if e.requirePhone && rec.Contact.Phone == "" {
		return Record{}, ErrMissingPhone
	}
	return rec, nil
}

func (e *Engine) field(doc *goquery.Document, spec FieldSpec, name string) string {
	raw, ok := FirstMatch(doc, FieldSpec{Selectors: spec.Selectors, Attr: spec.Attr})
	if !ok {
		return ""
	}
	value, err := Apply(spec.Transform, raw)
	if err != nil {
		e.logger.Debug("field transform failed",
			zap.String("field", name),
			zap.String("raw", raw),
			zap.Error(err),
		)
		return ""
	}
	return value
}

// images collects every match of the first selector that yields any, since
// galleries are lists rather than single nodes.
func (e *Engine) images(doc *goquery.Document) []string {
	spec := e.selectors.Images
	attr := spec.Attr
	if attr == "" {
		attr = "src"
	}
	for _, sel := range spec.Selectors {
		var out []string
		seen := map[string]struct{}{}
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			src, ok := s.Attr(attr)
			if !ok {
				return
			}
			src = strings.TrimSpace(src)
			if src == "" {
				return
			}
			if _, dup := seen[src]; dup {
				return
			}
			seen[src] = struct{}{}
			out = append(out, src)
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (e *Engine) detailRows(doc *goquery.Document) map[string]string {
	spec := e.selectors.Details
	out := map[string]string{}
	for _, rowSel := range spec.Rows {
		doc.Find(rowSel).Each(func(_ int, row *goquery.Selection) {
			key := normalizeSpace(row.Find(spec.Key).First().Text())
			value := normalizeSpace(row.Find(spec.Value).First().Text())
			if key == "" || value == "" {
				return
			}
			if _, dup := out[key]; !dup {
				out[key] = value
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}
