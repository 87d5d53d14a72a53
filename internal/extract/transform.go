package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Transform names a normalization applied to a raw selector value.
type Transform string

// Supported value transforms.
const (
	TransformNone      Transform = ""
	TransformText      Transform = "text"
	TransformNumber    Transform = "number"
	TransformPrice     Transform = "price"
	TransformDate      Transform = "date"
	TransformPhone     Transform = "phone"
	TransformEmail     Transform = "email"
	TransformLowercase Transform = "lowercase"
	TransformUppercase Transform = "uppercase"
)

var (
	digitRun   = regexp.MustCompile(`\d+`)
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneKeep  = regexp.MustCompile(`[^\d+]`)
)

// diacriticFold strips combining marks so "Mart" matches "MART", "mărt" etc.
// and Turkish dotted/dotless i variants collapse to plain ASCII.
var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldLower(s string) string {
	folded, _, err := transform.String(diacriticFold, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Apply runs the named transform over a trimmed raw value. Unknown
// transforms fall through to plain text so a bad config degrades instead of
// failing a whole record.
func Apply(t Transform, raw string) (string, error) {
	raw = normalizeSpace(raw)
	switch t {
	case TransformNone, TransformText:
		return raw, nil
	case TransformNumber, TransformPrice:
		return parseDigits(raw)
	case TransformDate:
		return ParseLocalizedDate(raw)
	case TransformPhone:
		return parsePhone(raw)
	case TransformEmail:
		return parseEmail(raw)
	case TransformLowercase:
		return strings.ToLower(raw), nil
	case TransformUppercase:
		return strings.ToUpper(raw), nil
	default:
		return raw, nil
	}
}

// parseDigits strips everything but digits and parses the remainder, so
// "  250.000 " and "250,000 TL" both become "250000".
func parseDigits(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return "", fmt.Errorf("no digits in %q", raw)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse digits %q: %w", digits, err)
	}
	return strconv.FormatInt(n, 10), nil
}

// ParsePrice returns the numeric form of a price string.
func ParsePrice(raw string) (int64, error) {
	s, err := parseDigits(raw)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

func parsePhone(raw string) (string, error) {
	cleaned := phoneKeep.ReplaceAllString(raw, "")
	// A leading plus is meaningful, interior ones are noise.
	if len(cleaned) > 1 {
		cleaned = string(cleaned[0]) + strings.ReplaceAll(cleaned[1:], "+", "")
	}
	if countDigits(cleaned) < 7 {
		return "", fmt.Errorf("no usable phone in %q", raw)
	}
	return cleaned, nil
}

func parseEmail(raw string) (string, error) {
	m := emailRegex.FindString(raw)
	if m == "" {
		return "", fmt.Errorf("no email in %q", raw)
	}
	return strings.ToLower(m), nil
}

// monthTable maps diacritic-folded month names (Turkish and English, full
// and common abbreviations) to their number.
var monthTable = map[string]int{
	"ocak": 1, "subat": 2, "mart": 3, "nisan": 4, "mayis": 5, "haziran": 6,
	"temmuz": 7, "agustos": 8, "eylul": 9, "ekim": 10, "kasim": 11, "aralik": 12,
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ParseLocalizedDate extracts a "<day> <month-name> <year>" date from free
// text, matching month names diacritic-insensitively, and returns ISO
// YYYY-MM-DD. "İlan Tarihi 5 Mart 2024" yields "2024-03-05".
func ParseLocalizedDate(raw string) (string, error) {
	folded := foldLower(raw)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	monthIdx := -1
	month := 0
	for i, w := range words {
		if m, ok := monthTable[w]; ok {
			monthIdx = i
			month = m
			break
		}
	}
	if monthIdx < 0 {
		return "", fmt.Errorf("no month name in %q", raw)
	}

	day := findNumber(words[:monthIdx], 1, 31, true)
	if day == 0 {
		day = findNumber(words[monthIdx+1:], 1, 31, false)
	}
	year := findNumber(words[monthIdx:], 1900, 2200, false)
	if year == 0 {
		year = findNumber(words[:monthIdx], 1900, 2200, true)
	}
	if day == 0 || year == 0 {
		return "", fmt.Errorf("incomplete date in %q", raw)
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

// findNumber scans words for the first (or last, when fromEnd) integer in
// [lo, hi].
func findNumber(words []string, lo, hi int, fromEnd bool) int {
	scan := func(w string) int {
		run := digitRun.FindString(w)
		if run == "" {
			return 0
		}
		n, err := strconv.Atoi(run)
		if err != nil || n < lo || n > hi {
			return 0
		}
		return n
	}
	if fromEnd {
		for i := len(words) - 1; i >= 0; i-- {
			if n := scan(words[i]); n != 0 {
				return n
			}
		}
		return 0
	}
	for _, w := range words {
		if n := scan(w); n != 0 {
			return n
		}
	}
	return 0
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
