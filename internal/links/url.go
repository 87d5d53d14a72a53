package links

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var digitRuns = regexp.MustCompile(`\d+`)

// Normalize standardizes a discovered link to an absolute canonical form:
// resolved against base, lowercased scheme/host, default ports and fragments
// stripped, query parameters sorted.
func Normalize(base *url.URL, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawQuery = u.Query().Encode()

	return u.String(), nil
}

// Identity extracts the stable identifier used for deduplication and for
// reconciling "where am I" against "where should I be". Listing URLs carry a
// numeric id in the path that survives canonicalization differences, so the
// longest digit run of at least five digits wins; URLs without one fall back
// to host+path.
func Identity(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	longest := ""
	for _, run := range digitRuns.FindAllString(u.Path, -1) {
		if len(run) > len(longest) {
			longest = run
		}
	}
	if len(longest) >= 5 {
		return longest
	}
	return strings.ToLower(u.Host) + strings.TrimSuffix(u.Path, "/")
}

// SameResource reports whether two locators point at the same resource under
// fuzzy identity matching.
func SameResource(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return Identity(a) == Identity(b)
}
