package links

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func listingPage(links []string, next string) string {
	var sb strings.Builder
	sb.WriteString("<html><body><table>")
	for _, l := range links {
		fmt.Fprintf(&sb, `<tr class="searchResultsItem"><td><a href=%q>item</a></td></tr>`, l)
	}
	sb.WriteString("</table>")
	if next != "" {
		fmt.Fprintf(&sb, `<a rel="next" href=%q>Sonraki</a>`, next)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func TestCollectAcrossPages(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/satilik", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprint(w, listingPage([]string{
				"/ilan/a-11111111/detay",
				"/ilan/b-22222222/detay",
				"/ilan/a-11111111/detay?from=promo", // same identity, must dedup
			}, "/satilik?page=2"))
		case "2":
			fmt.Fprint(w, listingPage([]string{
				"/ilan/c-33333333/detay",
				"/ilan/d-44444444/detay",
				"/ilan/e-55555555/detay",
			}, ""))
		default:
			http.NotFound(w, r)
		}
	})

	c := NewCollector(Config{
		AnchorURL: server.URL + "/satilik",
		MaxItems:  4,
		PageQPS:   100,
	}, zap.NewNop())

	queue, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 4, "collection stops at max items")

	seen := map[string]struct{}{}
	for _, u := range queue {
		id := Identity(u)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate identity %s in queue", id)
		seen[id] = struct{}{}
	}
	assert.Equal(t, server.URL+"/ilan/a-11111111/detay", queue[0])
}

func TestCollectCountsListingPages(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/satilik", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, listingPage([]string{"/ilan/b-22222222/detay"}, ""))
			return
		}
		fmt.Fprint(w, listingPage([]string{"/ilan/a-11111111/detay"}, "/satilik?page=2"))
	})

	c := NewCollector(Config{AnchorURL: server.URL + "/satilik", PageQPS: 100}, zap.NewNop())
	before := listingPagesTotal(t)

	queue, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 2)

	assert.Equal(t, before+2, listingPagesTotal(t), "every walked listing page is counted")
}

func listingPagesTotal(t *testing.T) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "agent_listing_pages_total" {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestCollectEmptyListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body><p>Sonuç bulunamadı</p></body></html>")
	}))
	defer server.Close()

	c := NewCollector(Config{AnchorURL: server.URL, PageQPS: 100}, zap.NewNop())
	queue, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queue, "empty collection is not an error")
}

func TestCollectAnchorFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewCollector(Config{AnchorURL: server.URL, PageQPS: 100}, zap.NewNop())
	_, err := c.Collect(context.Background())
	require.Error(t, err, "an unreachable anchor is a hard failure")
}

func TestCollectFirstStrategyWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Both strategies would match; only the winning strategy's order counts.
		fmt.Fprint(w, `<html><body>
			<table><tr class="searchResultsItem"><td><a href="/ilan/x-11111111">x</a></td></tr></table>
			<article><a href="/ilan/y-22222222">y</a></article>
		</body></html>`)
	}))
	defer server.Close()

	c := NewCollector(Config{AnchorURL: server.URL, PageQPS: 100}, zap.NewNop())
	queue, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 1, "strategies must not be merged")
	assert.Contains(t, queue[0], "x-11111111")
}

func TestFindNextHeuristicOrder(t *testing.T) {
	t.Parallel()

	parse := func(html string) *goquery.Document {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		require.NoError(t, err)
		return doc
	}

	t.Run("rel marker beats label", func(t *testing.T) {
		doc := parse(`<a href="/label">Sonraki</a><a rel="next" href="/rel">2</a>`)
		href, ok := FindNext(doc)
		require.True(t, ok)
		assert.Equal(t, "/rel", href)
	})

	t.Run("class based", func(t *testing.T) {
		doc := parse(`<li class="next"><a href="/p3">3</a></li>`)
		href, ok := FindNext(doc)
		require.True(t, ok)
		assert.Equal(t, "/p3", href)
	})

	t.Run("locale label text", func(t *testing.T) {
		for _, label := range []string{"Sonraki", "next", "»"} {
			doc := parse(fmt.Sprintf(`<a href="/n">%s</a>`, label))
			href, ok := FindNext(doc)
			require.True(t, ok, "label %q", label)
			assert.Equal(t, "/n", href)
		}
	})

	t.Run("none found", func(t *testing.T) {
		doc := parse(`<a href="/somewhere">Önceki</a>`)
		_, ok := FindNext(doc)
		assert.False(t, ok)
	})

	t.Run("unusable hrefs are skipped", func(t *testing.T) {
		doc := parse(`<a rel="next" href="#">2</a>`)
		_, ok := FindNext(doc)
		assert.False(t, ok)
	})
}
