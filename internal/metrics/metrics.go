// Package metrics exposes Prometheus collectors for the listing agent.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	targetsVisited   prometheus.Counter
	recordsExtracted prometheus.Counter
	recordsDropped   *prometheus.CounterVec
	quickSkips       prometheus.Counter
	blocksRaised     *prometheus.CounterVec
	recoveries       prometheus.Counter
	listingPages     prometheus.Counter

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		targetsVisited = promauto.NewCounter(prometheus.CounterOpts{
			Name: "agent_targets_visited_total",
			Help: "Detail pages the agent finished processing.",
		})
		recordsExtracted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "agent_records_extracted_total",
			Help: "Records successfully extracted from detail pages.",
		})
		recordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_records_dropped_total",
			Help: "Records dropped, labeled by reason.",
		}, []string{"reason"})
		quickSkips = promauto.NewCounter(prometheus.CounterOpts{
			Name: "agent_quick_skips_total",
			Help: "Targets skipped to imitate a visitor bouncing off a page.",
		})
		blocksRaised = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_blocks_raised_total",
			Help: "Block flag raises, labeled by producing detector.",
		}, []string{"source"})
		recoveries = promauto.NewCounter(prometheus.CounterOpts{
			Name: "agent_drift_recoveries_total",
			Help: "Recovery navigations after the session drifted off course.",
		})
		listingPages = promauto.NewCounter(prometheus.CounterOpts{
			Name: "agent_listing_pages_total",
			Help: "Listing pages walked during link collection.",
		})
	})
}

// Handler returns an http.Handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTargetVisited counts a finished detail page.
func ObserveTargetVisited() { targetsVisited.Inc() }

// ObserveRecordExtracted counts a kept record.
func ObserveRecordExtracted() { recordsExtracted.Inc() }

// ObserveRecordDropped counts a dropped record by reason.
func ObserveRecordDropped(reason string) { recordsDropped.WithLabelValues(reason).Inc() }

// ObserveQuickSkip counts a skipped target.
func ObserveQuickSkip() { quickSkips.Inc() }

// ObserveBlockRaised counts a raise by its producer.
func ObserveBlockRaised(source string) { blocksRaised.WithLabelValues(source).Inc() }

// ObserveRecovery counts a drift recovery.
func ObserveRecovery() { recoveries.Inc() }

// ObserveListingPage counts a listing page during collection.
func ObserveListingPage() { listingPages.Inc() }
