// Package browser drives the single long-lived page the agent navigates.
// There is exactly one tab: the walk is sequential, and the session's only
// job is to make navigation, history and scrolling available to the
// orchestrator while reporting every document response to the transport
// observer.
package browser

import "context"

// Session is the navigation surface the orchestrator works against. Every
// method that triggers navigation may be the last code the incarnation runs;
// callers persist before invoking them.
type Session interface {
	// Location returns the current document URL.
	Location(ctx context.Context) (string, error)
	// Navigate loads rawURL in the session's tab.
	Navigate(ctx context.Context, rawURL string) error
	// Back performs a history-back navigation.
	Back(ctx context.Context) error
	// WaitReady blocks until sel is present and ready, or ctx expires.
	WaitReady(ctx context.Context, sel string) error
	// HTML snapshots the current DOM.
	HTML(ctx context.Context) (string, error)
	// ScrollBy scrolls the window vertically by px.
	ScrollBy(ctx context.Context, px int) error
	// Click dispatches a click on the first node matching sel.
	Click(ctx context.Context, sel string) error
	// Close tears the session down.
	Close(ctx context.Context) error
}
