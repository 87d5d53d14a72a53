// Package archive stores rendered detail-page snapshots so records can be
// re-extracted later without revisiting the site. Archival is best effort: a
// failed Put logs, it never stalls the walk.
package archive

import "context"

// Store persists one HTML snapshot per visited target and returns a URI for
// the stored object.
type Store interface {
	Put(ctx context.Context, key string, html []byte) (string, error)
}

// Nop discards snapshots. Used when archival is disabled.
type Nop struct{}

// Put discards the snapshot.
func (Nop) Put(context.Context, string, []byte) (string, error) {
	return "", nil
}
