package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwalk/listing-agent/internal/extract"
)

func validProgress() *Progress {
	return &Progress{
		JobID:     "job-1",
		AnchorURL: "https://site.example/satilik",
		TargetQueue: []string{
			"https://site.example/ilan/a-11111111/detay",
			"https://site.example/ilan/b-22222222/detay",
			"https://site.example/ilan/c-33333333/detay",
		},
		Cursor: 1,
		Results: []extract.Record{
			{Title: "first", URL: "https://site.example/ilan/a-11111111/detay"},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validProgress().Validate())

	t.Run("cursor out of range", func(t *testing.T) {
		p := validProgress()
		p.Cursor = 4
		assert.Error(t, p.Validate())
		p.Cursor = -1
		assert.Error(t, p.Validate())
	})

	t.Run("results ahead of cursor", func(t *testing.T) {
		p := validProgress()
		p.Results = append(p.Results, extract.Record{Title: "phantom"})
		assert.Error(t, p.Validate())
	})

	t.Run("duplicate identity in queue", func(t *testing.T) {
		p := validProgress()
		// Different rendering of an existing queue entry, same identity.
		p.TargetQueue = append(p.TargetQueue, "https://m.site.example/ilan/11111111")
		assert.Error(t, p.Validate())
	})

	t.Run("quick-skip gap is legal", func(t *testing.T) {
		// Skipped targets advance the cursor without a record, so fewer
		// results than cursor positions is a valid shape.
		p := validProgress()
		p.Cursor = 3
		assert.NoError(t, p.Validate())
	})
}

func TestCursorHelpers(t *testing.T) {
	t.Parallel()

	p := validProgress()
	assert.False(t, p.Exhausted())
	assert.Equal(t, p.TargetQueue[1], p.CurrentTarget())

	p.Cursor = len(p.TargetQueue)
	assert.True(t, p.Exhausted())
	assert.Empty(t, p.CurrentTarget())
}

// The restart contract: a store loaded by a fresh process yields exactly the
// record the torn-down process saved.
func TestFileStoreSurvivesRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	first, err := NewFileStore(dir)
	require.NoError(t, err)

	p := validProgress()
	require.NoError(t, first.Save(ctx, p))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.Cursor, got.Cursor)
	assert.Equal(t, p.TargetQueue, got.TargetQueue)
	assert.Len(t, got.Results, 1)
}

func TestFileStoreLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	bad := validProgress()
	bad.Results = append(bad.Results, extract.Record{}, extract.Record{})
	assert.Error(t, store.Save(ctx, bad), "invalid records must not become durable")
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound, "failed save leaves no partial record")

	require.NoError(t, store.Save(ctx, validProgress()))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clear is idempotent")
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreIsolatesCaller(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryStore()
	p := validProgress()
	require.NoError(t, store.Save(ctx, p))

	// Mutating the caller's copy must not reach the stored record.
	p.Cursor = 0
	p.Results = nil

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Cursor)
	assert.Len(t, got.Results, 1)
}
