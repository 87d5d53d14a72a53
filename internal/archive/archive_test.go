package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePut(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	uri, err := store.Put(context.Background(), "job-1/12345678", []byte("<html></html>"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))

	raw, err := os.ReadFile(filepath.Join(dir, "job-1", "12345678.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(raw))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside", []byte("x"))
	assert.Error(t, err)
	_, err = store.Put(context.Background(), " ", []byte("x"))
	assert.Error(t, err)
}

func TestMemoryStorePut(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	uri, err := store.Put(context.Background(), "12345678", []byte("<html>a</html>"))
	require.NoError(t, err)
	assert.Equal(t, "memory://12345678", uri)

	raw, ok := store.Get("12345678")
	require.True(t, ok)
	assert.Equal(t, "<html>a</html>", string(raw))
	assert.Equal(t, 1, store.Len())
}
