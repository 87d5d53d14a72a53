package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adwalk/listing-agent/internal/blockguard"
	"github.com/adwalk/listing-agent/internal/state"
)

func newTestServer(t *testing.T) (*httptest.Server, *state.MemoryStore, *blockguard.MemoryFlag) {
	t.Helper()
	store := state.NewMemoryStore()
	flag := blockguard.NewMemoryFlag()
	srv := httptest.NewServer(New(store, flag, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv, store, flag
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProgressSnapshot(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/progress")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no job in flight")

	p := &state.Progress{
		JobID:       "job-1",
		AnchorURL:   "https://site.example/satilik",
		TargetQueue: []string{"https://site.example/ilan/a-11111111/detay"},
	}
	require.NoError(t, store.Save(context.Background(), p))

	resp, err = http.Get(srv.URL + "/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got state.Progress
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "job-1", got.JobID)
	assert.Len(t, got.TargetQueue, 1)
}

func TestBlockStatusAndRelease(t *testing.T) {
	t.Parallel()

	srv, _, flag := newTestServer(t)
	_, err := flag.Raise(context.Background(), blockguard.SourceContent, 90*time.Minute)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/block")
	require.NoError(t, err)
	var status blockguard.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.True(t, status.Blocked)

	resp, err = http.Post(srv.URL+"/block/release", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := flag.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, got.Blocked)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
