package result

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwalk/listing-agent/internal/extract"
)

func samplePayload() Payload {
	return Payload{
		JobID:  "job-9",
		Token:  "caller-token",
		Status: StatusCompleted,
		Records: []extract.Record{
			{Title: "Deniz manzaralı daire", URL: "https://site.example/ilan/a-11111111/detay"},
		},
		Metadata: Metadata{
			ItemsExtracted: 1,
			Timestamp:      time.Unix(1700000000, 0).UTC(),
		},
	}
}

func TestFileSinkWritesPayload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.Deliver(context.Background(), samplePayload()))

	raw, err := os.ReadFile(filepath.Join(dir, "job-9.json"))
	require.NoError(t, err)
	var got Payload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, StatusCompleted, got.Status)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "Deniz manzaralı daire", got.Records[0].Title)
}

func TestHTTPSinkPostsWithToken(t *testing.T) {
	t.Parallel()

	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(tokenHeader)
		var p Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "job-9", p.JobID)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink, err := NewHTTPSink(HTTPSinkConfig{Endpoint: server.URL})
	require.NoError(t, err)
	require.NoError(t, sink.Deliver(context.Background(), samplePayload()))
	assert.Equal(t, "caller-token", gotToken)
}

func TestHTTPSinkRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := NewHTTPSink(HTTPSinkConfig{Endpoint: server.URL, RetryCount: 3, RetryWait: 10 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, sink.Deliver(context.Background(), samplePayload()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSinkGivesUp(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sink, err := NewHTTPSink(HTTPSinkConfig{Endpoint: server.URL, RetryCount: 1, RetryWait: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.Error(t, sink.Deliver(context.Background(), samplePayload()))
}
