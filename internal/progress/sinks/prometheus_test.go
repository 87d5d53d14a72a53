package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/adwalk/listing-agent/internal/progress"
)

func TestPrometheusSinkCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	now := time.Now().UTC()
	batch := []progress.Event{
		{JobID: "job-1", TS: now, Stage: progress.StageStarting, Index: 0, Total: 5},
		{JobID: "job-1", TS: now, Stage: progress.StageProcessing, Index: 1, Total: 5},
		{JobID: "job-1", TS: now, Stage: progress.StageProcessing, Index: 2, Total: 5},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, float64(2),
		testutil.ToFloat64(sink.stages.WithLabelValues(string(progress.StageProcessing))))
	require.Equal(t, float64(2), testutil.ToFloat64(sink.cursor))
	require.Equal(t, float64(5), testutil.ToFloat64(sink.queueDepth))
}

func TestPrometheusSinkDoubleRegister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
