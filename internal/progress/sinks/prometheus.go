package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adwalk/listing-agent/internal/progress"
)

// PrometheusSink exports the job lifecycle as Prometheus collectors.
type PrometheusSink struct {
	stages     *prometheus.CounterVec
	queueDepth prometheus.Gauge
	cursor     prometheus.Gauge
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_progress_events_total",
			Help: "Progress events partitioned by stage.",
		}, []string{"stage"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agent_target_queue_depth",
			Help: "Queued targets of the active job.",
		}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agent_cursor_position",
			Help: "Cursor position within the active job's queue.",
		}),
	}
	for _, collector := range []prometheus.Collector{s.stages, s.queueDepth, s.cursor} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.stages.WithLabelValues(string(evt.Stage)).Inc()
		s.queueDepth.Set(float64(evt.Total))
		s.cursor.Set(float64(evt.Index))
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
