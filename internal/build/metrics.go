package build

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "oneclick/internal/build"

type buildMetrics struct {
	started  metric.Int64Counter
	finished metric.Int64Counter
	polls    metric.Int64Counter
	duration metric.Float64Histogram
}

func newBuildMetrics() *buildMetrics {
	meter := otel.Meter(meterName)
	m := &buildMetrics{}
	var err error

	if m.started, err = meter.Int64Counter("oneclick.build.started",
		metric.WithDescription("Builds accepted for push")); err != nil {
		log.Warn().Err(err).Msg("build metrics: started counter")
		m.started = noop.Int64Counter{}
	}
	if m.finished, err = meter.Int64Counter("oneclick.build.finished",
		metric.WithDescription("Builds that reached a terminal phase")); err != nil {
		log.Warn().Err(err).Msg("build metrics: finished counter")
		m.finished = noop.Int64Counter{}
	}
	if m.polls, err = meter.Int64Counter("oneclick.build.polls",
		metric.WithDescription("Pipeline status checks")); err != nil {
		log.Warn().Err(err).Msg("build metrics: polls counter")
		m.polls = noop.Int64Counter{}
	}
	if m.duration, err = meter.Float64Histogram("oneclick.build.duration",
		metric.WithDescription("Time from push to terminal phase"),
		metric.WithUnit("s")); err != nil {
		log.Warn().Err(err).Msg("build metrics: duration histogram")
		m.duration = noop.Float64Histogram{}
	}
	return m
}

func (m *buildMetrics) finish(ctx context.Context, phase Phase, took time.Duration) {
	attrs := metric.WithAttributes(attribute.String("phase", string(phase)))
	m.finished.Add(ctx, 1, attrs)
	m.duration.Record(ctx, took.Seconds(), attrs)
}
