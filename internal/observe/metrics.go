// Package observe provides OpenTelemetry metrics for the listening pipeline and a
// Prometheus scrape endpoint for them.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/rbright/aurora"

// Metrics holds the instruments recorded by the listener. All methods are safe
// for concurrent use.
type Metrics struct {
	// Chunks counts consumed audio chunks. Attribute: gated (true|false).
	Chunks metric.Int64Counter
	// Gain records the conditioner gain after each chunk.
	Gain metric.Float64Gauge
	// Utterances counts finalized utterances. Attribute: empty (true|false).
	Utterances metric.Int64Counter
	// RecognizeDuration tracks the time spent in recognizer calls that finalized.
	RecognizeDuration metric.Float64Histogram
	// Outcomes counts session outcomes. Attribute: outcome.
	Outcomes metric.Int64Counter
	// Commands counts dispatched commands. Attributes: command, result.
	Commands metric.Int64Counter
	// DispatchFailures counts commands whose program could not be started. Attribute: command.
	DispatchFailures metric.Int64Counter

	meter metric.Meter
}

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{meter: m}
	var err error

	if met.Chunks, err = m.Int64Counter("aurora.audio.chunks",
		metric.WithDescription("Audio chunks consumed by the listener."),
	); err != nil {
		return nil, err
	}
	if met.Gain, err = m.Float64Gauge("aurora.conditioner.gain",
		metric.WithDescription("Current automatic gain applied to captured audio."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("aurora.recognizer.utterances",
		metric.WithDescription("Utterances finalized by the recognizer."),
	); err != nil {
		return nil, err
	}
	if met.RecognizeDuration, err = m.Float64Histogram("aurora.recognizer.duration",
		metric.WithDescription("Latency of recognizer calls that finalized an utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Outcomes, err = m.Int64Counter("aurora.session.outcomes",
		metric.WithDescription("Session machine outcomes by kind."),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("aurora.commands",
		metric.WithDescription("Dispatched commands by name and result."),
	); err != nil {
		return nil, err
	}
	if met.DispatchFailures, err = m.Int64Counter("aurora.dispatch.failures",
		metric.WithDescription("Commands whose side effect could not be started."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// NoopMetrics returns Metrics that record nothing.
func NoopMetrics() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return met
}

// ObserveDropped exports the value returned by dropped as the dropped-chunk counter.
func (m *Metrics) ObserveDropped(dropped func() uint64) (metric.Registration, error) {
	counter, err := m.meter.Int64ObservableCounter("aurora.audio.dropped_chunks",
		metric.WithDescription("Audio chunks discarded because the listener fell behind."),
	)
	if err != nil {
		return nil, err
	}
	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(counter, int64(dropped()))
		return nil
	}, counter)
}

// RecordChunk counts one consumed chunk and the gain applied to it.
func (m *Metrics) RecordChunk(ctx context.Context, gated bool, gain float64) {
	m.Chunks.Add(ctx, 1, metric.WithAttributes(attribute.Bool("gated", gated)))
	m.Gain.Record(ctx, gain)
}

// RecordUtterance counts a finalized utterance and the recognizer latency.
func (m *Metrics) RecordUtterance(ctx context.Context, took time.Duration, empty bool) {
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.Bool("empty", empty)))
	m.RecognizeDuration.Record(ctx, took.Seconds())
}

// RecordOutcome counts one session outcome.
func (m *Metrics) RecordOutcome(ctx context.Context, outcome string) {
	m.Outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCommand counts one dispatched command.
func (m *Metrics) RecordCommand(ctx context.Context, name string, result string) {
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("result", result),
	))
}

// RecordDispatchFailure counts one command whose program could not be started.
func (m *Metrics) RecordDispatchFailure(ctx context.Context, name string) {
	m.DispatchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("command", name)))
}
