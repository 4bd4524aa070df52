// Package telemetry records trial and command execution metrics to
// OpenTelemetry, the same lazy-init, nil-safe recorder shape the worker
// package uses for background jobs.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder records scenario trial metrics to OpenTelemetry. A nil *Recorder
// is safe to call methods on; every method is a no-op in that case, so
// callers that don't wire telemetry never need a nil check of their own.
type Recorder struct {
	meter metric.Meter
	once  sync.Once

	trialStarts    metric.Int64Counter
	trialSuccesses metric.Int64Counter
	trialFailures  metric.Int64Counter
	trialDuration  metric.Float64Histogram
	commandErrors  metric.Int64Counter
}

// NewRecorder constructs a Recorder using the global MeterProvider.
func NewRecorder() *Recorder {
	return &Recorder{meter: otel.GetMeterProvider().Meter("refsim/trial")}
}

func (r *Recorder) init() {
	r.once.Do(func() {
		var err error
		r.trialStarts, err = r.meter.Int64Counter("refsim.trials.started")
		if err != nil {
			return
		}
		r.trialSuccesses, _ = r.meter.Int64Counter("refsim.trials.succeeded")
		r.trialFailures, _ = r.meter.Int64Counter("refsim.trials.failed")
		r.trialDuration, _ = r.meter.Float64Histogram("refsim.trials.duration_ms")
		r.commandErrors, _ = r.meter.Int64Counter("refsim.commands.errors")
	})
}

// RecordTrialStart records one trial beginning for scenario.
func (r *Recorder) RecordTrialStart(ctx context.Context, scenarioName string) {
	if r == nil {
		return
	}
	r.init()
	if r.trialStarts != nil {
		r.trialStarts.Add(ctx, 1, metric.WithAttributes(attribute.String("scenario", scenarioName)))
	}
}

// RecordTrialSuccess records one trial completing without error.
func (r *Recorder) RecordTrialSuccess(ctx context.Context, scenarioName string, duration time.Duration) {
	if r == nil {
		return
	}
	r.init()
	attrs := metric.WithAttributes(attribute.String("scenario", scenarioName))
	if r.trialSuccesses != nil {
		r.trialSuccesses.Add(ctx, 1, attrs)
	}
	if r.trialDuration != nil {
		r.trialDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// RecordTrialFailure records one trial ending in error.
func (r *Recorder) RecordTrialFailure(ctx context.Context, scenarioName string, duration time.Duration) {
	if r == nil {
		return
	}
	r.init()
	attrs := metric.WithAttributes(attribute.String("scenario", scenarioName))
	if r.trialFailures != nil {
		r.trialFailures.Add(ctx, 1, attrs)
	}
	if r.trialDuration != nil {
		r.trialDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// RecordCommandError records one command failing during interpretation,
// tagged by the command kind so a bad rule authored in one command type
// doesn't get lost in an aggregate count.
func (r *Recorder) RecordCommandError(ctx context.Context, scenarioName, commandKind string) {
	if r == nil {
		return
	}
	r.init()
	if r.commandErrors != nil {
		r.commandErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scenario", scenarioName),
			attribute.String("kind", commandKind),
		))
	}
}
