package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const sweepScopeName = "github.com/stalesweep/stalesweep/reaper"

// SweepRecorder counts sweep outcomes in stalesweep.* metrics and traces
// each sweep. A nil *SweepRecorder is valid and records nothing, so
// callers never need to guard.
type SweepRecorder struct {
	tracer    trace.Tracer
	inspected metric.Int64Counter
	actions   metric.Int64Counter
	errs      metric.Int64Counter
	dur       metric.Float64Histogram
}

// NewSweepRecorder builds a recorder on the global meter/tracer. Returns
// nil when telemetry is disabled.
func NewSweepRecorder() *SweepRecorder {
	if !Enabled() {
		return nil
	}
	m := Meter(sweepScopeName)
	inspected, _ := m.Int64Counter("stalesweep.resources.inspected",
		metric.WithDescription("Resources examined across all sweeps"),
	)
	actions, _ := m.Int64Counter("stalesweep.actions.applied",
		metric.WithDescription("Lifecycle actions applied, by action and kind"),
	)
	errs, _ := m.Int64Counter("stalesweep.resources.failed",
		metric.WithDescription("Resources whose mutations failed after retries"),
	)
	dur, _ := m.Float64Histogram("stalesweep.sweep.duration",
		metric.WithDescription("Sweep duration in seconds"),
		metric.WithUnit("s"),
	)
	return &SweepRecorder{
		tracer:    Tracer(sweepScopeName),
		inspected: inspected,
		actions:   actions,
		errs:      errs,
		dur:       dur,
	}
}

// StartSweep opens a span for one kind's sweep. The returned end function
// records the duration and closes the span.
func (r *SweepRecorder) StartSweep(ctx context.Context, kind string) (context.Context, func(err error)) {
	if r == nil {
		return ctx, func(error) {}
	}
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "sweep",
		trace.WithAttributes(attribute.String("stalesweep.kind", kind)),
	)
	return ctx, func(err error) {
		r.dur.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("stalesweep.kind", kind)),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Inspected counts one examined resource.
func (r *SweepRecorder) Inspected(ctx context.Context, kind string) {
	if r == nil {
		return
	}
	r.inspected.Add(ctx, 1, metric.WithAttributes(attribute.String("stalesweep.kind", kind)))
}

// Applied counts one applied lifecycle action.
func (r *SweepRecorder) Applied(ctx context.Context, kind, action string) {
	if r == nil {
		return
	}
	r.actions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stalesweep.kind", kind),
		attribute.String("stalesweep.action", action),
	))
}

// Failed counts one resource whose mutation failed after retries.
func (r *SweepRecorder) Failed(ctx context.Context, kind string) {
	if r == nil {
		return
	}
	r.errs.Add(ctx, 1, metric.WithAttributes(attribute.String("stalesweep.kind", kind)))
}
