package core

import (
	"context"
	"time"

	"dormcore/pkg/domain"
)

// Logger is the structured logging contract used by the repository.
type Logger = domain.Logger

type noopLogger = domain.NopLogger

// Clock supplies the current time. Tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// MetricsRecorder receives one observation per repository operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens a span per repository operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended once with the operation result.
type TraceSpan interface {
	End(err error)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the repository logger. Nil keeps the no-op logger.
func WithLogger(logger Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the clock used for "today" computations.
func WithClock(clock Clock) Option {
	return func(r *Repository) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithMetricsRecorder installs an operation metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(r *Repository) {
		if recorder != nil {
			r.metrics = recorder
		}
	}
}

// WithTracer installs an operation tracer.
func WithTracer(tracer Tracer) Option {
	return func(r *Repository) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithSeed controls whether an empty student collection is seeded with the
// sample dataset on Open. Seeding is on by default.
func WithSeed(enabled bool) Option {
	return func(r *Repository) {
		r.seed = enabled
	}
}
