package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one traced and counted unit of work.
type Operation struct {
	name     string
	start    time.Time
	span     trace.Span
	counters *Counters
}

// StartOperation opens a span named after the operation. counters may be nil.
func StartOperation(ctx context.Context, counters *Counters, name string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, "speaker."+name)
	span.SetAttributes(attribute.String(AttrOperation, name))
	span.SetAttributes(attrs...)
	return ctx, &Operation{
		name:     name,
		start:    time.Now(),
		span:     span,
		counters: counters,
	}
}

// Span returns the operation's span.
func (o *Operation) Span() trace.Span {
	return o.span
}

// Duration returns the time since the operation started.
func (o *Operation) Duration() time.Duration {
	return time.Since(o.start)
}

// End closes the span and records the outcome.
func (o *Operation) End(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	d := o.Duration()
	o.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, d.Milliseconds()),
	)
	o.span.End()
	o.counters.RecordOperation(ctx, o.name, status, d)
}
