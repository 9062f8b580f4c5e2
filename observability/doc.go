// Package observability wires OpenTelemetry tracing and metrics.
//
// When tracing is disabled the global no-op providers stay in place, so
// spans and counters can be used unconditionally:
//
//	ctx, op := observability.StartOperation(ctx, counters, "assign_alias")
//	err := doWork(ctx)
//	op.End(ctx, err)
//
// Exporters speak OTLP over HTTP. Component registers the providers with the
// component registry so they are flushed on shutdown.
package observability
