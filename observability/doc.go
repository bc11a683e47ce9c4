// Package observability wires OpenTelemetry tracing and metrics.
//
//	shutdown, err := observability.Init(ctx, cfg)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "transcribe.dispatch")
//	defer span.End()
//
// Without Init the global no-op providers are used, so spans and metrics are
// free to create in tests and in the CLI.
package observability
