// Package observability provides structured logging, Prometheus metrics,
// health checks, optional OpenTelemetry tracing, and graceful shutdown.
package observability
