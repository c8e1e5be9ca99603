// Package observability provides structured logging and metrics for the gateway.
//
// This package implements:
//   - zap logger construction (JSON or console) with an optional rotating file sink
//   - HTTP request logging with request ID propagation
//   - OpenTelemetry counters for gate decisions, exported in Prometheus format
package observability
