// Package tracing integrates OpenTelemetry with the nodeflow engine. Every
// node processing run is recorded as a span; applications that do not
// enable tracing get no-op spans from the global provider.
package tracing
