// Package telemetry wires OpenTelemetry tracing and metrics for the
// request pipeline: a span per inbound request, traffic counters for
// admission decisions and cache lookups, and exporter selection via
// configuration.
package telemetry
