// Package telemetry wires the OpenTelemetry trace pipeline: an OTLP
// exporter, sampling, and graceful shutdown. Metrics are served by the
// Prometheus registry and are not exported through here.
//
// Telemetry failures never abort a run; the pipeline degrades to no-op
// tracers instead.
package telemetry
