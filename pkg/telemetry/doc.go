// Package telemetry observes the runtime from the outside.
//
// Metrics are Prometheus collectors registered on a caller-chosen registry.
// Tracing uses the OpenTelemetry API; Setup installs an SDK provider with a
// stdout exporter for local inspection. Both attach through the public
// subscription API, so the observed primitives need no instrumentation of
// their own:
//
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	sub := telemetry.ObserveList(m, list)
//	defer sub.Dispose()
package telemetry
