// Package metrics exposes Prometheus instrumentation for Spatial Core.
//
// A Metrics instance owns a private registry carrying engine gauges
// (entity and rule counts, connection state), counters (pose updates,
// rule events), and a tick-duration histogram, alongside the standard
// Go and process collectors.
//
// Metrics implements rule.Sink so rule events are counted by attaching
// the instance to the rule registry. The exposition endpoint is mounted
// from Handler().
//
// # Usage
//
//	m := metrics.New()
//	ruleRegistry.AddSink(m)
//	mux.Handle("/metrics", m.Handler())
package metrics
