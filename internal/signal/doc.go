// Package signal implements the small push-based signal substrate the
// engine is built on: multicast sources, synchronous transformation
// operators, reference-counted sharing, and the tick clock that drives
// pose sampling.
//
// The model is single-threaded and cooperative: one tick source drives
// all emissions, every operator is a pure synchronous transform reacting
// within the same tick, and propagation order within a tick follows
// subscription order deterministically. Sources and shared signals still
// guard their subscriber tables with mutexes so a multi-threaded host
// (MQTT callbacks, HTTP handlers) can subscribe and tear down safely;
// value propagation itself is never concurrent.
//
// Subscriptions return a Teardown. Tearing down is idempotent, and for
// shared signals the last teardown disconnects the underlying
// computation.
package signal
