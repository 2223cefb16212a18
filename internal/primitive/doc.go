// Package primitive builds the named, cached measurement signals at the
// heart of the rule engine.
//
// A primitive spec declares a metric (distance, angle, velocity,
// acceleration, projection, or an RMS variant), up to two feature
// references on an entity pair, a comparator condition, and optional
// unit and smoothing parameters. The factory compiles a spec into a
// live signal of payloads ({value, isValid} pairs) and caches it per
// (primitive id, pair key) with reference counting: get increments,
// release decrements, and the entry is evicted exactly when the count
// reaches zero.
//
// Validation happens once per instantiation; malformed specs are
// rejected with the sentinel errors in errors.go before any signal is
// built.
package primitive
