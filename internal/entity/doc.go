// Package entity models the tracked objects the engine measures:
// rectangular physical or virtual surfaces with a world pose, a declared
// physical size, and an optional pixel resolution.
//
// The registry is the borrow point between the tracking subsystem and
// the engine: the tracking bridge registers entities and feeds their raw
// poses; the engine resolves entity pairs from rule selectors and reads
// poses once per tick. Unregistering an entity notifies eviction hooks
// so derived signal caches can be torn down explicitly rather than
// relying on garbage collection.
package entity
