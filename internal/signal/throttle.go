package signal

import "time"

// ThrottleCount passes one emission in every n. The first emission
// always passes. n <= 1 disables throttling.
func ThrottleCount[T any](s Signal[T], n int) Signal[T] {
	if n <= 1 {
		return s
	}
	return Func[T](func(o Observer[T]) Teardown {
		count := 0
		return s.Subscribe(func(v T) {
			if count%n == 0 {
				o(v)
			}
			count++
		})
	})
}

// ThrottleTime suppresses emissions closer together than minGap, using
// at to extract each value's timestamp. The first emission always
// passes. A non-positive minGap disables throttling.
//
// Timestamps come from the values themselves (tick time), not the wall
// clock, so throttled streams stay deterministic under test clocks.
func ThrottleTime[T any](s Signal[T], minGap time.Duration, at func(T) time.Time) Signal[T] {
	if minGap <= 0 {
		return s
	}
	return Func[T](func(o Observer[T]) Teardown {
		var last time.Time
		seen := false
		return s.Subscribe(func(v T) {
			t := at(v)
			if seen && t.Sub(last) < minGap {
				return
			}
			last = t
			seen = true
			o(v)
		})
	})
}
