package signal

// Map transforms each emission of s through f.
func Map[T, U any](s Signal[T], f func(T) U) Signal[U] {
	return Func[U](func(o Observer[U]) Teardown {
		return s.Subscribe(func(v T) {
			o(f(v))
		})
	})
}

// Filter passes through only emissions matching pred.
func Filter[T any](s Signal[T], pred func(T) bool) Signal[T] {
	return Func[T](func(o Observer[T]) Teardown {
		return s.Subscribe(func(v T) {
			if pred(v) {
				o(v)
			}
		})
	})
}

// Collect combines map and filter: f returns the mapped value and
// whether it should be emitted.
func Collect[T, U any](s Signal[T], f func(T) (U, bool)) Signal[U] {
	return Func[U](func(o Observer[U]) Teardown {
		return s.Subscribe(func(v T) {
			if u, ok := f(v); ok {
				o(u)
			}
		})
	})
}

// DistinctBy suppresses emissions equal to the previous one under eq.
// The first emission always passes. State is kept per subscription.
func DistinctBy[T any](s Signal[T], eq func(prev, cur T) bool) Signal[T] {
	return Func[T](func(o Observer[T]) Teardown {
		var prev T
		seen := false
		return s.Subscribe(func(v T) {
			if seen && eq(prev, v) {
				return
			}
			prev = v
			seen = true
			o(v)
		})
	})
}

// Scan folds emissions into an accumulator, emitting each intermediate
// value. The seed itself is not emitted.
func Scan[T, U any](s Signal[T], seed U, f func(acc U, v T) U) Signal[U] {
	return Func[U](func(o Observer[U]) Teardown {
		acc := seed
		return s.Subscribe(func(v T) {
			acc = f(acc, v)
			o(acc)
		})
	})
}

// Pairwise emits (previous, current) pairs, starting with the second
// upstream emission.
func Pairwise[T any](s Signal[T]) Signal[[2]T] {
	return Func[[2]T](func(o Observer[[2]T]) Teardown {
		var prev T
		seen := false
		return s.Subscribe(func(v T) {
			if seen {
				o([2]T{prev, v})
			}
			prev = v
			seen = true
		})
	})
}

