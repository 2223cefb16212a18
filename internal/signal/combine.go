package signal

// Combine2 merges two signals through f, emitting whenever either
// operand emits. Until an operand has emitted, its seed stands in. This
// mirrors the engine's boolean combinator semantics: the first combined
// value can be produced before every operand has reported.
func Combine2[A, B, T any](sa Signal[A], sb Signal[B], seedA A, seedB B, f func(A, B) T) Signal[T] {
	return Func[T](func(o Observer[T]) Teardown {
		la, lb := seedA, seedB

		ta := sa.Subscribe(func(v A) {
			la = v
			o(f(la, lb))
		})
		tb := sb.Subscribe(func(v B) {
			lb = v
			o(f(la, lb))
		})

		return func() {
			ta()
			tb()
		}
	})
}

// CombineSlice merges N same-typed signals, emitting the full reduction
// whenever any operand emits. Each operand starts at seed until its
// first emission; reduce receives the current operand values in operand
// order.
func CombineSlice[T, U any](sigs []Signal[T], seed T, reduce func([]T) U) Signal[U] {
	return Func[U](func(o Observer[U]) Teardown {
		latest := make([]T, len(sigs))
		for i := range latest {
			latest[i] = seed
		}

		teardowns := make([]Teardown, len(sigs))
		for i, s := range sigs {
			idx := i
			teardowns[i] = s.Subscribe(func(v T) {
				latest[idx] = v
				// Recompute the full reduction on every change;
				// incremental bookkeeping is not worth the bug
				// surface at these operand counts.
				snapshot := make([]T, len(latest))
				copy(snapshot, latest)
				o(reduce(snapshot))
			})
		}

		return func() {
			for _, td := range teardowns {
				td()
			}
		}
	})
}

