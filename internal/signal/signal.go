package signal

import (
	"sort"
	"sync"
)

// Observer receives values emitted by a Signal.
type Observer[T any] func(T)

// Teardown cancels a subscription. Calling it more than once is safe.
type Teardown func()

// Signal is a push-based stream of values. Subscribing attaches an
// observer and returns a Teardown that detaches it.
type Signal[T any] interface {
	Subscribe(Observer[T]) Teardown
}

// Func adapts a subscribe function into a Signal.
type Func[T any] func(Observer[T]) Teardown

// Subscribe implements Signal.
func (f Func[T]) Subscribe(o Observer[T]) Teardown { return f(o) }

// Source is a multicast origin signal. Values pushed via Emit are
// delivered synchronously to all current observers, in subscription
// order (deterministic within a tick).
type Source[T any] struct {
	mu     sync.Mutex
	nextID int
	obs    map[int]Observer[T]
}

// NewSource creates an empty Source.
func NewSource[T any]() *Source[T] {
	return &Source[T]{obs: make(map[int]Observer[T])}
}

// Subscribe attaches an observer.
func (s *Source[T]) Subscribe(o Observer[T]) Teardown {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.obs[id] = o
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.obs, id)
			s.mu.Unlock()
		})
	}
}

// Emit pushes a value to all observers. Observers are invoked outside
// the lock, in subscription order.
func (s *Source[T]) Emit(v T) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.obs))
	for id := range s.obs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]Observer[T], len(ids))
	for i, id := range ids {
		observers[i] = s.obs[id]
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(v)
	}
}

// ObserverCount returns the number of attached observers.
func (s *Source[T]) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.obs)
}

// Just returns a signal that emits the given value once to each new
// subscriber and then stays silent.
func Just[T any](v T) Signal[T] {
	return Func[T](func(o Observer[T]) Teardown {
		o(v)
		return func() {}
	})
}

// Never returns a signal that never emits.
func Never[T any]() Signal[T] {
	return Func[T](func(Observer[T]) Teardown {
		return func() {}
	})
}
