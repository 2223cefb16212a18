package signal

import "sync"

// Shared is a reference-counted multicast wrapper around an upstream
// signal. The first subscription connects the upstream computation; the
// last teardown disconnects it. Re-subscribing after full teardown
// reconnects.
//
// This is the "hot signal" building block: expensive derivations (pose
// gating, primitive pipelines) are computed once and fanned out to any
// number of subscribers.
type Shared[T any] struct {
	upstream Signal[T]

	mu     sync.Mutex
	source *Source[T]
	refs   int
	stop   Teardown
}

// Share wraps upstream in a reference-counted multicast signal.
func Share[T any](upstream Signal[T]) *Shared[T] {
	return &Shared[T]{upstream: upstream}
}

// Subscribe attaches an observer, connecting the upstream on the first
// subscription.
func (s *Shared[T]) Subscribe(o Observer[T]) Teardown {
	s.mu.Lock()
	if s.source == nil {
		s.source = NewSource[T]()
	}
	src := s.source
	s.refs++
	connect := s.refs == 1
	s.mu.Unlock()

	// Attach before connecting so a synchronously-emitting upstream
	// reaches this observer.
	inner := src.Subscribe(o)

	if connect {
		stop := s.upstream.Subscribe(src.Emit)
		s.mu.Lock()
		s.stop = stop
		s.mu.Unlock()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			inner()
			s.mu.Lock()
			s.refs--
			var stop Teardown
			if s.refs == 0 {
				stop = s.stop
				s.stop = nil
				s.source = nil
			}
			s.mu.Unlock()
			if stop != nil {
				stop()
			}
		})
	}
}

// Refs returns the current subscriber count.
func (s *Shared[T]) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}
