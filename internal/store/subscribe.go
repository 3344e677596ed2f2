package store

import "sync"

// Subscribe registers a function that will be called with a snapshot of the state after
// every mutation. The returned function unsubscribes, it's safe to call it multiple times.
//
// Notifications are delivered in order on a dedicated goroutine per subscriber and coalesced:
// a slow subscriber only receives the latest snapshot. Subscribers can call the store and
// anything that mutates it without deadlocking.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	sub := &subscriber{
		fn:     fn,
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = sub
	s.mu.Unlock()

	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(sub.stop)
		})
	}
}

type subscriber struct {
	fn      func(Snapshot)
	mu      sync.Mutex
	pending *Snapshot
	signal  chan struct{}
	stop    chan struct{}
}

func (s *subscriber) push(snap Snapshot) {
	s.mu.Lock()
	s.pending = &snap
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.signal:
			s.mu.Lock()
			snap := s.pending
			s.pending = nil
			s.mu.Unlock()

			if snap != nil {
				s.fn(*snap)
			}
		}
	}
}
