// Package visibility models "a sentinel element entered/left the viewport" as
// a subscription. Subscribers are owned by the view and cancelled with it.
package visibility

import "sync"

// Event is delivered whenever the sentinel's visibility changes.
type Event struct {
	InView bool
}

// Trigger emits visibility events to subscribers until they cancel.
type Trigger interface {
	Subscribe(fn func(Event)) (cancel func())
}

// Sentinel is a Trigger driven by Set. It only emits on changes.
type Sentinel struct {
	mu     sync.Mutex
	inView bool
	next   uint64
	subs   map[uint64]func(Event)
}

var _ Trigger = (*Sentinel)(nil)

func NewSentinel() *Sentinel {
	return &Sentinel{subs: make(map[uint64]func(Event))}
}

// Subscribe registers fn. The returned cancel is idempotent; fn is never
// called after cancel returns unless a delivery was already in progress.
func (s *Sentinel) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Set records the sentinel's visibility and notifies subscribers when it
// changed. Callbacks run on the caller's goroutine.
func (s *Sentinel) Set(inView bool) {
	s.mu.Lock()
	if s.inView == inView {
		s.mu.Unlock()
		return
	}
	s.inView = inView
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	ev := Event{InView: inView}
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Sentinel) InView() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inView
}

// Subscribers reports the number of live subscriptions.
func (s *Sentinel) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
