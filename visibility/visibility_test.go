package visibility

import "testing"

func TestSentinelEmitsOnChangeOnly(t *testing.T) {
	s := NewSentinel()
	var got []Event
	cancel := s.Subscribe(func(ev Event) { got = append(got, ev) })
	defer cancel()

	s.Set(false) // unchanged from initial
	s.Set(true)
	s.Set(true)
	s.Set(false)

	want := []Event{{InView: true}, {InView: false}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if s.InView() {
		t.Fatalf("InView should be false")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	s := NewSentinel()
	n := 0
	cancel := s.Subscribe(func(Event) { n++ })
	s.Set(true)
	cancel()
	cancel() // idempotent
	s.Set(false)
	s.Set(true)

	if n != 1 {
		t.Fatalf("deliveries = %d, want 1", n)
	}
	if s.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", s.Subscribers())
	}
}
