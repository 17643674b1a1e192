package feed

type State int

const (
	Unstarted State = iota
	Idle
	FetchingPage
	EnrichingPage
	Exhausted
	Errored
	Closed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Idle:
		return "idle"
	case FetchingPage:
		return "fetching_page"
	case EnrichingPage:
		return "enriching_page"
	case Exhausted:
		return "exhausted"
	case Errored:
		return "errored"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Snapshot is a point-in-time copy of a loader's state.
type Snapshot struct {
	// Seq increases with every state change. Update callbacks may observe
	// snapshots out of order; consumers keep the one with the highest Seq.
	Seq    uint64
	State  State
	Err    error
	Cursor Cursor
}

// ViewCount returns the count to display for id; ok=false means no count is
// available (yet).
func (s Snapshot) ViewCount(id string) (int64, bool) {
	return s.Cursor.Lookup(id)
}
