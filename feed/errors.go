package feed

import "errors"

var (
	// ErrClosed is returned for work that completed after Close; its result
	// was discarded.
	ErrClosed     = errors.New("feed: loader closed")
	ErrNilSource  = errors.New("feed: nil item source")
	ErrNilCounter = errors.New("feed: nil view counter")
	ErrNilTrigger = errors.New("feed: nil visibility trigger")
)
