package feedcache

import (
	"errors"
)

var (
	ErrEmptyKey   = errors.New("feedcache: empty key")
	ErrNilCompute = errors.New("feedcache: nil compute function")
)
