package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("rating queue full")
	ErrClosed = errors.New("rating queue closed")
)
