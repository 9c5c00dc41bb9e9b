package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrUnknownPolicy = errors.New("unknown unresolved policy")
)
