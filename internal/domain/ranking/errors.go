package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidItem     = errors.New("invalid catalog item")
	ErrNotFound        = errors.New("item not found")
)
