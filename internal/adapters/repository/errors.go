package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("item not found")
	ErrInvalidItem   = errors.New("invalid catalog item")
	ErrInvalidRating = errors.New("invalid rating")
	ErrInvalidUser   = errors.New("invalid user id")
	ErrInvalidFilter = errors.New("invalid listing filter")
	ErrClosed        = errors.New("store closed")
)
