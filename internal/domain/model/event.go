// Package model contains domain models passed between layers.
package model

import "time"

// RatingEvent represents a rating submitted by a client.
// Fields mirror the OpenAPI schema for /ratings.
type RatingEvent struct {
	EventID string    // unique id for idempotency
	UserID  string    // rating author
	ItemID  string    // rated catalog item
	Rating  float64   // rating value in [0,5]
	TS      time.Time // event timestamp
}
