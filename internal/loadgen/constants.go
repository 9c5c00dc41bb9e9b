package loadgen

import "time"

// HTTP status code constants.
const (
	StatusOK              = 200
	StatusAccepted        = 202
	StatusTooManyRequests = 429
	StatusServerError     = 500
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	ProcessingPollPeriod = 100 * time.Millisecond
	ProgressInterval     = time.Second
	CatalogPageSize      = 100
)

// Circuit breaker settings for the HTTP client.
const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 5 * time.Second
	breakerHalfOpenRequests = 1
)

// Rating scale used by the generator, in half-star steps.
const (
	maxRatingSteps = 10
	ratingStep     = 0.5
)
