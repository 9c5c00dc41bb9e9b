package loadgen

import "errors"

var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrEmptyCatalog = errors.New("catalog is empty")
	ErrUnexpected   = errors.New("unexpected response")
	ErrVerification = errors.New("verification failed")
)
