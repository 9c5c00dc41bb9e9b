package ranking

import (
	"github.com/okian/cinerank/internal/domain/features"
	"github.com/okian/cinerank/internal/domain/scoring"
)

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithExtractor sets the feature extractor.
func WithExtractor(e *features.Extractor) Option {
	return func(r *Ranker) {
		if e != nil {
			r.extractor = e
		}
	}
}

// WithScorer sets the collaborative scorer.
func WithScorer(s *scoring.CollaborativeScorer) Option {
	return func(r *Ranker) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithWorkers sets how many goroutines score candidates in parallel.
func WithWorkers(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithParallelThreshold sets the candidate count from which scoring is
// spread across workers. Smaller batches are scored on the calling goroutine.
func WithParallelThreshold(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.parallelThreshold = n
		}
	}
}
