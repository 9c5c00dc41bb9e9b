// Package scoring compares feature vectors to produce collaborative scores.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/cinerank/internal/domain/model"
)

// NeutralPrior is the collaborative score when nothing has been rated.
const NeutralPrior = 0.5

// UnresolvedPolicy decides what happens to a rating whose item is not in the
// catalog being ranked.
type UnresolvedPolicy int

const (
	// UnresolvedDrop ignores the rating.
	UnresolvedDrop UnresolvedPolicy = iota
	// UnresolvedFallback compares the candidate with itself in place of the
	// missing item.
	UnresolvedFallback
)

// String implements fmt.Stringer.
func (p UnresolvedPolicy) String() string {
	if p == UnresolvedFallback {
		return "fallback"
	}
	return "drop"
}

// ParseUnresolvedPolicy parses "drop" or "fallback" (case-insensitive).
func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return UnresolvedDrop, nil
	case "fallback":
		return UnresolvedFallback, nil
	default:
		return UnresolvedDrop, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Cosine returns the cosine similarity of a and b. A zero vector on either
// side yields 0.
func Cosine(a, b model.FeatureVector) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RatedVectors holds the extracted vectors of a user's rated items.
// Unresolved counts ratings whose item was missing from the catalog.
type RatedVectors struct {
	Vectors    []model.FeatureVector
	Unresolved int
}

// Len returns the number of ratings the vectors were built from.
func (r RatedVectors) Len() int {
	return len(r.Vectors) + r.Unresolved
}

// Option applies a configuration option to the CollaborativeScorer.
type Option func(*CollaborativeScorer)

// WithUnresolvedPolicy sets the policy for ratings of unknown items.
func WithUnresolvedPolicy(p UnresolvedPolicy) Option {
	return func(s *CollaborativeScorer) {
		s.policy = p
	}
}

// CollaborativeScorer scores a candidate against a user's rated items.
// It holds no mutable state and is safe for concurrent use.
type CollaborativeScorer struct {
	policy UnresolvedPolicy
}

// NewCollaborativeScorer creates a scorer with configuration options.
func NewCollaborativeScorer(opts ...Option) *CollaborativeScorer {
	s := &CollaborativeScorer{policy: UnresolvedDrop}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the configured unresolved-rating policy.
func (s *CollaborativeScorer) Policy() UnresolvedPolicy {
	return s.policy
}

// Score returns the mean cosine similarity between candidate and every rated
// vector, or NeutralPrior when there is nothing to compare against.
func (s *CollaborativeScorer) Score(candidate model.FeatureVector, rated RatedVectors) float64 {
	n := len(rated.Vectors)
	fallback := 0
	if s.policy == UnresolvedFallback {
		fallback = rated.Unresolved
	}
	if n+fallback == 0 {
		return NeutralPrior
	}

	var sum float64
	for _, v := range rated.Vectors {
		sum += Cosine(candidate, v)
	}
	if fallback > 0 {
		sum += float64(fallback) * Cosine(candidate, candidate)
	}
	return sum / float64(n+fallback)
}
