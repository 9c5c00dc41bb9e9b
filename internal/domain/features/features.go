// Package features turns catalog items into fixed-length feature vectors.
package features

import (
	"math"

	"github.com/okian/cinerank/internal/domain/model"
)

// Normalisation constants.
const (
	maxRating            = 5.0
	popularitySaturation = 1000.0
	recencyBaseYear      = 1970
	recencySpanYears     = 53.0
)

// ClampPolicy controls whether vector components are forced into [0,1].
type ClampPolicy int

const (
	// ClampNone passes raw values through. A rating above 5 yields a
	// ratingScore above 1 and a pre-1970 release yields negative recency.
	ClampNone ClampPolicy = iota
	// ClampUnit clamps every component to [0,1].
	ClampUnit
)

// GenreSet is a user's preferred genres in lookup form.
type GenreSet map[string]struct{}

// NewGenreSet builds a GenreSet. Matching is exact, including case.
func NewGenreSet(genres []string) GenreSet {
	set := make(GenreSet, len(genres))
	for _, g := range genres {
		set[g] = struct{}{}
	}
	return set
}

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithClampPolicy sets the clamp policy.
func WithClampPolicy(p ClampPolicy) Option {
	return func(e *Extractor) {
		e.clamp = p
	}
}

// Extractor computes feature vectors. It holds no mutable state and is safe
// for concurrent use.
type Extractor struct {
	clamp ClampPolicy
}

// NewExtractor creates an Extractor with configuration options.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{clamp: ClampNone}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ClampPolicy returns the configured policy.
func (e *Extractor) ClampPolicy() ClampPolicy {
	return e.clamp
}

// Extract computes the feature vector of item for a user preferring userGenres.
func (e *Extractor) Extract(item *model.CatalogItem, userGenres GenreSet) model.FeatureVector {
	var v model.FeatureVector
	v[model.FeatureGenreMatch] = GenreMatch(item.Genres, userGenres)
	v[model.FeatureRatingScore] = item.AverageRating / maxRating
	v[model.FeaturePopularity] = math.Min(1, float64(item.RatingCount)/popularitySaturation)
	v[model.FeatureRecency] = math.Min(1, float64(item.Year()-recencyBaseYear)/recencySpanYears)

	if e.clamp == ClampUnit {
		for i := range v {
			v[i] = clampUnit(v[i])
		}
	}
	return v
}

// GenreMatch returns |genres ∩ preferred| / max(1, |genres|), treating the
// item's genres as a set.
func GenreMatch(genres []string, preferred GenreSet) float64 {
	if len(genres) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(genres))
	matched := 0
	for _, g := range genres {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		if _, ok := preferred[g]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(seen))
}

func clampUnit(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
