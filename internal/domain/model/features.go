package model

// Feature vector component positions.
const (
	FeatureGenreMatch = iota
	FeatureRatingScore
	FeaturePopularity
	FeatureRecency

	FeatureCount
)

// FeatureVector is the fixed-order numeric summary of an item:
// genre match, rating score, popularity and recency.
type FeatureVector [FeatureCount]float64

// GenreMatch is the share of the item's genres the user prefers.
func (v FeatureVector) GenreMatch() float64 { return v[FeatureGenreMatch] }

// RatingScore is the item's average rating scaled by the maximum rating.
func (v FeatureVector) RatingScore() float64 { return v[FeatureRatingScore] }

// Popularity is the item's rating count, saturating at 1.
func (v FeatureVector) Popularity() float64 { return v[FeaturePopularity] }

// Recency places the release year on the feature scale, capped at 1.
func (v FeatureVector) Recency() float64 { return v[FeatureRecency] }
