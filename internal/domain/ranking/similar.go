package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/cinerank/internal/domain/model"
)

// Item-to-item similarity weights.
const (
	similarGenreWeight  = 0.6
	similarYearWeight   = 0.2
	similarRatingWeight = 0.2
	similarYearWindow   = 50.0

	// DefaultSimilarLimit is the number of similar items returned by default.
	DefaultSimilarLimit = 6
)

// Similar returns at most limit items most alike to itemID, excluding itself.
// Similarity mixes genre overlap, release-year closeness and rating.
func (r *Ranker) Similar(ctx context.Context, catalog []model.CatalogItem, itemID string, limit int) ([]model.Recommendation, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}
	index, err := indexCatalog(catalog)
	if err != nil {
		return nil, err
	}
	target, ok := index[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}

	candidates := make([]int, 0, len(catalog))
	for i := range catalog {
		if catalog[i].ID != itemID {
			candidates = append(candidates, i)
		}
	}

	scored := make([]model.Recommendation, len(candidates))
	err = r.forEach(ctx, len(candidates), func(i int) {
		item := &catalog[candidates[i]]
		content := similarGenreWeight*genreOverlap(target.Genres, item.Genres) +
			similarYearWeight*yearCloseness(target.Year(), item.Year())
		scored[i] = model.Recommendation{
			ItemID:       item.ID,
			Title:        item.Title,
			Score:        content + similarRatingWeight*ratingWeight(item),
			ContentScore: content,
		}
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// genreOverlap is |a ∩ b| / max(|a|, |b|) over distinct genres.
func genreOverlap(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, g := range a {
		setA[g] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	common := 0
	for _, g := range b {
		if _, dup := setB[g]; dup {
			continue
		}
		setB[g] = struct{}{}
		if _, ok := setA[g]; ok {
			common++
		}
	}
	denom := len(setA)
	if len(setB) > denom {
		denom = len(setB)
	}
	if denom == 0 {
		return 0
	}
	return float64(common) / float64(denom)
}

func yearCloseness(a, b int) float64 {
	return math.Max(0, 1-math.Abs(float64(a-b))/similarYearWindow)
}

func ratingWeight(item *model.CatalogItem) float64 {
	if item.RatingCount <= 0 {
		return 0
	}
	return item.AverageRating / 5
}
