// Package ranking blends content and collaborative scores into a ranked list
// of recommendations.
package ranking

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/okian/cinerank/internal/domain/features"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/scoring"
)

// Blend weights and defaults.
const (
	ContentWeight       = 0.6
	CollaborativeWeight = 0.4
	DefaultLimit        = 10

	defaultParallelThreshold = 2048
)

// Result is a ranked list plus counters describing how it was produced.
type Result struct {
	Items []model.Recommendation
	// Candidates is the number of unrated items that were scored.
	Candidates int
	// Unresolved is the number of ratings whose item was not in the catalog.
	Unresolved int
}

// Ranker produces top-K recommendations. It is stateless between calls and
// safe for concurrent use.
type Ranker struct {
	extractor         *features.Extractor
	scorer            *scoring.CollaborativeScorer
	workers           int
	parallelThreshold int
}

// New creates a Ranker with configuration options.
func New(opts ...Option) *Ranker {
	r := &Ranker{
		extractor:         features.NewExtractor(),
		scorer:            scoring.NewCollaborativeScorer(),
		workers:           runtime.NumCPU(),
		parallelThreshold: defaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns at most limit unrated catalog items for profile, best first.
// Equal scores keep catalog order.
func (r *Ranker) Rank(ctx context.Context, catalog []model.CatalogItem, profile *model.UserProfile, limit int) ([]model.Recommendation, error) {
	res, err := r.RankDetailed(ctx, catalog, profile, limit)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// RankDetailed is Rank with counters.
func (r *Ranker) RankDetailed(ctx context.Context, catalog []model.CatalogItem, profile *model.UserProfile, limit int) (Result, error) {
	if limit <= 0 {
		return Result{}, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}
	if profile == nil {
		profile = &model.UserProfile{}
	}
	index, err := indexCatalog(catalog)
	if err != nil {
		return Result{}, err
	}

	prefs := features.NewGenreSet(profile.PreferredGenres)
	rated := profile.RatedSet()
	ratedVectors := r.ratedVectors(index, profile, prefs)

	candidates := make([]int, 0, len(catalog))
	for i := range catalog {
		if _, seen := rated[catalog[i].ID]; !seen {
			candidates = append(candidates, i)
		}
	}

	scored := make([]model.Recommendation, len(candidates))
	err = r.forEach(ctx, len(candidates), func(i int) {
		item := &catalog[candidates[i]]
		v := r.extractor.Extract(item, prefs)
		content := (v.GenreMatch() + v.RatingScore()) / 2
		collab := r.scorer.Score(v, ratedVectors)
		scored[i] = model.Recommendation{
			ItemID:             item.ID,
			Title:              item.Title,
			Score:              ContentWeight*content + CollaborativeWeight*collab,
			ContentScore:       content,
			CollaborativeScore: collab,
		}
	})
	if err != nil {
		return Result{}, err
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	return Result{
		Items:      scored,
		Candidates: len(candidates),
		Unresolved: ratedVectors.Unresolved,
	}, nil
}

// ratedVectors extracts one vector per rating, once per request.
func (r *Ranker) ratedVectors(index map[string]*model.CatalogItem, profile *model.UserProfile, prefs features.GenreSet) scoring.RatedVectors {
	out := scoring.RatedVectors{Vectors: make([]model.FeatureVector, 0, len(profile.Ratings))}
	for _, rating := range profile.Ratings {
		item, ok := index[rating.ItemID]
		if !ok {
			out.Unresolved++
			continue
		}
		out.Vectors = append(out.Vectors, r.extractor.Extract(item, prefs))
	}
	return out
}

// indexCatalog maps identifiers to items. The first occurrence of a duplicate
// identifier wins.
func indexCatalog(catalog []model.CatalogItem) (map[string]*model.CatalogItem, error) {
	index := make(map[string]*model.CatalogItem, len(catalog))
	for i := range catalog {
		id := catalog[i].ID
		if id == "" {
			return nil, fmt.Errorf("%w: empty identifier at position %d", ErrInvalidItem, i)
		}
		if _, dup := index[id]; !dup {
			index[id] = &catalog[i]
		}
	}
	return index, nil
}

// forEach calls fn for every index in [0,n). Large batches are split into
// contiguous chunks scored concurrently; fn must only write to slot i.
func (r *Ranker) forEach(ctx context.Context, n int, fn func(i int)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ranking cancelled: %w", err)
	}
	workerCount := minInt(r.workers, n)
	if n < r.parallelThreshold || workerCount < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return nil
	}

	perWorker := n / workerCount
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		start := w * perWorker
		end := start + perWorker
		if w == workerCount-1 {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					return
				default:
					fn(i)
				}
			}
		}(start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ranking cancelled: %w", err)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
