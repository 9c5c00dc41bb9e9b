package repository

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
)

func validateRating(userID, itemID string, rating float64) error {
	if userID == "" {
		return ErrInvalidUser
	}
	if itemID == "" {
		return fmt.Errorf("empty item id: %w", ErrInvalidItem)
	}
	if math.IsNaN(rating) || rating < 0 || rating > MaxRating {
		return fmt.Errorf("rating %v outside [0,%v]: %w", rating, MaxRating, ErrInvalidRating)
	}
	return nil
}

func validateWatch(userID, itemID string) error {
	if userID == "" {
		return ErrInvalidUser
	}
	if itemID == "" {
		return fmt.Errorf("empty item id: %w", ErrInvalidItem)
	}
	return nil
}

func validateFilter(f ItemFilter) error {
	if f.Limit < 0 || f.Skip < 0 {
		return fmt.Errorf("limit=%d skip=%d: %w", f.Limit, f.Skip, ErrInvalidFilter)
	}
	return nil
}

// applyRating upserts the rating in profile and moves the item's running
// average. It reports whether the rating is new.
func applyRating(profile *model.UserProfile, item *model.CatalogItem, rating float64) bool {
	for i := range profile.Ratings {
		if profile.Ratings[i].ItemID != item.ID {
			continue
		}
		old := profile.Ratings[i].Rating
		profile.Ratings[i].Rating = rating
		if item.RatingCount > 0 {
			n := float64(item.RatingCount)
			item.AverageRating = (item.AverageRating*n - old + rating) / n
		} else {
			item.AverageRating = rating
			item.RatingCount = 1
		}
		return false
	}

	profile.Ratings = append(profile.Ratings, model.UserRating{ItemID: item.ID, Rating: rating})
	n := float64(max(item.RatingCount, 0))
	item.AverageRating = (item.AverageRating*n + rating) / (n + 1)
	item.RatingCount = max(item.RatingCount, 0) + 1
	return true
}

// keepAggregates carries the stored rating aggregate over to a replacement.
func keepAggregates(stored model.CatalogItem, item *model.CatalogItem) {
	item.AverageRating = stored.AverageRating
	item.RatingCount = stored.RatingCount
}

// addToWatchlist moves itemID to the newest end of the watchlist. It reports
// whether the item was not saved before.
func addToWatchlist(profile *model.UserProfile, itemID string, at time.Time) bool {
	existed := removeFromWatchlist(profile, itemID)
	profile.Watchlist = append(profile.Watchlist, model.WatchlistEntry{ItemID: itemID, AddedAt: at.UTC()})
	return !existed
}

func removeFromWatchlist(profile *model.UserProfile, itemID string) bool {
	for i := range profile.Watchlist {
		if profile.Watchlist[i].ItemID == itemID {
			profile.Watchlist = slices.Delete(profile.Watchlist, i, i+1)
			return true
		}
	}
	return false
}

func inWatchlist(profile *model.UserProfile, itemID string) bool {
	return slices.ContainsFunc(profile.Watchlist, func(e model.WatchlistEntry) bool {
		return e.ItemID == itemID
	})
}

// newestFirst returns a reversed copy of an oldest-first watchlist.
func newestFirst(entries []model.WatchlistEntry) []model.WatchlistEntry {
	out := slices.Clone(entries)
	slices.Reverse(out)
	if out == nil {
		out = []model.WatchlistEntry{}
	}
	return out
}

// filterItems applies f to items, which must already be ordered by ID.
func filterItems(items []model.CatalogItem, f ItemFilter) ([]model.CatalogItem, int) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	genre := strings.TrimSpace(f.Genre)

	matched := make([]model.CatalogItem, 0, len(items))
	for i := range items {
		if genre != "" && !items[i].HasGenre(genre) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(items[i].Title), search) {
			continue
		}
		matched = append(matched, items[i])
	}

	total := len(matched)
	if f.Skip >= total {
		return []model.CatalogItem{}, total
	}
	page := matched[f.Skip:]
	if f.Limit > 0 && len(page) > f.Limit {
		page = page[:f.Limit]
	}
	return page, total
}

func sortByID(items []model.CatalogItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

func cloneItem(item model.CatalogItem) model.CatalogItem {
	item.Genres = slices.Clone(item.Genres)
	item.Cast = slices.Clone(item.Cast)
	return item
}

func cloneProfile(p *model.UserProfile) model.UserProfile {
	return model.UserProfile{
		UserID:          p.UserID,
		PreferredGenres: slices.Clone(p.PreferredGenres),
		Ratings:         slices.Clone(p.Ratings),
		Watchlist:       slices.Clone(p.Watchlist),
	}
}
