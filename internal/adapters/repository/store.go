// Package repository defines the catalog and profile store interface, its
// in-memory and Badger implementations, and the YAML seed loader.
package repository

import (
	"context"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
)

// MaxRating is the upper bound of a user rating; the lower bound is 0.
const MaxRating = 5.0

// ItemFilter narrows a catalog listing. Zero Limit means no limit.
type ItemFilter struct {
	Genre  string
	Search string
	Limit  int
	Skip   int
}

// Counts summarises the store contents.
type Counts struct {
	Items     int `json:"items"`
	Users     int `json:"users"`
	Ratings   int `json:"ratings"`
	Watchlist int `json:"watchlist"`
}

// Store provides read/write access to the catalog and user profiles.
type Store interface {
	// ListItems returns one page of matching items ordered by ID, plus the
	// total number of matches.
	ListItems(ctx context.Context, f ItemFilter) ([]model.CatalogItem, int, error)

	// AllItems returns the full catalog ordered by ID.
	AllItems(ctx context.Context) ([]model.CatalogItem, error)

	// GetItem returns ErrNotFound if the item is unknown.
	GetItem(ctx context.Context, id string) (model.CatalogItem, error)

	// UpsertItem inserts or replaces a catalog item and returns what was
	// stored. Replacing an existing item keeps its stored AverageRating and
	// RatingCount, which only ApplyRating moves.
	UpsertItem(ctx context.Context, item model.CatalogItem) (model.CatalogItem, error)

	// Profile returns the stored profile, or an empty one for unknown users.
	Profile(ctx context.Context, userID string) (model.UserProfile, error)

	// SetPreferredGenres replaces the user's preferred genres.
	SetPreferredGenres(ctx context.Context, userID string, genres []string) error

	// ApplyRating records the user's rating of an item and updates the item's
	// aggregate. It reports whether the rating is new for this user.
	ApplyRating(ctx context.Context, userID, itemID string, rating float64) (bool, error)

	// AddToWatchlist saves itemID for the user at time at. Saving an item
	// again refreshes its time. It reports whether the item was newly saved
	// and returns ErrNotFound for items missing from the catalog.
	AddToWatchlist(ctx context.Context, userID, itemID string, at time.Time) (bool, error)

	// RemoveFromWatchlist reports whether itemID was on the watchlist.
	RemoveFromWatchlist(ctx context.Context, userID, itemID string) (bool, error)

	// Watchlist returns the user's saved items, most recently saved first.
	Watchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error)

	// InWatchlist reports whether the user saved itemID.
	InWatchlist(ctx context.Context, userID, itemID string) (bool, error)

	// Counts returns the number of items, users, ratings and watchlist entries.
	Counts(ctx context.Context) (Counts, error)

	Close() error
}
