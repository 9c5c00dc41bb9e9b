package model

import (
	"strings"
	"time"
)

// DefaultReleaseYear is used for items without a known release year.
const DefaultReleaseYear = 2000

// CatalogItem is a recommendable movie.
type CatalogItem struct {
	ID            string   `json:"id" koanf:"id"`
	Title         string   `json:"title" koanf:"title"`
	Genres        []string `json:"genres" koanf:"genres"`
	AverageRating float64  `json:"average_rating" koanf:"average_rating"`
	RatingCount   int      `json:"rating_count" koanf:"rating_count"`
	// ReleaseYear of 0 means unknown; see Year.
	ReleaseYear int `json:"release_year,omitempty" koanf:"release_year"`

	Description string   `json:"description,omitempty" koanf:"description"`
	Director    string   `json:"director,omitempty" koanf:"director"`
	Cast        []string `json:"cast,omitempty" koanf:"cast"`
	PosterURL   string   `json:"poster_url,omitempty" koanf:"poster_url"`
}

// Year returns the release year, falling back to DefaultReleaseYear.
func (c *CatalogItem) Year() int {
	if c.ReleaseYear == 0 {
		return DefaultReleaseYear
	}
	return c.ReleaseYear
}

// HasGenre reports whether the item is tagged with genre (case-insensitive).
func (c *CatalogItem) HasGenre(genre string) bool {
	for _, g := range c.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// UserRating marks an item as already seen by a user.
type UserRating struct {
	ItemID string  `json:"item_id"`
	Rating float64 `json:"rating"`
}

// WatchlistEntry is an item a user saved for later.
type WatchlistEntry struct {
	ItemID  string    `json:"item_id"`
	AddedAt time.Time `json:"added_at"`
}

// WatchlistItem is a saved catalog item with the time it was saved.
type WatchlistItem struct {
	CatalogItem
	AddedAt time.Time `json:"added_at"`
}

// UserProfile is everything the ranker knows about a user.
type UserProfile struct {
	UserID          string       `json:"user_id"`
	PreferredGenres []string     `json:"preferred_genres"`
	Ratings         []UserRating `json:"ratings"`
	// Watchlist is ordered oldest first.
	Watchlist []WatchlistEntry `json:"watchlist,omitempty"`
}

// RatedSet returns the identifiers of every rated item.
func (p *UserProfile) RatedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Ratings))
	for _, r := range p.Ratings {
		set[r.ItemID] = struct{}{}
	}
	return set
}

// RatingFor returns the user's rating of itemID, if any.
func (p *UserProfile) RatingFor(itemID string) (float64, bool) {
	for _, r := range p.Ratings {
		if r.ItemID == itemID {
			return r.Rating, true
		}
	}
	return 0, false
}

// Recommendation is one ranked candidate.
type Recommendation struct {
	ItemID             string  `json:"item_id"`
	Title              string  `json:"title"`
	Score              float64 `json:"score"`
	ContentScore       float64 `json:"content_score"`
	CollaborativeScore float64 `json:"collaborative_score"`
}
