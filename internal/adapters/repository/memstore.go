package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/metrics"
)

// MemoryStore keeps the catalog and profiles in maps guarded by one RWMutex.
// Every read returns a copy.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]model.CatalogItem
	profiles map[string]*model.UserProfile
	ratings  int
	closed   bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]model.CatalogItem),
		profiles: make(map[string]*model.UserProfile),
	}
}

func observeQuery(op string, start time.Time) {
	metrics.RecordStoreQueryLatency(op, float64(time.Since(start).Nanoseconds())/1e6)
}

func observeUpdate(op string, start time.Time) {
	metrics.RecordStoreUpdateLatency(op, float64(time.Since(start).Nanoseconds())/1e6)
}

// ListItems implements Store.
func (s *MemoryStore) ListItems(ctx context.Context, f ItemFilter) ([]model.CatalogItem, int, error) {
	defer observeQuery("list_items", time.Now())
	if err := validateFilter(f); err != nil {
		return nil, 0, err
	}
	all, err := s.AllItems(ctx)
	if err != nil {
		return nil, 0, err
	}
	page, total := filterItems(all, f)
	return page, total, nil
}

// AllItems implements Store.
func (s *MemoryStore) AllItems(_ context.Context) ([]model.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.CatalogItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, cloneItem(item))
	}
	sortByID(out)
	return out, nil
}

// GetItem implements Store.
func (s *MemoryStore) GetItem(_ context.Context, id string) (model.CatalogItem, error) {
	defer observeQuery("get_item", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.CatalogItem{}, ErrClosed
	}

	item, ok := s.items[id]
	if !ok {
		return model.CatalogItem{}, ErrNotFound
	}
	return cloneItem(item), nil
}

// UpsertItem implements Store.
func (s *MemoryStore) UpsertItem(_ context.Context, item model.CatalogItem) (model.CatalogItem, error) {
	defer observeUpdate("upsert_item", time.Now())
	if item.ID == "" {
		return model.CatalogItem{}, ErrInvalidItem
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.CatalogItem{}, ErrClosed
	}

	if stored, ok := s.items[item.ID]; ok {
		keepAggregates(stored, &item)
	}
	s.items[item.ID] = cloneItem(item)
	return cloneItem(item), nil
}

// Profile implements Store.
func (s *MemoryStore) Profile(_ context.Context, userID string) (model.UserProfile, error) {
	defer observeQuery("profile", time.Now())
	if userID == "" {
		return model.UserProfile{}, ErrInvalidUser
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.UserProfile{}, ErrClosed
	}

	p, ok := s.profiles[userID]
	if !ok {
		return model.UserProfile{UserID: userID}, nil
	}
	return cloneProfile(p), nil
}

// SetPreferredGenres implements Store.
func (s *MemoryStore) SetPreferredGenres(_ context.Context, userID string, genres []string) error {
	defer observeUpdate("set_genres", time.Now())
	if userID == "" {
		return ErrInvalidUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.profileLocked(userID).PreferredGenres = slices.Clone(genres)
	return nil
}

// ApplyRating implements Store.
func (s *MemoryStore) ApplyRating(_ context.Context, userID, itemID string, rating float64) (bool, error) {
	defer observeUpdate("apply_rating", time.Now())
	if err := validateRating(userID, itemID, rating); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	item, ok := s.items[itemID]
	if !ok {
		return false, ErrNotFound
	}
	created := applyRating(s.profileLocked(userID), &item, rating)
	s.items[itemID] = item
	if created {
		s.ratings++
	}
	return created, nil
}

// AddToWatchlist implements Store.
func (s *MemoryStore) AddToWatchlist(_ context.Context, userID, itemID string, at time.Time) (bool, error) {
	defer observeUpdate("watchlist_add", time.Now())
	if err := validateWatch(userID, itemID); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	if _, ok := s.items[itemID]; !ok {
		return false, ErrNotFound
	}
	return addToWatchlist(s.profileLocked(userID), itemID, at), nil
}

// RemoveFromWatchlist implements Store.
func (s *MemoryStore) RemoveFromWatchlist(_ context.Context, userID, itemID string) (bool, error) {
	defer observeUpdate("watchlist_remove", time.Now())
	if err := validateWatch(userID, itemID); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	p, ok := s.profiles[userID]
	if !ok {
		return false, nil
	}
	return removeFromWatchlist(p, itemID), nil
}

// Watchlist implements Store.
func (s *MemoryStore) Watchlist(_ context.Context, userID string) ([]model.WatchlistEntry, error) {
	defer observeQuery("watchlist", time.Now())
	if userID == "" {
		return nil, ErrInvalidUser
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	p, ok := s.profiles[userID]
	if !ok {
		return []model.WatchlistEntry{}, nil
	}
	return newestFirst(p.Watchlist), nil
}

// InWatchlist implements Store.
func (s *MemoryStore) InWatchlist(_ context.Context, userID, itemID string) (bool, error) {
	defer observeQuery("watchlist_contains", time.Now())
	if err := validateWatch(userID, itemID); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}

	p, ok := s.profiles[userID]
	return ok && inWatchlist(p, itemID), nil
}

// Counts implements Store.
func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Counts{}, ErrClosed
	}
	c := Counts{Items: len(s.items), Users: len(s.profiles), Ratings: s.ratings}
	for _, p := range s.profiles {
		c.Watchlist += len(p.Watchlist)
	}
	return c, nil
}

// Close releases the maps. Further calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	s.profiles = nil
	return nil
}

func (s *MemoryStore) profileLocked(userID string) *model.UserProfile {
	p, ok := s.profiles[userID]
	if !ok {
		p = &model.UserProfile{UserID: userID}
		s.profiles[userID] = p
	}
	return p
}
