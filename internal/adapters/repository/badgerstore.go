package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
)

// Key prefixes for Badger storage.
const (
	itemKeyPrefix    = "item:"
	profileKeyPrefix = "profile:"
)

// maxConflictRetries bounds optimistic retries of a rating transaction.
const maxConflictRetries = 5

// BadgerStore persists the catalog and profiles in Badger. Items are stored
// under item:<id> and profiles, with their ratings and watchlist, under
// profile:<user>.
type BadgerStore struct {
	db *badger.DB
	// writeMu serialises read-modify-write transactions within the process.
	writeMu sync.Mutex
}

var _ Store = (*BadgerStore)(nil)

// OpenBadgerStore opens (or creates) a Badger database at path.
func OpenBadgerStore(path string, opts ...Option) (*BadgerStore, error) {
	o := badgerOptions{log: logger.Named("badger")}
	for _, opt := range opts {
		opt(&o)
	}

	bopts := badger.DefaultOptions(path)
	if o.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.WithSyncWrites(o.syncWrites).WithLogger(badgerLogger{log: o.log})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func itemKey(id string) []byte        { return []byte(itemKeyPrefix + id) }
func profileKey(userID string) []byte { return []byte(profileKeyPrefix + userID) }

// ListItems implements Store.
func (s *BadgerStore) ListItems(ctx context.Context, f ItemFilter) ([]model.CatalogItem, int, error) {
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

// AllItems implements Store. Badger iterates keys in byte order, so the
// result is already ordered by ID.
func (s *BadgerStore) AllItems(_ context.Context) ([]model.CatalogItem, error) {
	var out []model.CatalogItem
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, itemKeyPrefix, func(val []byte) error {
			var item model.CatalogItem
			if err := json.Unmarshal(val, &item); err != nil {
				return fmt.Errorf("unmarshal item: %w", err)
			}
			out = append(out, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.CatalogItem{}
	}
	return out, nil
}

// GetItem implements Store.
func (s *BadgerStore) GetItem(_ context.Context, id string) (model.CatalogItem, error) {
	defer observeQuery("get_item", time.Now())
	var item model.CatalogItem
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getJSON(txn, itemKey(id), &item)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return nil
	})
	return item, err
}

// UpsertItem implements Store. The stored aggregate is read and the item
// written in one transaction.
func (s *BadgerStore) UpsertItem(_ context.Context, item model.CatalogItem) (model.CatalogItem, error) {
	defer observeUpdate("upsert_item", time.Now())
	if item.ID == "" {
		return model.CatalogItem{}, ErrInvalidItem
	}
	incoming := item
	err := s.updateWithRetry(func(txn *badger.Txn) error {
		item = incoming
		var stored model.CatalogItem
		found, err := getJSON(txn, itemKey(item.ID), &stored)
		if err != nil {
			return err
		}
		if found {
			keepAggregates(stored, &item)
		}
		return setJSON(txn, itemKey(item.ID), item)
	})
	if err != nil {
		return model.CatalogItem{}, err
	}
	return item, nil
}

// Profile implements Store.
func (s *BadgerStore) Profile(_ context.Context, userID string) (model.UserProfile, error) {
	defer observeQuery("profile", time.Now())
	if userID == "" {
		return model.UserProfile{}, ErrInvalidUser
	}
	p := model.UserProfile{UserID: userID}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := getJSON(txn, profileKey(userID), &p)
		return err
	})
	return p, err
}

// SetPreferredGenres implements Store.
func (s *BadgerStore) SetPreferredGenres(_ context.Context, userID string, genres []string) error {
	defer observeUpdate("set_genres", time.Now())
	if userID == "" {
		return ErrInvalidUser
	}
	return s.updateWithRetry(func(txn *badger.Txn) error {
		p := model.UserProfile{UserID: userID}
		if _, err := getJSON(txn, profileKey(userID), &p); err != nil {
			return err
		}
		p.PreferredGenres = slices.Clone(genres)
		return setJSON(txn, profileKey(userID), p)
	})
}

// ApplyRating implements Store. The profile and the item are updated in a
// single transaction.
func (s *BadgerStore) ApplyRating(_ context.Context, userID, itemID string, rating float64) (bool, error) {
	defer observeUpdate("apply_rating", time.Now())
	if err := validateRating(userID, itemID, rating); err != nil {
		return false, err
	}

	var created bool
	err := s.updateWithRetry(func(txn *badger.Txn) error {
		var item model.CatalogItem
		found, err := getJSON(txn, itemKey(itemID), &item)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		p := model.UserProfile{UserID: userID}
		if _, err := getJSON(txn, profileKey(userID), &p); err != nil {
			return err
		}

		created = applyRating(&p, &item, rating)
		if err := setJSON(txn, itemKey(itemID), item); err != nil {
			return err
		}
		return setJSON(txn, profileKey(userID), p)
	})
	return created, err
}

// AddToWatchlist implements Store.
func (s *BadgerStore) AddToWatchlist(_ context.Context, userID, itemID string, at time.Time) (bool, error) {
	defer observeUpdate("watchlist_add", time.Now())
	if err := validateWatch(userID, itemID); err != nil {
		return false, err
	}

	var created bool
	err := s.updateWithRetry(func(txn *badger.Txn) error {
		if _, err := txn.Get(itemKey(itemID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("get item %s: %w", itemID, err)
		}
		p := model.UserProfile{UserID: userID}
		if _, err := getJSON(txn, profileKey(userID), &p); err != nil {
			return err
		}
		created = addToWatchlist(&p, itemID, at)
		return setJSON(txn, profileKey(userID), p)
	})
	return created, err
}

// RemoveFromWatchlist implements Store.
func (s *BadgerStore) RemoveFromWatchlist(_ context.Context, userID, itemID string) (bool, error) {
	defer observeUpdate("watchlist_remove", time.Now())
	if err := validateWatch(userID, itemID); err != nil {
		return false, err
	}

	var removed bool
	err := s.updateWithRetry(func(txn *badger.Txn) error {
		removed = false
		p := model.UserProfile{UserID: userID}
		found, err := getJSON(txn, profileKey(userID), &p)
		if err != nil || !found {
			return err
		}
		if removed = removeFromWatchlist(&p, itemID); !removed {
			return nil
		}
		return setJSON(txn, profileKey(userID), p)
	})
	return removed, err
}

// Watchlist implements Store.
func (s *BadgerStore) Watchlist(_ context.Context, userID string) ([]model.WatchlistEntry, error) {
	defer observeQuery("watchlist", time.Now())
	if userID == "" {
		return nil, ErrInvalidUser
	}
	var p model.UserProfile
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := getJSON(txn, profileKey(userID), &p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newestFirst(p.Watchlist), nil
}

// InWatchlist implements Store.
func (s *BadgerStore) InWatchlist(_ context.Context, userID, itemID string) (bool, error) {
	defer observeQuery("watchlist_contains", time.Now())
	if err := validateWatch(userID, itemID); err != nil {
		return false, err
	}
	var p model.UserProfile
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := getJSON(txn, profileKey(userID), &p)
		return err
	})
	if err != nil {
		return false, err
	}
	return inWatchlist(&p, itemID), nil
}

// Counts implements Store.
func (s *BadgerStore) Counts(_ context.Context) (Counts, error) {
	var c Counts
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(itemKeyPrefix)
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			c.Items++
		}
		it.Close()

		return scanPrefix(txn, profileKeyPrefix, func(val []byte) error {
			var p model.UserProfile
			if err := json.Unmarshal(val, &p); err != nil {
				return fmt.Errorf("unmarshal profile: %w", err)
			}
			c.Users++
			c.Ratings += len(p.Ratings)
			c.Watchlist += len(p.Watchlist)
			return nil
		})
	})
	return c, err
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) updateWithRetry(fn func(txn *badger.Txn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	for range maxConflictRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

func getJSON(txn *badger.Txn, key []byte, v any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func scanPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// badgerLogger adapts logger.Logger to badger.Logger. Badger's info output
// is demoted to debug.
type badgerLogger struct {
	log logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(context.Background(), trimf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(context.Background(), trimf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(context.Background(), trimf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(context.Background(), trimf(format, args...))
}

func trimf(format string, args ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
