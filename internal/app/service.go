// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/cinerank/internal/adapters/mq/queue"
	workerpool "github.com/okian/cinerank/internal/adapters/mq/worker"
	"github.com/okian/cinerank/internal/adapters/repository"
	"github.com/okian/cinerank/internal/domain/dedupe"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/ranking"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"
)

const drainTimeout = 10 * time.Second

// Recommendation kinds used in metrics labels.
const (
	KindUser    = "user"
	KindProfile = "profile"
	KindSimilar = "similar"
)

// SubmitResult tells the caller what happened to a rating event.
type SubmitResult int

const (
	// Accepted means the event was queued for the workers.
	Accepted SubmitResult = iota
	// Duplicate means an event with the same id was already accepted.
	Duplicate
)

// Stats is a point-in-time view of the service.
type Stats struct {
	Started        bool              `json:"started"`
	UptimeSeconds  float64           `json:"uptime_seconds"`
	WorkerCount    int               `json:"worker_count"`
	QueueCapacity  int               `json:"queue_capacity"`
	QueueLength    int               `json:"queue_length"`
	DedupeCapacity int               `json:"dedupe_capacity"`
	DedupeEntries  int64             `json:"dedupe_entries"`
	RatingsApplied int64             `json:"ratings_applied"`
	Store          repository.Counts `json:"store"`
}

// Service implements the API dependencies for the recommender.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	ranker  *ranking.Ranker
	deduper dedupe.Deduper
	queue   eventqueue.Queue
	pool    *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int

	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration. Without
// WithStore the catalog lives in memory.
func New(opts ...Option) *Service {
	s := &Service{
		store:       repository.NewMemoryStore(),
		ranker:      ranking.New(),
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100_000,
		dedupeSize:  50_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the rating pipeline and starts the workers. Workers outlive
// ctx's deadline; they stop on Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting recommender service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.queue = q
	s.pool = workerpool.NewPool(s.workerCount, q, s.store)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "recommender service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes rating intake and waits for queued ratings to be applied.
// The store stays open; see Close.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping recommender service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "rating queue not fully drained", logger.Error(err))
	}
	s.cancel()
	s.started = false
	s.logger.Info(ctx, "recommender service stopped")
}

// Close stops the service and closes the store.
func (s *Service) Close() error {
	s.Stop()
	return s.store.Close()
}

// Recommend ranks the catalog for a stored user profile.
func (s *Service) Recommend(ctx context.Context, userID string, limit int) ([]model.Recommendation, error) {
	profile, err := s.store.Profile(ctx, userID)
	if err != nil {
		metrics.RecordRecommendationRequest(KindUser, "error")
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return s.rank(ctx, KindUser, &profile, limit)
}

// RecommendForProfile ranks the catalog for a caller-supplied profile. Rated
// items that are not in the catalog are counted as unresolved.
func (s *Service) RecommendForProfile(ctx context.Context, profile *model.UserProfile, limit int) ([]model.Recommendation, error) {
	if profile == nil {
		profile = &model.UserProfile{}
	}
	return s.rank(ctx, KindProfile, profile, limit)
}

func (s *Service) rank(ctx context.Context, kind string, profile *model.UserProfile, limit int) ([]model.Recommendation, error) {
	start := time.Now()
	catalog, err := s.store.AllItems(ctx)
	if err != nil {
		metrics.RecordRecommendationRequest(kind, "error")
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	res, err := s.ranker.RankDetailed(ctx, catalog, profile, limit)
	metrics.RecordRankingLatency(kind, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordRecommendationRequest(kind, outcome(err))
		return nil, err
	}

	metrics.RecordRecommendationRequest(kind, "ok")
	metrics.RecordCandidatesScored(res.Candidates)
	metrics.RecordRecommendationsServed(len(res.Items))
	if res.Unresolved > 0 {
		metrics.RecordUnresolvedRatings(res.Unresolved)
		s.log().Debug(ctx, "ratings reference unknown items",
			logger.String("userID", profile.UserID),
			logger.Int("unresolved", res.Unresolved),
		)
	}
	return res.Items, nil
}

// Similar returns items that resemble itemID.
func (s *Service) Similar(ctx context.Context, itemID string, limit int) ([]model.Recommendation, error) {
	start := time.Now()
	catalog, err := s.store.AllItems(ctx)
	if err != nil {
		metrics.RecordRecommendationRequest(KindSimilar, "error")
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	items, err := s.ranker.Similar(ctx, catalog, itemID, limit)
	metrics.RecordRankingLatency(KindSimilar, float64(time.Since(start).Microseconds())/1000)
	metrics.RecordRecommendationRequest(KindSimilar, outcome(err))
	if err != nil {
		return nil, err
	}
	metrics.RecordRecommendationsServed(len(items))
	return items, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ranking.ErrInvalidArgument), errors.Is(err, ranking.ErrInvalidItem):
		return "invalid"
	case errors.Is(err, ranking.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// ListItems returns one page of the catalog.
func (s *Service) ListItems(ctx context.Context, f repository.ItemFilter) ([]model.CatalogItem, int, error) {
	return s.store.ListItems(ctx, f)
}

// GetItem returns one catalog item.
func (s *Service) GetItem(ctx context.Context, id string) (model.CatalogItem, error) {
	return s.store.GetItem(ctx, id)
}

// UpsertItem inserts or replaces a catalog item and returns the stored
// version. An existing item keeps its rating aggregate.
func (s *Service) UpsertItem(ctx context.Context, item model.CatalogItem) (model.CatalogItem, error) {
	stored, err := s.store.UpsertItem(ctx, item)
	if err != nil {
		return model.CatalogItem{}, err
	}
	s.log().Debug(ctx, "catalog item upserted", logger.String("itemID", item.ID))
	return stored, nil
}

// Profile returns the stored profile of userID.
func (s *Service) Profile(ctx context.Context, userID string) (model.UserProfile, error) {
	return s.store.Profile(ctx, userID)
}

// SetPreferredGenres replaces the user's preferred genres.
func (s *Service) SetPreferredGenres(ctx context.Context, userID string, genres []string) error {
	return s.store.SetPreferredGenres(ctx, userID, genres)
}

// UserRating returns the user's applied rating of itemID. ok is false when
// the user has not rated it.
func (s *Service) UserRating(ctx context.Context, userID, itemID string) (rating float64, ok bool, err error) {
	profile, err := s.store.Profile(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	rating, ok = profile.RatingFor(itemID)
	return rating, ok, nil
}

// AddToWatchlist saves itemID for the user and reports whether it is new.
func (s *Service) AddToWatchlist(ctx context.Context, userID, itemID string) (bool, error) {
	created, err := s.store.AddToWatchlist(ctx, userID, itemID, time.Now())
	if err != nil {
		return false, err
	}
	s.log().Debug(ctx, "watchlist updated",
		logger.String("userID", userID),
		logger.String("itemID", itemID),
		logger.Bool("created", created),
	)
	return created, nil
}

// RemoveFromWatchlist drops itemID and reports whether it was saved.
func (s *Service) RemoveFromWatchlist(ctx context.Context, userID, itemID string) (bool, error) {
	return s.store.RemoveFromWatchlist(ctx, userID, itemID)
}

// InWatchlist reports whether the user saved itemID.
func (s *Service) InWatchlist(ctx context.Context, userID, itemID string) (bool, error) {
	return s.store.InWatchlist(ctx, userID, itemID)
}

// Watchlist returns the user's saved items, newest first, joined with the
// catalog. Entries whose item is no longer in the catalog are skipped.
func (s *Service) Watchlist(ctx context.Context, userID string) ([]model.WatchlistItem, error) {
	entries, err := s.store.Watchlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.WatchlistItem, 0, len(entries))
	for _, e := range entries {
		item, err := s.store.GetItem(ctx, e.ItemID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load watchlist item %s: %w", e.ItemID, err)
		}
		out = append(out, model.WatchlistItem{CatalogItem: item, AddedAt: e.AddedAt})
	}
	return out, nil
}

// SubmitRating validates the rated item, drops duplicate event ids and
// queues the rating for the workers. An empty EventID is replaced by a fresh
// UUID and a zero TS by the current time.
func (s *Service) SubmitRating(ctx context.Context, e model.RatingEvent) (SubmitResult, error) { //nolint:gocritic // hugeParam: events travel by value
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return Accepted, ErrNotStarted
	}

	if _, err := s.store.GetItem(ctx, e.ItemID); err != nil {
		return Accepted, err
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}

	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordRatingDuplicate()
		s.logger.Debug(ctx, "duplicate rating event", logger.String("eventID", e.EventID))
		return Duplicate, nil
	}

	if err := s.queue.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, e.EventID)
		if errors.Is(err, eventqueue.ErrFull) {
			return Accepted, ErrBackpressure
		}
		return Accepted, fmt.Errorf("enqueue rating %s: %w", e.EventID, err)
	}
	metrics.RecordRatingAccepted()
	return Accepted, nil
}

// Stats returns service statistics and refreshes the related gauges.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:        s.started,
		WorkerCount:    s.workerCount,
		QueueCapacity:  s.queueSize,
		DedupeCapacity: s.dedupeSize,
	}
	if s.started {
		st.UptimeSeconds = time.Since(s.startedAt).Seconds()
		st.QueueLength = s.queue.Len()
		st.DedupeEntries = s.deduper.Size()
		st.RatingsApplied = s.pool.Processed()
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	counts, err := s.store.Counts(ctx)
	if err != nil {
		return st, fmt.Errorf("store counts: %w", err)
	}
	st.Store = counts
	metrics.UpdateCatalogCounts(counts.Items, counts.Users, counts.Ratings, counts.Watchlist)
	return st, nil
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Get().Named("service")
	}
	return l
}
