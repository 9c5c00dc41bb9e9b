// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	service "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/internal/adapters/repository"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
)

const (
	defaultLimit    = 10
	defaultMaxLimit = 100
	maxBodyBytes    = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RecommendForProfile(ctx context.Context, profile *model.UserProfile, limit int) ([]model.Recommendation, error)
	Recommend(ctx context.Context, userID string, limit int) ([]model.Recommendation, error)
	Similar(ctx context.Context, itemID string, limit int) ([]model.Recommendation, error)

	ListItems(ctx context.Context, f repository.ItemFilter) ([]model.CatalogItem, int, error)
	GetItem(ctx context.Context, id string) (model.CatalogItem, error)
	// UpsertItem returns the stored item; existing items keep their rating
	// aggregate.
	UpsertItem(ctx context.Context, item model.CatalogItem) (model.CatalogItem, error)

	SetPreferredGenres(ctx context.Context, userID string, genres []string) error
	UserRating(ctx context.Context, userID, itemID string) (float64, bool, error)

	AddToWatchlist(ctx context.Context, userID, itemID string) (bool, error)
	RemoveFromWatchlist(ctx context.Context, userID, itemID string) (bool, error)
	InWatchlist(ctx context.Context, userID, itemID string) (bool, error)
	Watchlist(ctx context.Context, userID string) ([]model.WatchlistItem, error)

	// SubmitRating queues a rating; service.ErrBackpressure signals a full queue.
	SubmitRating(ctx context.Context, e model.RatingEvent) (service.SubmitResult, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (service.Stats, error)
}

// Server wires HTTP routes for the recommender API.
type Server struct {
	deps  Dependencies
	stats StatsProvider

	defaultLimit int
	maxLimit     int
	corsOrigins  []string
	rateRequests int
	rateWindow   time.Duration

	logger logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		stats:        stats,
		defaultLimit: defaultLimit,
		maxLimit:     defaultMaxLimit,
		corsOrigins:  []string{"*"},
		rateWindow:   time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", MetricsMiddleware(s.handleHealth, "health"))
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.handleMetrics, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.HandleFunc("GET /dashboard", s.handleDashboard)

	mux.HandleFunc("POST /recommendations", MetricsMiddleware(s.handlePostRecommendations, "recommendations"))
	mux.HandleFunc("GET /users/{id}/recommendations", MetricsMiddleware(s.handleUserRecommendations, "user_recommendations"))
	mux.HandleFunc("PUT /users/{id}/genres", MetricsMiddleware(s.handlePutGenres, "user_genres"))
	mux.HandleFunc("GET /users/{id}/ratings/{movieId}", MetricsMiddleware(s.handleGetUserRating, "user_rating"))

	mux.HandleFunc("GET /users/{id}/watchlist", MetricsMiddleware(s.handleWatchlist, "watchlist"))
	mux.HandleFunc("POST /users/{id}/watchlist", MetricsMiddleware(s.handleAddToWatchlist, "watchlist"))
	mux.HandleFunc("GET /users/{id}/watchlist/{movieId}", MetricsMiddleware(s.handleInWatchlist, "watchlist_item"))
	mux.HandleFunc("DELETE /users/{id}/watchlist/{movieId}", MetricsMiddleware(s.handleRemoveFromWatchlist, "watchlist_item"))

	mux.HandleFunc("GET /movies", MetricsMiddleware(s.handleListMovies, "movies"))
	mux.HandleFunc("GET /movies/{id}", MetricsMiddleware(s.handleGetMovie, "movie"))
	mux.HandleFunc("PUT /movies/{id}", MetricsMiddleware(s.handlePutMovie, "movie"))
	mux.HandleFunc("GET /movies/{id}/similar", MetricsMiddleware(s.handleSimilar, "similar"))

	mux.HandleFunc("POST /ratings", MetricsMiddleware(s.handlePostRating, "ratings"))
}

// Handler wraps h with request ids, CORS and, when enabled, per-IP rate
// limiting.
func (s *Server) Handler(h http.Handler) http.Handler {
	if s.rateRequests > 0 {
		h = httprate.Limit(s.rateRequests, s.rateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", nil)
			}),
		)(h)
	}
	h = cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(h)
	return RequestIDMiddleware(h)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail classifies err, logs server-side failures and writes the response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("requestID", RequestID(r.Context())),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

// resolveLimit applies the limit rules: absent selects the default, values
// below 1 are invalid and values above the cap are rejected.
func (s *Server) resolveLimit(op string, raw *int) (int, error) {
	if raw == nil {
		return s.defaultLimit, nil
	}
	if *raw < 1 {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be positive, got %d", *raw))
	}
	if *raw > s.maxLimit {
		return 0, WrapKind(op, ErrLimitExceeded, fmt.Errorf("limit %d above maximum %d", *raw, s.maxLimit))
	}
	return *raw, nil
}

func (s *Server) queryLimit(op string, r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return s.resolveLimit(op, nil)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, WrapKind(op, ErrBadRequest, errors.New("limit must be an integer"))
	}
	return s.resolveLimit(op, &n)
}
