package api

import (
	"net/http"
	"strings"

	"github.com/okian/cinerank/internal/domain/model"
)

type watchlistRequest struct {
	MovieID string `json:"movie_id" validate:"required,max=256"`
}

type watchlistStatus struct {
	UserID      string `json:"user_id"`
	MovieID     string `json:"movie_id"`
	InWatchlist bool   `json:"in_watchlist"`
}

type watchlistResponse struct {
	UserID string                `json:"user_id"`
	Movies []model.WatchlistItem `json:"movies"`
	Count  int                   `json:"count"`
}

// userAndMovie reads the {id} and {movieId} path values.
func userAndMovie(op string, r *http.Request) (string, string, error) {
	userID := strings.TrimSpace(r.PathValue("id"))
	movieID := strings.TrimSpace(r.PathValue("movieId"))
	if userID == "" || movieID == "" {
		return "", "", NewKind(op, ErrBadRequest)
	}
	return userID, movieID, nil
}

// handleAddToWatchlist handles POST /users/{id}/watchlist.
func (s *Server) handleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_to_watchlist"
	userID := strings.TrimSpace(r.PathValue("id"))
	var req watchlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	created, err := s.deps.AddToWatchlist(r.Context(), userID, req.MovieID)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, watchlistStatus{UserID: userID, MovieID: req.MovieID, InWatchlist: true})
}

// handleRemoveFromWatchlist handles DELETE /users/{id}/watchlist/{movieId}.
// Removing an item that is not saved succeeds.
func (s *Server) handleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_from_watchlist"
	userID, movieID, err := userAndMovie(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.deps.RemoveFromWatchlist(r.Context(), userID, movieID); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, watchlistStatus{UserID: userID, MovieID: movieID, InWatchlist: false})
}

// handleInWatchlist handles GET /users/{id}/watchlist/{movieId}.
func (s *Server) handleInWatchlist(w http.ResponseWriter, r *http.Request) {
	const op = "api.in_watchlist"
	userID, movieID, err := userAndMovie(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := s.deps.InWatchlist(r.Context(), userID, movieID)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, watchlistStatus{UserID: userID, MovieID: movieID, InWatchlist: in})
}

// handleWatchlist handles GET /users/{id}/watchlist.
func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	const op = "api.watchlist"
	userID := strings.TrimSpace(r.PathValue("id"))
	movies, err := s.deps.Watchlist(r.Context(), userID)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Movies: movies, Count: len(movies)})
}
