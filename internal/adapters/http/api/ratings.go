package api

import (
	"errors"
	"net/http"
	"time"

	service "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/internal/domain/model"
)

// ratingRequest mirrors the OpenAPI schema for POST /ratings.
type ratingRequest struct {
	EventID string   `json:"event_id" validate:"max=128"`
	UserID  string   `json:"user_id" validate:"required,max=128"`
	ItemID  string   `json:"item_id" validate:"required,max=256"`
	Rating  *float64 `json:"rating" validate:"required,gte=0,lte=5"`
	TS      string   `json:"ts" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (req *ratingRequest) event() model.RatingEvent {
	e := model.RatingEvent{
		EventID: req.EventID,
		UserID:  req.UserID,
		ItemID:  req.ItemID,
		Rating:  *req.Rating,
	}
	if ts, err := time.Parse(time.RFC3339, req.TS); err == nil {
		e.TS = ts
	}
	return e
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// handlePostRating handles POST /ratings.
func (s *Server) handlePostRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rating"
	var req ratingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := s.deps.SubmitRating(r.Context(), req.event())
	switch {
	case errors.Is(err, service.ErrBackpressure):
		s.fail(w, r, WrapKind(op, ErrBackpressure, err))
		return
	case err != nil:
		s.fail(w, r, Wrap(op, err))
		return
	}

	if res == service.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}

// userRatingResponse carries a null rating when the user has not rated the
// movie.
type userRatingResponse struct {
	UserID  string   `json:"user_id"`
	MovieID string   `json:"movie_id"`
	Rating  *float64 `json:"rating"`
}

// handleGetUserRating handles GET /users/{id}/ratings/{movieId}. Only applied
// ratings are visible; a rating still in the queue reads as null.
func (s *Server) handleGetUserRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user_rating"
	userID, movieID, err := userAndMovie(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rating, ok, err := s.deps.UserRating(r.Context(), userID, movieID)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	resp := userRatingResponse{UserID: userID, MovieID: movieID}
	if ok {
		resp.Rating = &rating
	}
	writeJSON(w, http.StatusOK, resp)
}
