package api

import (
	"net/http"
	"strings"

	"github.com/okian/cinerank/internal/domain/model"
)

type ratedMovie struct {
	MovieID string  `json:"movie_id" validate:"required"`
	Rating  float64 `json:"rating" validate:"gte=0,lte=5"`
}

// recommendationRequest carries an ad-hoc profile.
type recommendationRequest struct {
	UserID         string       `json:"user_id" validate:"max=128"`
	UserRatings    []ratedMovie `json:"user_ratings" validate:"dive"`
	FavoriteGenres []string     `json:"favorite_genres" validate:"dive,required"`
	Limit          *int         `json:"limit"`
}

func (req *recommendationRequest) profile() *model.UserProfile {
	p := &model.UserProfile{
		UserID:          req.UserID,
		PreferredGenres: req.FavoriteGenres,
		Ratings:         make([]model.UserRating, len(req.UserRatings)),
	}
	for i, r := range req.UserRatings {
		p.Ratings[i] = model.UserRating{ItemID: r.MovieID, Rating: r.Rating}
	}
	return p
}

type recommendationResponse struct {
	Recommendations []model.Recommendation `json:"recommendations"`
	Count           int                    `json:"count"`
}

type genresRequest struct {
	Genres []string `json:"genres" validate:"dive,required"`
}

// handlePostRecommendations handles POST /recommendations.
func (s *Server) handlePostRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_recommendations"
	var req recommendationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	limit, err := s.resolveLimit(op, req.Limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	recs, err := s.deps.RecommendForProfile(r.Context(), req.profile(), limit)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, recommendationResponse{Recommendations: recs, Count: len(recs)})
}

// handleUserRecommendations handles GET /users/{id}/recommendations.
func (s *Server) handleUserRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user_recommendations"
	userID := strings.TrimSpace(r.PathValue("id"))
	if userID == "" {
		s.fail(w, r, NewKind(op, ErrBadRequest))
		return
	}
	limit, err := s.queryLimit(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	recs, err := s.deps.Recommend(r.Context(), userID, limit)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, recommendationResponse{Recommendations: recs, Count: len(recs)})
}

// handlePutGenres handles PUT /users/{id}/genres.
func (s *Server) handlePutGenres(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_user_genres"
	userID := strings.TrimSpace(r.PathValue("id"))
	var req genresRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := s.deps.SetPreferredGenres(r.Context(), userID, req.Genres); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "genres": req.Genres})
}
