package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/cinerank/internal/adapters/repository"
	"github.com/okian/cinerank/internal/domain/model"
)

type movieListResponse struct {
	Movies []model.CatalogItem `json:"movies"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Skip   int                 `json:"skip"`
}

type similarResponse struct {
	MovieID string                 `json:"movie_id"`
	Similar []model.Recommendation `json:"similar"`
	Count   int                    `json:"count"`
}

// movieRequest is the writable shape of a catalog item. AverageRating and
// RatingCount apply to new items only.
type movieRequest struct {
	Title         string   `json:"title" validate:"required"`
	Genres        []string `json:"genres" validate:"dive,required"`
	AverageRating float64  `json:"average_rating" validate:"gte=0,lte=5"`
	RatingCount   int      `json:"rating_count" validate:"gte=0"`
	ReleaseYear   int      `json:"release_year" validate:"omitempty,gte=1870,lte=2200"`
	Description   string   `json:"description"`
	Director      string   `json:"director"`
	Cast          []string `json:"cast"`
	PosterURL     string   `json:"poster_url" validate:"omitempty,url"`
}

func (m *movieRequest) item(id string) model.CatalogItem {
	return model.CatalogItem{
		ID:            id,
		Title:         m.Title,
		Genres:        m.Genres,
		AverageRating: m.AverageRating,
		RatingCount:   m.RatingCount,
		ReleaseYear:   m.ReleaseYear,
		Description:   m.Description,
		Director:      m.Director,
		Cast:          m.Cast,
		PosterURL:     m.PosterURL,
	}
}

// handleListMovies handles GET /movies?genre=&search=&limit=&skip=.
func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_movies"
	q := r.URL.Query()
	limit, err := s.queryLimit(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	skip := 0
	if raw := q.Get("skip"); raw != "" {
		skip, err = strconv.Atoi(raw)
		if err != nil || skip < 0 {
			s.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("skip must be a non-negative integer")))
			return
		}
	}

	movies, total, err := s.deps.ListItems(r.Context(), repository.ItemFilter{
		Genre:  q.Get("genre"),
		Search: q.Get("search"),
		Limit:  limit,
		Skip:   skip,
	})
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, movieListResponse{Movies: movies, Total: total, Limit: limit, Skip: skip})
}

// handleGetMovie handles GET /movies/{id}.
func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_movie"
	item, err := s.deps.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handlePutMovie handles PUT /movies/{id}. The rating fields only seed new
// items; an existing item keeps the aggregate its ratings built.
func (s *Server) handlePutMovie(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_movie"
	var req movieRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	stored, err := s.deps.UpsertItem(r.Context(), req.item(r.PathValue("id")))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// handleSimilar handles GET /movies/{id}/similar.
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	const op = "api.similar_movies"
	id := r.PathValue("id")
	limit, err := s.queryLimit(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recs, err := s.deps.Similar(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, similarResponse{MovieID: id, Similar: recs, Count: len(recs)})
}
