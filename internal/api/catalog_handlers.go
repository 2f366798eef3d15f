package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kidobra/kidobra-server/internal/http/response"
)

// handleListCategories returns all catalog categories, the aggregate
// "all activities" view first.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	response.Success(w, s.catalogService.Categories(r.Context()), s.logger)
}

// handleGetCategory returns one category by id.
func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	category, err := s.catalogService.GetCategory(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, category, s.logger)
}

// handleListCategoryActivities returns a category's activities in
// catalog order.
func (s *Server) handleListCategoryActivities(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	activities, err := s.catalogService.Activities(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, activities, s.logger)
}

// handleGetActivity returns one catalog activity by id.
func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	activity, err := s.catalogService.GetActivity(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, activity, s.logger)
}

// handleSearchActivities runs a full-text search over the catalog.
// Query params: q (text), category (optional scope), limit.
func (s *Server) handleSearchActivities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	categoryID := r.URL.Query().Get("category")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			response.BadRequest(w, "limit must be an integer between 1 and 100", s.logger)
			return
		}
		limit = parsed
	}

	result, err := s.catalogService.Search(r.Context(), query, categoryID, limit)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}
