package api

import (
	"encoding/json/v2"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kidobra/kidobra-server/internal/export"
	"github.com/kidobra/kidobra-server/internal/http/response"
	"github.com/kidobra/kidobra-server/internal/service"
)

// SetSelectionRequest names the ebook to select on the calling device.
type SetSelectionRequest struct {
	EbookID string `json:"ebook_id"`
}

// AddActivityRequest names the catalog activity to append to the
// selected ebook.
type AddActivityRequest struct {
	ActivityID string `json:"activity_id"`
}

// handleCreateEbook creates a new, empty ebook.
func (s *Server) handleCreateEbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	var req service.CreateEbookRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	ebook, err := s.ebookService.Create(ctx, userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, ebook, s.logger)
}

// handleListEbooks returns the user's ebooks, newest first, plus the
// calling device's restored selection when X-Device-ID is present.
func (s *Server) handleListEbooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	list, err := s.ebookService.List(ctx, userID, getDeviceID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, list, s.logger)
}

// handleGetEbook returns a single ebook by ID.
func (s *Server) handleGetEbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)
	id := chi.URLParam(r, "id")

	ebook, err := s.ebookService.Get(ctx, userID, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, ebook, s.logger)
}

// handleRenameEbook changes an ebook's display name.
func (s *Server) handleRenameEbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)
	id := chi.URLParam(r, "id")

	var req service.RenameEbookRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	ebook, err := s.ebookService.Rename(ctx, userID, id, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, ebook, s.logger)
}

// handleDeleteEbook removes an ebook. Deleting twice is not an error.
func (s *Server) handleDeleteEbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)
	id := chi.URLParam(r, "id")

	if err := s.ebookService.Delete(ctx, userID, id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleCloneEbook duplicates an ebook, activities included.
func (s *Server) handleCloneEbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)
	id := chi.URLParam(r, "id")

	var req service.CloneEbookRequest
	if r.ContentLength > 0 {
		if err := json.UnmarshalRead(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid request body", s.logger)
			return
		}
	}

	clone, err := s.ebookService.Clone(ctx, userID, id, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, clone, s.logger)
}

// handleGetSelection returns the ebook selected on the calling device.
func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ebook, err := s.ebookService.Selected(ctx, getUserID(ctx), getDeviceID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, ebook, s.logger)
}

// handleSetSelection records an ebook as selected on the calling device.
func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SetSelectionRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if req.EbookID == "" {
		response.BadRequest(w, "Ebook ID is required", s.logger)
		return
	}

	ebook, err := s.ebookService.Select(ctx, getUserID(ctx), getDeviceID(ctx), req.EbookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, ebook, s.logger)
}

// handleClearSelection drops the calling device's selection slot.
func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.ebookService.ClearSelection(ctx, getUserID(ctx), getDeviceID(ctx)); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleAddActivity appends a catalog activity to the selected ebook.
func (s *Server) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddActivityRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if req.ActivityID == "" {
		response.BadRequest(w, "Activity ID is required", s.logger)
		return
	}

	resp, err := s.ebookService.AddActivity(ctx, getUserID(ctx), getDeviceID(ctx), req.ActivityID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleRemoveActivity removes an activity from the selected ebook.
func (s *Server) handleRemoveActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activityID := chi.URLParam(r, "activityID")

	resp, err := s.ebookService.RemoveActivity(ctx, getUserID(ctx), getDeviceID(ctx), activityID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleReorderActivities rewrites the selected ebook's sequence.
func (s *Server) handleReorderActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.ReorderRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	ebook, err := s.ebookService.Reorder(ctx, getUserID(ctx), getDeviceID(ctx), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, ebook, s.logger)
}

// handleExportEbook streams the ebook's PDF, one A4 page per activity.
func (s *Server) handleExportEbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)
	id := chi.URLParam(r, "id")

	ebook, err := s.ebookService.Get(ctx, userID, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	// Validate before writing any bytes: an error after the header is
	// sent can't be reported cleanly anymore.
	if len(ebook.Activities) == 0 {
		response.BadRequest(w, "Ebook has no activities to export", s.logger)
		return
	}

	filename := export.Filename(ebook)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.exporter.Export(ctx, ebook, w); err != nil {
		// Headers are already sent, log and drop the connection
		s.logger.Error("Failed to export ebook",
			"ebook_id", id,
			"user_id", userID,
			"error", err,
		)
	}
}
