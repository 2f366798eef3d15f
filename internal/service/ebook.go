package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kidobra/kidobra-server/internal/catalog"
	"github.com/kidobra/kidobra-server/internal/domain"
	domainerrors "github.com/kidobra/kidobra-server/internal/errors"
	"github.com/kidobra/kidobra-server/internal/id"
	"github.com/kidobra/kidobra-server/internal/store"
)

// EbookService manages user-curated ebooks and the per-device selection
// slots that activity operations act through.
type EbookService struct {
	store   *store.Store
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewEbookService creates a new ebook management service.
func NewEbookService(store *store.Store, catalog *catalog.Catalog, logger *slog.Logger) *EbookService {
	return &EbookService{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

// CreateEbookRequest contains the data for a new ebook.
type CreateEbookRequest struct {
	Name string `json:"name" validate:"required,min=3,max=100"`
}

// RenameEbookRequest contains the new display name for an ebook.
type RenameEbookRequest struct {
	Name string `json:"name" validate:"required,min=3,max=100"`
}

// CloneEbookRequest contains the optional name for a cloned ebook.
// When Name is empty the clone is named after the source.
type CloneEbookRequest struct {
	Name string `json:"name" validate:"omitempty,min=3,max=100"`
}

// ReorderRequest contains the full activity id sequence in its new order.
type ReorderRequest struct {
	ActivityIDs []string `json:"activity_ids" validate:"required,min=1"`
}

// AddActivityResponse reports the outcome of adding an activity.
// Added is false when the activity was already in the ebook.
type AddActivityResponse struct {
	Ebook *domain.Ebook `json:"ebook"`
	Added bool          `json:"added"`
}

// RemoveActivityResponse reports the outcome of removing an activity.
// Removed is false when the activity was not in the ebook.
type RemoveActivityResponse struct {
	Ebook   *domain.Ebook `json:"ebook"`
	Removed bool          `json:"removed"`
}

// ListResponse bundles a user's ebooks with the device's restored selection.
type ListResponse struct {
	Ebooks          []*domain.Ebook `json:"ebooks"`
	SelectedEbookID string          `json:"selected_ebook_id,omitempty"`
}

// List returns the user's ebooks, newest first. With a device id present
// the device's selection is restored alongside the list.
func (s *EbookService) List(ctx context.Context, userID, deviceID string) (*ListResponse, error) {
	ebooks, err := s.store.ListEbooksByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ebooks: %w", err)
	}
	if ebooks == nil {
		ebooks = []*domain.Ebook{}
	}

	resp := &ListResponse{Ebooks: ebooks}

	// Restore the device's selection alongside the list. A dangling slot
	// is purged by selectedEbook; either way the list itself still loads.
	if deviceID != "" {
		selected, err := s.selectedEbook(ctx, userID, deviceID)
		switch {
		case err == nil:
			resp.SelectedEbookID = selected.ID
		case errors.Is(err, domainerrors.ErrFailedPrecondition):
			// nothing selected on this device
		default:
			return nil, err
		}
	}

	return resp, nil
}

// Get returns one of the user's ebooks by id.
// Ebooks owned by other users look like they don't exist.
func (s *EbookService) Get(ctx context.Context, userID, ebookID string) (*domain.Ebook, error) {
	return s.ownedEbook(ctx, userID, ebookID)
}

// Create makes a new, empty ebook for the user.
func (s *EbookService) Create(ctx context.Context, userID string, req CreateEbookRequest) (*domain.Ebook, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	ebookID, err := id.Generate("ebook")
	if err != nil {
		return nil, fmt.Errorf("generate ebook ID: %w", err)
	}

	ebook := &domain.Ebook{
		ID:         ebookID,
		OwnerID:    userID,
		Name:       req.Name,
		Activities: []domain.Activity{},
		CreatedAt:  time.Now(),
	}

	if err := s.store.CreateEbook(ctx, ebook); err != nil {
		return nil, fmt.Errorf("create ebook: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Ebook created",
			"ebook_id", ebookID,
			"user_id", userID,
			"name", req.Name,
		)
	}

	return ebook, nil
}

// Rename changes an ebook's display name.
func (s *EbookService) Rename(ctx context.Context, userID, ebookID string, req RenameEbookRequest) (*domain.Ebook, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	if _, err := s.ownedEbook(ctx, userID, ebookID); err != nil {
		return nil, err
	}

	if err := s.store.RenameEbook(ctx, ebookID, req.Name); err != nil {
		return nil, fmt.Errorf("rename ebook: %w", err)
	}

	return s.ownedEbook(ctx, userID, ebookID)
}

// Delete removes an ebook and every selection slot that pointed at it,
// on any device. Deleting an already deleted ebook is not an error.
func (s *EbookService) Delete(ctx context.Context, userID, ebookID string) error {
	_, err := s.ownedEbook(ctx, userID, ebookID)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil // Already gone
	}
	if err != nil {
		return err
	}

	if err := s.store.DeleteEbook(ctx, ebookID); err != nil {
		return fmt.Errorf("delete ebook: %w", err)
	}

	if err := s.store.ClearSelectionsOfEbook(ctx, ebookID); err != nil {
		return fmt.Errorf("clear selections of deleted ebook: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Ebook deleted",
			"ebook_id", ebookID,
			"user_id", userID,
		)
	}

	return nil
}

// Clone creates a new ebook with a value copy of the source's activity
// sequence. Later changes to either ebook never affect the other.
func (s *EbookService) Clone(ctx context.Context, userID, sourceID string, req CloneEbookRequest) (*domain.Ebook, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	source, err := s.ownedEbook(ctx, userID, sourceID)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = source.Name + " (cópia)"
	}

	ebookID, err := id.Generate("ebook")
	if err != nil {
		return nil, fmt.Errorf("generate ebook ID: %w", err)
	}

	clone := &domain.Ebook{
		ID:         ebookID,
		OwnerID:    userID,
		Name:       name,
		Activities: source.CloneActivities(),
		CreatedAt:  time.Now(),
	}

	if err := s.store.CreateEbook(ctx, clone); err != nil {
		return nil, fmt.Errorf("create cloned ebook: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Ebook cloned",
			"source_id", sourceID,
			"ebook_id", ebookID,
			"user_id", userID,
			"activities", len(clone.Activities),
		)
	}

	return clone, nil
}

// Select records an ebook as the active one for (user, device).
// Every activity operation on this device acts on the selected ebook
// until the selection changes.
func (s *EbookService) Select(ctx context.Context, userID, deviceID, ebookID string) (*domain.Ebook, error) {
	if deviceID == "" {
		return nil, domainerrors.Validation("device id is required to select an ebook")
	}

	ebook, err := s.ownedEbook(ctx, userID, ebookID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetSelection(ctx, userID, deviceID, ebookID); err != nil {
		return nil, fmt.Errorf("set selection: %w", err)
	}

	return ebook, nil
}

// Selected returns the ebook currently selected on the device.
// A slot pointing at a deleted ebook is cleared and treated as no
// selection.
func (s *EbookService) Selected(ctx context.Context, userID, deviceID string) (*domain.Ebook, error) {
	return s.selectedEbook(ctx, userID, deviceID)
}

// ClearSelection drops the device's selection slot.
func (s *EbookService) ClearSelection(ctx context.Context, userID, deviceID string) error {
	if deviceID == "" {
		return domainerrors.Validation("device id is required")
	}
	if err := s.store.ClearSelection(ctx, userID, deviceID); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return nil
}

// AddActivity appends a catalog activity to the device's selected ebook.
// Adding an activity that is already present leaves the ebook unchanged
// and reports Added=false; it is not an error.
func (s *EbookService) AddActivity(ctx context.Context, userID, deviceID, activityID string) (*AddActivityResponse, error) {
	ebook, err := s.selectedEbook(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}

	activity, err := s.catalog.GetActivity(activityID)
	if err != nil {
		return nil, err
	}

	added, err := s.store.AddActivityToEbook(ctx, ebook.ID, activity)
	if err != nil {
		return nil, fmt.Errorf("add activity: %w", err)
	}

	updated, err := s.ownedEbook(ctx, userID, ebook.ID)
	if err != nil {
		return nil, err
	}

	if s.logger != nil && added {
		s.logger.Info("Activity added to ebook",
			"ebook_id", ebook.ID,
			"activity_id", activityID,
			"user_id", userID,
		)
	}

	return &AddActivityResponse{Ebook: updated, Added: added}, nil
}

// RemoveActivity removes an activity from the device's selected ebook.
// Removing an absent activity reports Removed=false; it is not an error.
func (s *EbookService) RemoveActivity(ctx context.Context, userID, deviceID, activityID string) (*RemoveActivityResponse, error) {
	ebook, err := s.selectedEbook(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.RemoveActivityFromEbook(ctx, ebook.ID, activityID)
	if err != nil {
		return nil, fmt.Errorf("remove activity: %w", err)
	}

	updated, err := s.ownedEbook(ctx, userID, ebook.ID)
	if err != nil {
		return nil, err
	}

	return &RemoveActivityResponse{Ebook: updated, Removed: removed}, nil
}

// Reorder rewrites the selected ebook's activity sequence. The request
// must carry a permutation of the current sequence; anything else is
// rejected and the sequence is left unchanged.
func (s *EbookService) Reorder(ctx context.Context, userID, deviceID string, req ReorderRequest) (*domain.Ebook, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	ebook, err := s.selectedEbook(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReorderEbookActivities(ctx, ebook.ID, req.ActivityIDs); err != nil {
		var storeErr *store.Error
		if errors.As(err, &storeErr) && errors.Is(storeErr, store.ErrInvalidInput) {
			return nil, domainerrors.Validation(storeErr.Error())
		}
		return nil, fmt.Errorf("reorder activities: %w", err)
	}

	return s.ownedEbook(ctx, userID, ebook.ID)
}

// ownedEbook fetches an ebook and verifies ownership. Ebooks owned by
// someone else are reported as not found so their existence never leaks.
func (s *EbookService) ownedEbook(ctx context.Context, userID, ebookID string) (*domain.Ebook, error) {
	ebook, err := s.store.GetEbook(ctx, ebookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("ebook %q not found", ebookID)
		}
		return nil, fmt.Errorf("get ebook: %w", err)
	}

	if ebook.OwnerID != userID {
		return nil, domainerrors.NotFoundf("ebook %q not found", ebookID)
	}

	return ebook, nil
}

// selectedEbook resolves the device's selection slot to an owned ebook.
// No selection, or a slot left dangling by a deletion, is a failed
// precondition: the caller must select an ebook first.
func (s *EbookService) selectedEbook(ctx context.Context, userID, deviceID string) (*domain.Ebook, error) {
	if deviceID == "" {
		return nil, domainerrors.Validation("device id is required")
	}

	ebookID, err := s.store.GetSelection(ctx, userID, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.FailedPrecondition("no ebook selected on this device")
		}
		return nil, fmt.Errorf("get selection: %w", err)
	}

	ebook, err := s.ownedEbook(ctx, userID, ebookID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			// Dangling slot from a deleted ebook
			_ = s.store.ClearSelection(ctx, userID, deviceID)
			return nil, domainerrors.FailedPrecondition("no ebook selected on this device")
		}
		return nil, err
	}

	return ebook, nil
}
