package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kidobra/kidobra-server/internal/catalog"
	"github.com/kidobra/kidobra-server/internal/domain"
	"github.com/kidobra/kidobra-server/internal/search"
)

// CatalogService exposes the activity catalog to the API: category
// browsing and full-text activity search.
type CatalogService struct {
	catalog *catalog.Catalog
	index   *search.Index
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog browsing service.
func NewCatalogService(catalog *catalog.Catalog, index *search.Index, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		index:   index,
		logger:  logger,
	}
}

// SearchResponse carries resolved search hits.
type SearchResponse struct {
	Query      string            `json:"query"`
	Total      uint64            `json:"total"`
	Activities []domain.Activity `json:"activities"`
}

// Categories returns all catalog categories, the aggregate view first.
func (s *CatalogService) Categories(_ context.Context) []domain.Category {
	return s.catalog.Categories()
}

// GetCategory returns one category by id.
func (s *CatalogService) GetCategory(_ context.Context, categoryID string) (domain.Category, error) {
	return s.catalog.GetCategory(categoryID)
}

// Activities returns the ordered activities of a category. The aggregate
// category id returns the whole catalog.
func (s *CatalogService) Activities(_ context.Context, categoryID string) ([]domain.Activity, error) {
	return s.catalog.ActivitiesByCategory(categoryID)
}

// GetActivity returns one catalog activity by id.
func (s *CatalogService) GetActivity(_ context.Context, activityID string) (domain.Activity, error) {
	return s.catalog.GetActivity(activityID)
}

// Search runs a full-text query over the catalog, optionally scoped to
// one category, and resolves the hits back to catalog activities.
func (s *CatalogService) Search(ctx context.Context, query, categoryID string, limit int) (*SearchResponse, error) {
	result, err := s.index.Search(ctx, query, categoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("search activities: %w", err)
	}

	activities := make([]domain.Activity, 0, len(result.Hits))
	for _, hit := range result.Hits {
		activity, err := s.catalog.GetActivity(hit.ActivityID)
		if err != nil {
			// Index can briefly trail a catalog reload
			continue
		}
		activities = append(activities, activity)
	}

	return &SearchResponse{
		Query:      result.Query,
		Total:      result.Total,
		Activities: activities,
	}, nil
}
