// Package search provides full-text search over the activity catalog.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kidobra/kidobra-server/internal/domain"
	"github.com/kidobra/kidobra-server/internal/normalize"
)

// Index wraps an in-memory Bleve index over catalog activities.
// The catalog is small and fully rebuilt from the manifest on load, so
// the index lives in memory and is rebuilt alongside it.
//
// Thread safety: all public methods are safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	logger *slog.Logger
}

// Document is the indexed representation of one activity.
// Text fields are diacritic-folded so "verao" matches "Verão".
type Document struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	CategoryName string `json:"category_name"`
}

// Hit is a single search result.
type Hit struct {
	ActivityID string  `json:"activity_id"`
	Score      float64 `json:"score"`
}

// Result holds search hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// New creates an empty in-memory activity index.
func New(logger *slog.Logger) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &Index{
		index:  idx,
		logger: logger,
	}, nil
}

// buildIndexMapping creates the Bleve mapping for activity documents.
// Simple analyzer (no stemming): activity names are short Portuguese
// file-derived labels, already folded before indexing.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = simple.Name
	nameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	categoryNameFieldMapping := bleve.NewTextFieldMapping()
	categoryNameFieldMapping.Analyzer = simple.Name
	categoryNameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("category_name", categoryNameFieldMapping)

	categoryFieldMapping := bleve.NewTextFieldMapping()
	categoryFieldMapping.Analyzer = keyword.Name
	categoryFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("category", categoryFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// activityName derives a searchable label from the activity file name:
// "alfabeto_colorido.png" becomes "alfabeto colorido".
func activityName(a domain.Activity) string {
	name := strings.TrimSuffix(a.File, filepath.Ext(a.File))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return normalize.Fold(name)
}

// Rebuild replaces the index contents with the given activities.
func (s *Index) Rebuild(activities []domain.Activity, categoryNames map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	batch := idx.NewBatch()
	for _, a := range activities {
		doc := Document{
			ID:           a.ID,
			Name:         activityName(a),
			Category:     a.CategoryID,
			CategoryName: normalize.Fold(categoryNames[a.CategoryID]),
		}
		if err := batch.Index(a.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", a.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	old := s.index
	s.index = idx
	if old != nil {
		_ = old.Close()
	}

	if s.logger != nil {
		s.logger.Info("search index rebuilt", "activities", len(activities))
	}

	return nil
}

// Close releases the index.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// DocumentCount returns the number of indexed activities.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Search queries the index. The query is folded the same way documents
// are, optionally restricted to one category id.
func (s *Index) Search(ctx context.Context, rawQuery, categoryID string, limit int) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	folded := normalize.Fold(rawQuery)

	var queries []query.Query

	if folded != "" {
		textQueries := []query.Query{}

		nameMatch := bleve.NewMatchQuery(folded)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		categoryMatch := bleve.NewMatchQuery(folded)
		categoryMatch.SetField("category_name")
		categoryMatch.SetBoost(1.5)
		textQueries = append(textQueries, categoryMatch)

		// Fuzzy matching for typo tolerance
		fuzzyQuery := bleve.NewFuzzyQuery(folded)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(folded) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(folded)
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if categoryID != "" && categoryID != domain.AllActivitiesCategoryID {
		tq := bleve.NewTermQuery(categoryID)
		tq.SetField("category")
		queries = append(queries, tq)
	}

	var searchQuery query.Query
	switch len(queries) {
	case 0:
		searchQuery = bleve.NewMatchAllQuery()
	case 1:
		searchQuery = queries[0]
	default:
		searchQuery = bleve.NewConjunctionQuery(queries...)
	}

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, limit, 0, false)
	searchRequest.SortBy([]string{"-_score"})

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  rawQuery,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}
	for _, hit := range searchResult.Hits {
		result.Hits = append(result.Hits, Hit{
			ActivityID: hit.ID,
			Score:      hit.Score,
		})
	}

	return result, nil
}
